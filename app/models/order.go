package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// Order records a one-time purchase intent created at checkout time. It joins
// the eventual payment event back to the email/plan that initiated it. The
// pending -> paid/failed transition happens exactly once.
type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	PaymentReference string          `gorm:"type:varchar(191);not null;uniqueIndex:ux_orders_payment_reference" json:"payment_reference"`
	Email            string          `gorm:"type:varchar(200);not null;index" json:"email"`
	FullName         string          `gorm:"type:varchar(200);default:''" json:"full_name"`
	Plan             string          `gorm:"type:varchar(50);not null" json:"plan"`
	Amount           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	DisplayPrice     string          `gorm:"type:varchar(32);default:''" json:"display_price"`
	Status           string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	LicenseKey       string          `gorm:"type:varchar(64);default:''" json:"license_key"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the order already reached paid or failed.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusFailed
}
