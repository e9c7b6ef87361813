package models

import "time"

const (
	LicenseStatusActive  = "active"
	LicenseStatusExpired = "expired"
	LicenseStatusRevoked = "revoked"
)

const (
	PaymentTypeOneTime      = "one_time"
	PaymentTypeSubscription = "subscription"
)

// License grants access to the desktop app. The license key is the immutable
// identity. The unique indexes on key, payment reference and subscription
// reference are what break creation races between concurrent webhook
// deliveries; both references are nullable so the constraint only binds the
// payment type that carries it.
type License struct {
	ID                           uint       `gorm:"primaryKey" json:"id"`
	LicenseKey                   string     `gorm:"type:varchar(64);not null;uniqueIndex:ux_licenses_license_key" json:"license_key"`
	Email                        string     `gorm:"type:varchar(200);not null;index" json:"email"`
	FullName                     string     `gorm:"type:varchar(200);default:''" json:"full_name"`
	Plan                         string     `gorm:"type:varchar(50);not null" json:"plan"`
	Status                       string     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	ExpiresAt                    time.Time  `gorm:"type:timestamp;not null" json:"expires_at"`
	PaymentReference             *string    `gorm:"type:varchar(191);default:null;uniqueIndex:ux_licenses_payment_reference" json:"payment_reference,omitempty"`
	SubscriptionReference        *string    `gorm:"type:varchar(191);default:null;uniqueIndex:ux_licenses_subscription_reference" json:"subscription_reference,omitempty"`
	PaymentType                  string     `gorm:"type:varchar(20);not null;default:'one_time'" json:"payment_type"`
	SubscriptionStatus           string     `gorm:"type:varchar(32);default:''" json:"subscription_status"`
	SubscriptionCurrentPeriodEnd *time.Time `gorm:"type:timestamp;default:null" json:"subscription_current_period_end,omitempty"`
	CancelAtPeriodEnd            bool       `gorm:"default:false" json:"cancel_at_period_end"`
	UpgradedFrom                 string     `gorm:"type:varchar(50);default:''" json:"upgraded_from"`
	CreatedAt                    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsUsable reports whether the license currently grants access.
func (l *License) IsUsable(now time.Time) bool {
	return l.Status == LicenseStatusActive && now.Before(l.ExpiresAt)
}
