package models

import "time"

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusUnpaid     = "unpaid"
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusPaused     = "paused"
)

// Subscription mirrors the payment provider's subscription resource. The
// provider reference is the identity; rows are marked ended, never deleted.
type Subscription struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	SubscriptionReference string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_subscriptions_reference" json:"subscription_reference"`
	CustomerReference     string     `gorm:"type:varchar(191);default:'';index" json:"customer_reference"`
	LicenseKey            string     `gorm:"type:varchar(64);default:'';index" json:"license_key"`
	PlanID                string     `gorm:"type:varchar(50);not null" json:"plan_id"`
	Status                string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	CurrentPeriodStart    *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd      *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd     bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt            *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	EndedAt               *time.Time `gorm:"type:timestamp;default:null" json:"ended_at,omitempty"`
	RawPayloadJSON        string     `gorm:"type:longtext" json:"raw_payload_json"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActionableStatus reports whether a provider status warrants granting or
// maintaining access.
func IsActionableStatus(status string) bool {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
