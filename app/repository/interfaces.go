package repository

import (
	"github.com/tradeforgehq/tradeforge/app/models"
	"gorm.io/gorm"
)

// LicenseRepository defines the interface for license-related database
// operations used by the admin surface. Reconciliation writes go through the
// billing store contract, not this interface.
type LicenseRepository interface {
	GetByKey(key string) (*models.License, error)
	GetByEmail(email string) ([]models.License, error)
	List(offset, limit int) ([]models.License, error)
	Count() (int64, error)
	Search(query string) ([]models.License, error)
	Revoke(key string) error
}

// OrderRepository defines the interface for order-related database
// operations used by the admin surface.
type OrderRepository interface {
	GetByPaymentReference(ref string) (*models.Order, error)
	List(offset, limit int) ([]models.Order, error)
	Count() (int64, error)
}

// SubscriptionRepository defines the interface for subscription mirror rows
// used by the admin surface.
type SubscriptionRepository interface {
	GetByReference(ref string) (*models.Subscription, error)
	List(offset, limit int) ([]models.Subscription, error)
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	License      LicenseRepository
	Order        OrderRepository
	Subscription SubscriptionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		License:      NewLicenseRepository(db),
		Order:        NewOrderRepository(db),
		Subscription: NewSubscriptionRepository(db),
	}
}
