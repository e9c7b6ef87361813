package billing

import (
	"time"

	"github.com/tradeforgehq/tradeforge/app/models"
	"github.com/tradeforgehq/tradeforge/internal/pkg/plans"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the store contract the reconciler writes through. Creation
// methods surface gorm.ErrDuplicatedKey when a unique index breaks a race;
// lookups surface gorm.ErrRecordNotFound for missing rows.
type Repository interface {
	GetLicenseByKey(key string) (*models.License, error)
	GetLicenseBySubscriptionRef(ref string) (*models.License, error)
	GetLicenseByPaymentRef(ref string) (*models.License, error)
	FindUpgradableLicenseByEmail(email string, now time.Time) (*models.License, error)
	CreateLicense(lic *models.License) error
	UpdateLicenseFields(licenseKey string, fields map[string]interface{}) error

	GetSubscriptionByRef(ref string) (*models.Subscription, error)
	UpsertSubscription(sub *models.Subscription) error

	GetOrderByPaymentRef(ref string) (*models.Order, error)
	CreateOrder(order *models.Order) error
	CloseOrder(paymentRef, status, licenseKey string) (bool, error)

	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetLicenseByKey(key string) (*models.License, error) {
	var lic models.License
	if err := r.db.Where("license_key = ?", key).First(&lic).Error; err != nil {
		return nil, err
	}
	return &lic, nil
}

func (r *gormRepository) GetLicenseBySubscriptionRef(ref string) (*models.License, error) {
	var lic models.License
	if err := r.db.Where("subscription_reference = ?", ref).First(&lic).Error; err != nil {
		return nil, err
	}
	return &lic, nil
}

func (r *gormRepository) GetLicenseByPaymentRef(ref string) (*models.License, error) {
	var lic models.License
	if err := r.db.Where("payment_reference = ?", ref).First(&lic).Error; err != nil {
		return nil, err
	}
	return &lic, nil
}

// FindUpgradableLicenseByEmail returns the customer's newest active license
// that is neither lifetime nor yearly. Plan-family filtering happens here
// rather than in SQL so legacy plan aliases are judged after normalization.
func (r *gormRepository) FindUpgradableLicenseByEmail(email string, now time.Time) (*models.License, error) {
	var lics []models.License
	err := r.db.
		Where("email = ? AND status = ?", email, models.LicenseStatusActive).
		Order("created_at DESC").
		Find(&lics).Error
	if err != nil {
		return nil, err
	}
	for i := range lics {
		lic := &lics[i]
		if !lic.IsUsable(now) {
			continue
		}
		if plans.IsLifetime(lic.Plan) || plans.IsYearly(lic.Plan) {
			continue
		}
		return lic, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *gormRepository) CreateLicense(lic *models.License) error {
	return r.db.Create(lic).Error
}

func (r *gormRepository) UpdateLicenseFields(licenseKey string, fields map[string]interface{}) error {
	return r.db.Model(&models.License{}).
		Where("license_key = ?", licenseKey).
		Updates(fields).Error
}

func (r *gormRepository) GetSubscriptionByRef(ref string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("subscription_reference = ?", ref).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "subscription_reference"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_reference",
			"license_key",
			"plan_id",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"ended_at",
			"raw_payload_json",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("subscription_reference = ?", sub.SubscriptionReference).
		First(sub).Error
}

func (r *gormRepository) GetOrderByPaymentRef(ref string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("payment_reference = ?", ref).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) CreateOrder(order *models.Order) error {
	return r.db.Create(order).Error
}

// CloseOrder transitions an order out of pending exactly once. The
// conditional update is the write-once guard: under concurrent deliveries
// only one invocation observes a transition.
func (r *gormRepository) CloseOrder(paymentRef, status, licenseKey string) (bool, error) {
	updates := map[string]interface{}{
		"status": status,
	}
	if licenseKey != "" {
		updates["license_key"] = licenseKey
	}
	tx := r.db.Model(&models.Order{}).
		Where("payment_reference = ? AND status = ?", paymentRef, models.OrderStatusPending).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
