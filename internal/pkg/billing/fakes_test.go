package billing

import (
	"context"
	"sync"
	"time"

	"github.com/tradeforgehq/tradeforge/app/models"
	"github.com/tradeforgehq/tradeforge/internal/pkg/fulfillment"
	"github.com/tradeforgehq/tradeforge/internal/pkg/plans"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository that enforces the same unique
// constraints as the real schema, so duplicate-key races can be simulated.
type fakeRepository struct {
	mu            sync.Mutex
	licenses      []*models.License
	subscriptions []*models.Subscription
	orders        []*models.Order
	webhookEvents []*models.WebhookEvent
	nextID        uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{nextID: 1}
}

func (r *fakeRepository) id() uint {
	id := r.nextID
	r.nextID++
	return id
}

func copyLicense(lic *models.License) *models.License {
	c := *lic
	return &c
}

func (r *fakeRepository) GetLicenseByKey(key string) (*models.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lic := range r.licenses {
		if lic.LicenseKey == key {
			return copyLicense(lic), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetLicenseBySubscriptionRef(ref string) (*models.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lic := range r.licenses {
		if lic.SubscriptionReference != nil && *lic.SubscriptionReference == ref {
			return copyLicense(lic), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetLicenseByPaymentRef(ref string) (*models.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lic := range r.licenses {
		if lic.PaymentReference != nil && *lic.PaymentReference == ref {
			return copyLicense(lic), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) FindUpgradableLicenseByEmail(email string, now time.Time) (*models.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.licenses) - 1; i >= 0; i-- {
		lic := r.licenses[i]
		if lic.Email != email || !lic.IsUsable(now) {
			continue
		}
		if plans.IsLifetime(lic.Plan) || plans.IsYearly(lic.Plan) {
			continue
		}
		return copyLicense(lic), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) CreateLicense(lic *models.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.licenses {
		if existing.LicenseKey == lic.LicenseKey {
			return gorm.ErrDuplicatedKey
		}
		if lic.PaymentReference != nil && existing.PaymentReference != nil &&
			*existing.PaymentReference == *lic.PaymentReference {
			return gorm.ErrDuplicatedKey
		}
		if lic.SubscriptionReference != nil && existing.SubscriptionReference != nil &&
			*existing.SubscriptionReference == *lic.SubscriptionReference {
			return gorm.ErrDuplicatedKey
		}
	}
	lic.ID = r.id()
	r.licenses = append(r.licenses, copyLicense(lic))
	return nil
}

func (r *fakeRepository) UpdateLicenseFields(licenseKey string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lic := range r.licenses {
		if lic.LicenseKey != licenseKey {
			continue
		}
		for k, v := range fields {
			switch k {
			case "status":
				lic.Status = v.(string)
			case "plan":
				lic.Plan = v.(string)
			case "upgraded_from":
				lic.UpgradedFrom = v.(string)
			case "payment_type":
				lic.PaymentType = v.(string)
			case "payment_reference":
				ref := v.(string)
				lic.PaymentReference = &ref
			case "subscription_reference":
				ref := v.(string)
				lic.SubscriptionReference = &ref
			case "subscription_status":
				lic.SubscriptionStatus = v.(string)
			case "subscription_current_period_end":
				t := v.(time.Time)
				lic.SubscriptionCurrentPeriodEnd = &t
			case "cancel_at_period_end":
				lic.CancelAtPeriodEnd = v.(bool)
			case "expires_at":
				lic.ExpiresAt = v.(time.Time)
			}
		}
		return nil
	}
	return nil
}

func copySubscription(sub *models.Subscription) *models.Subscription {
	c := *sub
	return &c
}

func (r *fakeRepository) GetSubscriptionByRef(ref string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subscriptions {
		if sub.SubscriptionReference == ref {
			return copySubscription(sub), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) UpsertSubscription(sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.subscriptions {
		if existing.SubscriptionReference == sub.SubscriptionReference {
			sub.ID = existing.ID
			r.subscriptions[i] = copySubscription(sub)
			return nil
		}
	}
	sub.ID = r.id()
	r.subscriptions = append(r.subscriptions, copySubscription(sub))
	return nil
}

func copyOrder(order *models.Order) *models.Order {
	c := *order
	return &c
}

func (r *fakeRepository) GetOrderByPaymentRef(ref string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.PaymentReference == ref {
			return copyOrder(order), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) CreateOrder(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.PaymentReference == order.PaymentReference {
			return gorm.ErrDuplicatedKey
		}
	}
	order.ID = r.id()
	r.orders = append(r.orders, copyOrder(order))
	return nil
}

func (r *fakeRepository) CloseOrder(paymentRef, status, licenseKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.PaymentReference != paymentRef || order.Status != models.OrderStatusPending {
			continue
		}
		order.Status = status
		if licenseKey != "" {
			order.LicenseKey = licenseKey
		}
		return true, nil
	}
	return false, nil
}

func (r *fakeRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.webhookEvents {
		if existing.Provider == event.Provider && existing.ProviderEventID == event.ProviderEventID {
			c := *existing
			return false, &c, nil
		}
	}
	event.ID = r.id()
	c := *event
	r.webhookEvents = append(r.webhookEvents, &c)
	stored := *event
	return true, &stored, nil
}

func (r *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.webhookEvents {
		if event.ID == id {
			now := time.Now()
			event.ProcessedAt = &now
			event.ProcessingError = processingError
		}
	}
	return nil
}

// mustLicenseByKey reads a stored license directly, bypassing the interface.
func (r *fakeRepository) mustLicenseByKey(key string) *models.License {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lic := range r.licenses {
		if lic.LicenseKey == key {
			return copyLicense(lic)
		}
	}
	return nil
}

func (r *fakeRepository) orderByRef(ref string) *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.PaymentReference == ref {
			return copyOrder(order)
		}
	}
	return nil
}

func (r *fakeRepository) subscriptionByRef(ref string) *models.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subscriptions {
		if sub.SubscriptionReference == ref {
			return copySubscription(sub)
		}
	}
	return nil
}

func (r *fakeRepository) licenseCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.licenses)
}

// recordingFulfillment captures deliveries instead of sending mail.
type recordingFulfillment struct {
	mu         sync.Mutex
	deliveries []fulfillment.Delivery
	err        error
}

func (f *recordingFulfillment) Deliver(_ context.Context, d fulfillment.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deliveries = append(f.deliveries, d)
	return nil
}

func (f *recordingFulfillment) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deliveries)
}

// recordingProvider captures outbound metadata corrections.
type recordingProvider struct {
	mu    sync.Mutex
	calls []map[string]string
	refs  []string
}

func (p *recordingProvider) UpdateSubscriptionMetadata(_ context.Context, ref string, metadata map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs = append(p.refs, ref)
	p.calls = append(p.calls, metadata)
	return nil
}
