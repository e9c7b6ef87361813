package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tradeforgehq/tradeforge/app/models"
	"github.com/tradeforgehq/tradeforge/internal/pkg/fulfillment"
	"github.com/tradeforgehq/tradeforge/internal/pkg/plans"
	"gorm.io/gorm"
)

// ProviderClient is the outbound surface used to push metadata corrections
// back to the payment processor.
type ProviderClient interface {
	UpdateSubscriptionMetadata(ctx context.Context, subscriptionRef string, metadata map[string]string) error
}

// Service is the payment-event reconciler. Each handler consumes one
// normalized provider event and computes the store writes needed to keep the
// local License/Subscription/Order records consistent with the provider.
//
// All handlers share the same idempotency discipline: resolve existing state
// by the most specific key available (subscription reference > license key >
// payment reference), treat equal-or-later stored state as a no-op, and
// recover duplicate-key insert errors as "another invocation won the
// creation race". Store errors other than duplicate keys propagate so the
// provider redelivers; missing or malformed metadata degrades to a logged
// skip, never an error.
type Service struct {
	repo     Repository
	catalog  *Catalog
	fulfill  fulfillment.Fulfillment
	provider ProviderClient
	now      func() time.Time
}

// NewService creates a reconciler from injected collaborators. fulfill and
// provider may be nil (no delivery / no outbound corrections).
func NewService(repo Repository, catalog *Catalog, fulfill fulfillment.Fulfillment, provider ProviderClient) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		fulfill:  fulfill,
		provider: provider,
		now:      time.Now,
	}
}

// NewServiceFromDB creates a reconciler from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, catalog *Catalog, fulfill fulfillment.Fulfillment, provider ProviderClient) *Service {
	return NewService(NewRepository(db), catalog, fulfill, provider)
}

// NewLicenseKey generates a fresh license key (TF-XXXX-XXXX-XXXX-XXXX).
func NewLicenseKey() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("TF-%s-%s-%s-%s", raw[0:4], raw[4:8], raw[8:12], raw[12:16])
}

// HandleEvent routes a parsed webhook envelope to the matching handler.
// Unhandled event types and undecodable payloads are acknowledged without
// processing.
func (s *Service) HandleEvent(ctx context.Context, ev *Event) error {
	switch ev.Type {
	case EventPaymentSucceeded:
		var pi PaymentIntentResource
		if err := json.Unmarshal(ev.Object, &pi); err != nil {
			log.Printf("billing: event %s has undecodable payment intent payload: %v", ev.ID, err)
			return nil
		}
		return s.HandlePaymentSucceeded(ctx, &pi)
	case EventPaymentFailed:
		var pi PaymentIntentResource
		if err := json.Unmarshal(ev.Object, &pi); err != nil {
			log.Printf("billing: event %s has undecodable payment intent payload: %v", ev.ID, err)
			return nil
		}
		return s.HandlePaymentFailed(ctx, &pi)
	case EventCheckoutCompleted:
		var cs CheckoutSession
		if err := json.Unmarshal(ev.Object, &cs); err != nil {
			log.Printf("billing: event %s has undecodable checkout session payload: %v", ev.ID, err)
			return nil
		}
		return s.HandleCheckoutCompleted(ctx, &cs)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var sub SubscriptionResource
		if err := json.Unmarshal(ev.Object, &sub); err != nil {
			log.Printf("billing: event %s has undecodable subscription payload: %v", ev.ID, err)
			return nil
		}
		return s.HandleSubscriptionUpdated(ctx, &sub, ev.Object)
	case EventSubscriptionDeleted:
		var sub SubscriptionResource
		if err := json.Unmarshal(ev.Object, &sub); err != nil {
			log.Printf("billing: event %s has undecodable subscription payload: %v", ev.ID, err)
			return nil
		}
		return s.HandleSubscriptionDeleted(ctx, &sub)
	case EventInvoicePaymentFailed:
		var inv InvoiceResource
		if err := json.Unmarshal(ev.Object, &inv); err != nil {
			log.Printf("billing: event %s has undecodable invoice payload: %v", ev.ID, err)
			return nil
		}
		return s.HandleInvoicePaymentFailed(ctx, &inv)
	default:
		return nil
	}
}

// HandlePaymentSucceeded reconciles a successful one-time payment: either
// an in-place monthly-to-yearly upgrade of an existing license or a new
// license, followed by the write-once order close-out that gates delivery.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, pi *PaymentIntentResource) error {
	ref := strings.TrimSpace(pi.ID)
	if ref == "" {
		log.Printf("billing: payment succeeded event without payment reference, dropping")
		return nil
	}

	// The order is keyed by the shop's own order reference when the payment
	// was initiated here (carried back through metadata); payments created
	// through other surfaces use the provider payment reference directly.
	orderRef := strings.TrimSpace(pi.Metadata[MetaOrderReference])
	if orderRef == "" {
		orderRef = ref
	}
	order, err := s.repo.GetOrderByPaymentRef(orderRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("billing: payment %s has no order, dropping", ref)
		return nil
	}
	if err != nil {
		return err
	}
	if order.Status == models.OrderStatusPaid {
		return nil
	}

	now := s.now()
	email := strings.TrimSpace(order.Email)
	if email == "" {
		email = strings.TrimSpace(pi.ReceiptEmail)
	}
	newPlan := plans.Normalize(order.Plan)
	if strings.TrimSpace(order.Plan) == "" {
		newPlan = plans.Normalize(pi.Metadata[MetaPlan])
	}

	// A redelivery after a crash between the license write and the order
	// close-out resumes here instead of minting a second license.
	lic, err := s.repo.GetLicenseByPaymentRef(ref)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if lic == nil && strings.EqualFold(strings.TrimSpace(pi.Metadata[MetaIsUpgrade]), "true") {
		src, err := s.resolveUpgradeSource(pi.Metadata, email, now)
		if err != nil {
			return err
		}
		if src != nil {
			oldPlan := plans.Normalize(src.Plan)
			// The triggering payment reference is recorded on the upgraded
			// license so a redelivery resumes via the payment-ref lookup
			// above instead of re-running upgrade resolution against a
			// license that is no longer eligible.
			if err := s.repo.UpdateLicenseFields(src.LicenseKey, map[string]interface{}{
				"plan":              newPlan,
				"expires_at":        now.Add(plans.YearlyTerm),
				"upgraded_from":     oldPlan,
				"status":            models.LicenseStatusActive,
				"payment_reference": ref,
			}); err != nil {
				return err
			}
			src.Plan = newPlan
			src.ExpiresAt = now.Add(plans.YearlyTerm)
			src.UpgradedFrom = oldPlan
			src.PaymentReference = &ref
			lic = src
		}
	}

	if lic == nil {
		lic = &models.License{
			LicenseKey:       NewLicenseKey(),
			Email:            email,
			FullName:         order.FullName,
			Plan:             newPlan,
			Status:           models.LicenseStatusActive,
			ExpiresAt:        plans.ExpiryFrom(now, newPlan),
			PaymentReference: &ref,
			PaymentType:      models.PaymentTypeOneTime,
		}
		if err := s.repo.CreateLicense(lic); err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			// A concurrent delivery inserted the license for this payment
			// first; continue with the winner's row.
			lic, err = s.repo.GetLicenseByPaymentRef(ref)
			if err != nil {
				return err
			}
		}
	}

	closed, err := s.repo.CloseOrder(orderRef, models.OrderStatusPaid, lic.LicenseKey)
	if err != nil {
		return err
	}
	if closed {
		s.deliver(ctx, lic, order.Amount, order.Currency, order.PaymentReference)
	}
	return nil
}

// HandlePaymentFailed marks the order failed unless it already reached a
// terminal state.
func (s *Service) HandlePaymentFailed(ctx context.Context, pi *PaymentIntentResource) error {
	_ = ctx
	ref := strings.TrimSpace(pi.ID)
	if ref == "" {
		return nil
	}
	orderRef := strings.TrimSpace(pi.Metadata[MetaOrderReference])
	if orderRef == "" {
		orderRef = ref
	}

	order, err := s.repo.GetOrderByPaymentRef(orderRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("billing: payment failure for %s has no order, dropping", ref)
		return nil
	}
	if err != nil {
		return err
	}
	if order.IsTerminal() {
		return nil
	}

	_, err = s.repo.CloseOrder(orderRef, models.OrderStatusFailed, "")
	return err
}

// HandleCheckoutCompleted creates the subscription license when a checkout
// session finishes. The expiry is a provisional 30 days; the
// subscription-updated handler corrects it from real period data.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, cs *CheckoutSession) error {
	if cs.Mode != "" && cs.Mode != "subscription" {
		// One-time checkouts settle through the payment intent events.
		return nil
	}

	licenseKey := strings.TrimSpace(cs.Metadata[MetaLicenseKey])
	email := cs.Email()
	plan := strings.TrimSpace(cs.Metadata[MetaPlan])
	if licenseKey == "" || email == "" || plan == "" {
		log.Printf("billing: checkout session %s missing license_key/email/plan metadata, dropping", cs.ID)
		return nil
	}
	plan = plans.Normalize(plan)

	if _, err := s.repo.GetLicenseByKey(licenseKey); err == nil {
		// Redelivery, or the subscription-updated handler got here first.
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := s.now()
	lic := &models.License{
		LicenseKey:  licenseKey,
		Email:       email,
		FullName:    cs.FullName(),
		Plan:        plan,
		Status:      models.LicenseStatusActive,
		ExpiresAt:   now.Add(plans.MonthlyTerm),
		PaymentType: models.PaymentTypeSubscription,
	}
	if ref := strings.TrimSpace(cs.Subscription); ref != "" {
		lic.SubscriptionReference = &ref
	}
	if err := s.repo.CreateLicense(lic); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the creation race; the winner owns delivery.
			return nil
		}
		return err
	}

	s.deliver(ctx, lic, decimal.New(cs.AmountTotal, -2), cs.Currency, cs.Metadata[MetaOrderReference])
	return nil
}

// HandleSubscriptionUpdated reconciles a subscription created/updated event:
// effective-plan derivation, period fallback, license resolution/creation,
// plan-change bookkeeping, write-through, subscription upsert and order
// close-out.
func (s *Service) HandleSubscriptionUpdated(ctx context.Context, sub *SubscriptionResource, raw []byte) error {
	ref := strings.TrimSpace(sub.ID)
	if ref == "" {
		log.Printf("billing: subscription event without reference, dropping")
		return nil
	}

	now := s.now()
	actionable := models.IsActionableStatus(sub.Status)

	// The plan implied by the actually billed price item wins over metadata,
	// which goes stale after plan changes made directly with the provider.
	plan := ""
	if p, ok := s.catalog.ResolvePrice(sub.PriceRef()); ok {
		plan = p
	} else if v := strings.TrimSpace(sub.Metadata[MetaPlan]); v != "" {
		plan = plans.Normalize(v)
	}

	lic, createdHere, err := s.resolveOrCreateLicense(sub, ref, plan, actionable, now)
	if err != nil || lic == nil {
		return err
	}
	if plan == "" {
		// Unrecognized price and no usable metadata: keep the stored plan,
		// never fabricate one.
		plan = plans.Normalize(lic.Plan)
	}

	start, end := derivePeriod(sub, plan, now)

	oldPlan := plans.Normalize(lic.Plan)
	upgradedFrom := ""
	if oldPlan != "" && oldPlan != plan {
		upgradedFrom = oldPlan
	}
	// Equal after normalization means a cosmetic rename: clear any stale
	// upgraded_from instead of recording one.

	licStatus := models.LicenseStatusActive
	if lic.Status == models.LicenseStatusRevoked {
		licStatus = models.LicenseStatusRevoked
	} else if !actionable && !end.After(now) {
		licStatus = models.LicenseStatusExpired
	}

	// Redelivery of an already-applied event must not write. A strictly
	// older event whose payload carries canonical period fields can still
	// overwrite newer state here; known ordering gap, deliberately not
	// fixed with a last-applied timestamp.
	if !createdHere && !s.licenseNeedsWrite(lic, ref, plan, sub, end, upgradedFrom, licStatus) {
		return nil
	}

	if err := s.repo.UpdateLicenseFields(lic.LicenseKey, map[string]interface{}{
		"status":                          licStatus,
		"plan":                            plan,
		"upgraded_from":                   upgradedFrom,
		"payment_type":                    models.PaymentTypeSubscription,
		"subscription_reference":          ref,
		"subscription_status":             sub.Status,
		"subscription_current_period_end": end,
		"cancel_at_period_end":            sub.CancelAtPeriodEnd,
		"expires_at":                      end,
	}); err != nil {
		return err
	}
	lic.Plan = plan
	lic.ExpiresAt = end

	if err := s.upsertSubscriptionRow(sub, ref, plan, lic.LicenseKey, start, end, actionable, string(raw)); err != nil {
		return err
	}

	// Subscription purchases skip the one-time payment events entirely;
	// closing the originating order happens here instead.
	if orderRef := strings.TrimSpace(sub.Metadata[MetaOrderReference]); orderRef != "" && actionable {
		if _, err := s.repo.CloseOrder(orderRef, models.OrderStatusPaid, lic.LicenseKey); err != nil {
			return err
		}
	}

	if createdHere {
		s.deliver(ctx, lic, decimal.Zero, "", sub.Metadata[MetaOrderReference])
	}

	if metaRaw := strings.TrimSpace(sub.Metadata[MetaPlan]); s.provider != nil && metaRaw != "" && plans.Normalize(metaRaw) != plan {
		if err := s.provider.UpdateSubscriptionMetadata(ctx, ref, map[string]string{MetaPlan: plan}); err != nil {
			log.Printf("billing: metadata correction for subscription %s failed: %v", ref, err)
		}
	}
	return nil
}

// HandleSubscriptionDeleted marks the subscription ended and closes out the
// linked license's coverage at the end time. Terminal; redelivery is a
// no-op. Unlike the update path, a missing mirror row is still written
// here, in canceled state: the terminal event is the last chance to record
// that the reference existed.
func (s *Service) HandleSubscriptionDeleted(ctx context.Context, sub *SubscriptionResource) error {
	_ = ctx
	ref := strings.TrimSpace(sub.ID)
	if ref == "" {
		return nil
	}

	now := s.now()
	endedAt := now
	if t := unixTime(sub.EndedAt); t != nil {
		endedAt = *t
	}
	canceledAt := unixTime(sub.CanceledAt)

	row, err := s.repo.GetSubscriptionByRef(ref)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if row == nil {
		row = &models.Subscription{
			SubscriptionReference: ref,
			CustomerReference:     strings.TrimSpace(sub.Customer),
			PlanID:                plans.Normalize(sub.Metadata[MetaPlan]),
		}
	}
	row.Status = models.SubscriptionStatusCanceled
	row.CanceledAt = canceledAt
	row.EndedAt = &endedAt
	row.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	if err := s.repo.UpsertSubscription(row); err != nil {
		return err
	}

	lic, err := s.repo.GetLicenseBySubscriptionRef(ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("billing: deleted subscription %s has no license", ref)
		return nil
	}
	if err != nil {
		return err
	}
	if lic.SubscriptionStatus == models.SubscriptionStatusCanceled && lic.ExpiresAt.Equal(endedAt) {
		return nil
	}

	licStatus := lic.Status
	if licStatus != models.LicenseStatusRevoked && !endedAt.After(now) {
		licStatus = models.LicenseStatusExpired
	}
	return s.repo.UpdateLicenseFields(lic.LicenseKey, map[string]interface{}{
		"status":                          licStatus,
		"subscription_status":             models.SubscriptionStatusCanceled,
		"subscription_current_period_end": endedAt,
		"expires_at":                      endedAt,
	})
}

// HandleInvoicePaymentFailed flags the linked license past_due. It never
// revokes or shortens coverage; the subscription-updated flow corrects state
// once the provider resolves the invoice.
func (s *Service) HandleInvoicePaymentFailed(ctx context.Context, inv *InvoiceResource) error {
	_ = ctx
	ref := strings.TrimSpace(inv.Subscription)
	if ref == "" {
		log.Printf("billing: invoice %s failed without subscription reference, dropping", inv.ID)
		return nil
	}

	lic, err := s.repo.GetLicenseBySubscriptionRef(ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("billing: failed invoice for unknown subscription %s, dropping", ref)
		return nil
	}
	if err != nil {
		return err
	}

	if row, err := s.repo.GetSubscriptionByRef(ref); err == nil && row.Status != models.SubscriptionStatusPastDue {
		row.Status = models.SubscriptionStatusPastDue
		if err := s.repo.UpsertSubscription(row); err != nil {
			return err
		}
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if lic.SubscriptionStatus == models.SubscriptionStatusPastDue {
		return nil
	}
	return s.repo.UpdateLicenseFields(lic.LicenseKey, map[string]interface{}{
		"subscription_status": models.SubscriptionStatusPastDue,
	})
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional
// error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func (s *Service) resolveUpgradeSource(meta map[string]string, email string, now time.Time) (*models.License, error) {
	if key := strings.TrimSpace(meta[MetaUpgradeLicenseKey]); key != "" {
		lic, err := s.repo.GetLicenseByKey(key)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if lic != nil && lic.IsUsable(now) && !plans.IsLifetime(lic.Plan) && !plans.IsYearly(lic.Plan) {
			return lic, nil
		}
		log.Printf("billing: upgrade source license %s missing or ineligible, falling back to email lookup", key)
	}
	if email == "" {
		return nil, nil
	}
	lic, err := s.repo.FindUpgradableLicenseByEmail(email, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lic, nil
}

// resolveOrCreateLicense looks the license up by subscription reference,
// then by the license key in metadata, and creates it when the subscription
// is actionable and the metadata allows. A duplicate-key error on the insert
// means the checkout-completed handler or a concurrent delivery won the
// race; the loser re-reads and proceeds as an update without delivering.
func (s *Service) resolveOrCreateLicense(sub *SubscriptionResource, ref, plan string, actionable bool, now time.Time) (*models.License, bool, error) {
	lic, err := s.repo.GetLicenseBySubscriptionRef(ref)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if lic != nil {
		return lic, false, nil
	}

	key := strings.TrimSpace(sub.Metadata[MetaLicenseKey])
	if key != "" {
		lic, err = s.repo.GetLicenseByKey(key)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		if lic != nil {
			return lic, false, nil
		}
	}

	if !actionable {
		log.Printf("billing: subscription %s in status %q has no license to update, dropping", ref, sub.Status)
		return nil, false, nil
	}
	email := strings.TrimSpace(sub.Metadata[MetaEmail])
	if key == "" || email == "" || plan == "" {
		log.Printf("billing: subscription %s lacks metadata to create a license, dropping", ref)
		return nil, false, nil
	}

	lic = &models.License{
		LicenseKey:            key,
		Email:                 email,
		FullName:              strings.TrimSpace(sub.Metadata[MetaFullName]),
		Plan:                  plan,
		Status:                models.LicenseStatusActive,
		ExpiresAt:             now.Add(plans.MonthlyTerm),
		PaymentType:           models.PaymentTypeSubscription,
		SubscriptionReference: &ref,
	}
	if err := s.repo.CreateLicense(lic); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, err
		}
		lic, err = s.repo.GetLicenseBySubscriptionRef(ref)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			lic, err = s.repo.GetLicenseByKey(key)
		}
		if err != nil {
			return nil, false, err
		}
		return lic, false, nil
	}
	return lic, true, nil
}

func (s *Service) licenseNeedsWrite(lic *models.License, ref, plan string, sub *SubscriptionResource, end time.Time, upgradedFrom, licStatus string) bool {
	if lic.SubscriptionReference == nil || *lic.SubscriptionReference != ref {
		return true
	}
	return lic.Status != licStatus ||
		plans.Normalize(lic.Plan) != plan ||
		lic.UpgradedFrom != upgradedFrom ||
		lic.SubscriptionStatus != sub.Status ||
		lic.CancelAtPeriodEnd != sub.CancelAtPeriodEnd ||
		!lic.ExpiresAt.Equal(end)
}

func (s *Service) upsertSubscriptionRow(sub *SubscriptionResource, ref, plan, licenseKey string, start, end time.Time, actionable bool, raw string) error {
	row, err := s.repo.GetSubscriptionByRef(ref)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if row == nil {
		if !actionable {
			// Never create a mirror row for a subscription that no longer
			// grants access.
			return nil
		}
		row = &models.Subscription{SubscriptionReference: ref}
	}
	row.CustomerReference = strings.TrimSpace(sub.Customer)
	row.LicenseKey = licenseKey
	row.PlanID = plan
	row.Status = sub.Status
	row.CurrentPeriodStart = &start
	row.CurrentPeriodEnd = &end
	row.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	row.CanceledAt = unixTime(sub.CanceledAt)
	row.EndedAt = unixTime(sub.EndedAt)
	row.RawPayloadJSON = raw
	return s.repo.UpsertSubscription(row)
}

func (s *Service) deliver(ctx context.Context, lic *models.License, amount decimal.Decimal, currency, orderRef string) {
	if s.fulfill == nil {
		return
	}
	d := fulfillment.Delivery{
		Email:          lic.Email,
		FullName:       lic.FullName,
		LicenseKey:     lic.LicenseKey,
		Plan:           lic.Plan,
		Amount:         amount,
		Currency:       currency,
		OrderReference: orderRef,
	}
	if err := s.fulfill.Deliver(ctx, d); err != nil {
		// Delivery failures are operator anomalies, not reconciliation
		// failures; the state transition already committed and a handler
		// retry would not re-fire the gate.
		log.Printf("billing: fulfillment for license %s failed: %v", lic.LicenseKey, err)
	}
}
