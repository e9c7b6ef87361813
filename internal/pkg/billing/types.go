package billing

import (
	"encoding/json"
	"strings"
	"time"
)

// Webhook event types handled by the reconciler.
const (
	EventPaymentSucceeded     = "payment_intent.succeeded"
	EventPaymentFailed        = "payment_intent.payment_failed"
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// Metadata keys the shop writes into provider objects at checkout time.
const (
	MetaLicenseKey        = "license_key"
	MetaEmail             = "email"
	MetaFullName          = "full_name"
	MetaPlan              = "plan"
	MetaOrderReference    = "order_reference"
	MetaIsUpgrade         = "is_upgrade"
	MetaUpgradeLicenseKey = "upgrade_license_key"
)

// Event is the normalized inbound webhook envelope: a type tag plus the raw
// resource payload, decoded further by the matching handler.
type Event struct {
	ID     string
	Type   string
	Object json.RawMessage
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a raw webhook body into the normalized envelope.
func ParseEvent(payload []byte) (*Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	return &Event{
		ID:     strings.TrimSpace(env.ID),
		Type:   strings.TrimSpace(env.Type),
		Object: env.Data.Object,
	}, nil
}

// CheckoutSession is a partial view of the provider's checkout session
// object, restricted to the fields the reconciler reads.
type CheckoutSession struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Customer        string `json:"customer"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails *struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer_details"`
	Subscription  string            `json:"subscription"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// Email returns the best available customer email for the session.
func (cs *CheckoutSession) Email() string {
	if cs.CustomerDetails != nil && strings.TrimSpace(cs.CustomerDetails.Email) != "" {
		return strings.TrimSpace(cs.CustomerDetails.Email)
	}
	if strings.TrimSpace(cs.CustomerEmail) != "" {
		return strings.TrimSpace(cs.CustomerEmail)
	}
	return strings.TrimSpace(cs.Metadata[MetaEmail])
}

// FullName returns the customer name if the provider supplied one.
func (cs *CheckoutSession) FullName() string {
	if cs.CustomerDetails != nil && strings.TrimSpace(cs.CustomerDetails.Name) != "" {
		return strings.TrimSpace(cs.CustomerDetails.Name)
	}
	return strings.TrimSpace(cs.Metadata[MetaFullName])
}

// SubscriptionResource is a partial view of the provider's subscription
// object. Every period-related field is optional; the upstream resource
// occasionally omits them, so the fallback fields are named here explicitly
// instead of being dug out of an untyped map.
type SubscriptionResource struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart *int64 `json:"current_period_start"`
	CurrentPeriodEnd   *int64 `json:"current_period_end"`
	StartDate          *int64 `json:"start_date"`
	TrialEnd           *int64 `json:"trial_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CanceledAt         *int64 `json:"canceled_at"`
	EndedAt            *int64 `json:"ended_at"`
	Items              struct {
		Data []struct {
			Price struct {
				ID        string `json:"id"`
				Recurring *struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// PriceRef returns the price id of the subscription's first item, which is
// the provider's actual billed price regardless of what metadata claims.
func (s *SubscriptionResource) PriceRef() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return strings.TrimSpace(s.Items.Data[0].Price.ID)
}

// Interval returns the billing interval of the first item ("month", "year"),
// or "" when the provider omitted it.
func (s *SubscriptionResource) Interval() string {
	if len(s.Items.Data) == 0 || s.Items.Data[0].Price.Recurring == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s.Items.Data[0].Price.Recurring.Interval))
}

// PaymentIntentResource is a partial view of the provider's payment intent
// object for one-time purchases.
type PaymentIntentResource struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}

// InvoiceResource is a partial view of the provider's invoice object.
type InvoiceResource struct {
	ID            string `json:"id"`
	Subscription  string `json:"subscription"`
	CustomerEmail string `json:"customer_email"`
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

func unixTime(ts *int64) *time.Time {
	if ts == nil || *ts == 0 {
		return nil
	}
	t := time.Unix(*ts, 0).UTC()
	return &t
}
