package fulfillment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Delivery carries everything needed to hand a purchased license to the
// customer.
type Delivery struct {
	Email          string
	FullName       string
	LicenseKey     string
	Plan           string
	Amount         decimal.Decimal
	Currency       string
	OrderReference string
}

// Fulfillment delivers a usable license to the customer after a successful
// payment. The reconciler calls Deliver at most once per state transition;
// implementations own their own delivery idempotency (e.g. not re-sending a
// physical email when a crashed invocation is retried).
type Fulfillment interface {
	Deliver(ctx context.Context, d Delivery) error
}
