package billing

import (
	"strings"

	"github.com/tradeforgehq/tradeforge/internal/pkg/env"
	"github.com/tradeforgehq/tradeforge/internal/pkg/plans"
)

// Catalog maps provider price identifiers to internal plan ids. It is
// immutable after construction and injected into the reconciler, so tests can
// substitute their own mapping.
type Catalog struct {
	prices map[string]string
}

// NewCatalog builds a catalog from a price-ref -> plan map. Plan values are
// normalized; empty keys are dropped.
func NewCatalog(prices map[string]string) *Catalog {
	m := make(map[string]string, len(prices))
	for ref, plan := range prices {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		m[ref] = plans.Normalize(plan)
	}
	return &Catalog{prices: m}
}

// NewCatalogFromEnv builds the catalog from STRIPE_PRICE_* environment
// variables.
func NewCatalogFromEnv() *Catalog {
	return NewCatalog(map[string]string{
		env.GetEnv("STRIPE_PRICE_STARTER_MONTHLY", ""): string(plans.PlanStarterMonthly),
		env.GetEnv("STRIPE_PRICE_STARTER_YEARLY", ""):  string(plans.PlanStarterYearly),
		env.GetEnv("STRIPE_PRICE_PRO_MONTHLY", ""):     string(plans.PlanProMonthly),
		env.GetEnv("STRIPE_PRICE_PRO_YEARLY", ""):      string(plans.PlanProYearly),
		env.GetEnv("STRIPE_PRICE_LIFETIME", ""):        string(plans.PlanLifetime),
	})
}

// ResolvePrice maps a provider price identifier to an internal plan id.
// The second return is false for unrecognized prices; callers fall back to
// stored metadata and never fabricate a plan.
func (c *Catalog) ResolvePrice(priceRef string) (string, bool) {
	plan, ok := c.prices[strings.TrimSpace(priceRef)]
	return plan, ok
}

// PriceFor returns the provider price identifier configured for a plan.
func (c *Catalog) PriceFor(plan string) (string, bool) {
	plan = plans.Normalize(plan)
	for ref, p := range c.prices {
		if p == plan {
			return ref, true
		}
	}
	return "", false
}
