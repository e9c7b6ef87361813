package plans

import (
	"strings"
	"time"
)

type Plan string

const (
	PlanStarterMonthly Plan = "starter_monthly"
	PlanStarterYearly  Plan = "starter_yearly"
	PlanProMonthly     Plan = "pro_monthly"
	PlanProYearly      Plan = "pro_yearly"
	PlanLifetime       Plan = "lifetime"
)

// Expiry windows by plan family.
const (
	LifetimeTerm = 100 * 365 * 24 * time.Hour
	YearlyTerm   = 365 * 24 * time.Hour
	MonthlyTerm  = 30 * 24 * time.Hour
)

// Normalize canonicalizes a plan identifier, collapsing legacy aliases that
// predate the monthly/yearly split. Idempotent: Normalize(Normalize(x)) ==
// Normalize(x).
func Normalize(plan string) string {
	p := strings.ToLower(strings.TrimSpace(plan))
	switch p {
	case "pro":
		return string(PlanProMonthly)
	case "starter":
		return string(PlanStarterMonthly)
	case string(PlanStarterMonthly), string(PlanStarterYearly),
		string(PlanProMonthly), string(PlanProYearly), string(PlanLifetime):
		return p
	default:
		return p
	}
}

// Rank orders plans by value. Used only for display/audit of upgrades, never
// for authorization decisions.
func Rank(plan string) int {
	switch Normalize(plan) {
	case string(PlanStarterMonthly):
		return 1
	case string(PlanStarterYearly):
		return 2
	case string(PlanProMonthly):
		return 3
	case string(PlanProYearly):
		return 4
	case string(PlanLifetime):
		return 5
	default:
		return 0
	}
}

// IsYearly reports whether a plan bills on a yearly interval.
func IsYearly(plan string) bool {
	return strings.HasSuffix(Normalize(plan), "_yearly")
}

// IsLifetime reports whether a plan is the one-time lifetime purchase.
func IsLifetime(plan string) bool {
	return Normalize(plan) == string(PlanLifetime)
}

// Term returns the expiry window granted by a plan family: lifetime plans
// get 100 years, yearly plans one year, everything else 30 days.
func Term(plan string) time.Duration {
	switch {
	case IsLifetime(plan):
		return LifetimeTerm
	case IsYearly(plan):
		return YearlyTerm
	default:
		return MonthlyTerm
	}
}

// ExpiryFrom computes the expiry instant for a plan purchased at t.
func ExpiryFrom(t time.Time, plan string) time.Time {
	return t.Add(Term(plan))
}
