package billing

import (
	"time"

	"github.com/tradeforgehq/tradeforge/app/models"
	"github.com/tradeforgehq/tradeforge/internal/pkg/plans"
)

// derivePeriod resolves the current period bounds of a subscription,
// tolerating the period fields the provider occasionally omits.
//
// Start: provider period start, else provider start timestamp, else now.
// End: provider period end when present. Otherwise, for active/trialing
// subscriptions only, the trial-end timestamp or an interval projection from
// the start (+1 year for yearly, +30 days otherwise). For canceled/unpaid
// subscriptions missing an end timestamp the period ends now; the fallback
// must never grant extra paid-for time to a lapsed subscription.
func derivePeriod(sub *SubscriptionResource, plan string, now time.Time) (time.Time, time.Time) {
	start := now
	if t := unixTime(sub.CurrentPeriodStart); t != nil {
		start = *t
	} else if t := unixTime(sub.StartDate); t != nil {
		start = *t
	}

	if t := unixTime(sub.CurrentPeriodEnd); t != nil {
		return start, *t
	}

	if !models.IsActionableStatus(sub.Status) {
		if t := unixTime(sub.EndedAt); t != nil {
			return start, *t
		}
		return start, now
	}

	if t := unixTime(sub.TrialEnd); t != nil {
		return start, *t
	}

	if sub.Interval() == "year" || plans.IsYearly(plan) {
		return start, start.Add(plans.YearlyTerm)
	}
	return start, start.Add(plans.MonthlyTerm)
}
