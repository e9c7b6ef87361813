package billing

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/tradeforgehq/tradeforge/app/models"
	"github.com/tradeforgehq/tradeforge/internal/pkg/plans"
)

func unixPtr(t time.Time) *int64 {
	ts := t.Unix()
	return &ts
}

func subWithInterval(t *testing.T, status, interval string) *SubscriptionResource {
	t.Helper()
	raw := fmt.Sprintf(`{
		"id": "sub_1",
		"status": %q,
		"items": {"data": [{"price": {"id": "price_x", "recurring": {"interval": %q}}}]}
	}`, status, interval)
	var sub SubscriptionResource
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		t.Fatalf("unmarshal subscription: %v", err)
	}
	return &sub
}

func TestDerivePeriodUsesProviderFields(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	periodStart := now.Add(-10 * 24 * time.Hour)
	periodEnd := now.Add(20 * 24 * time.Hour)

	sub := subWithInterval(t, models.SubscriptionStatusActive, "month")
	sub.CurrentPeriodStart = unixPtr(periodStart)
	sub.CurrentPeriodEnd = unixPtr(periodEnd)

	start, end := derivePeriod(sub, string(plans.PlanProMonthly), now)
	if !start.Equal(periodStart.UTC()) {
		t.Fatalf("start = %v, want %v", start, periodStart)
	}
	if !end.Equal(periodEnd.UTC()) {
		t.Fatalf("end = %v, want %v", end, periodEnd)
	}
}

func TestDerivePeriodStartFallsBackToStartDate(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	startDate := now.Add(-5 * 24 * time.Hour)

	sub := subWithInterval(t, models.SubscriptionStatusActive, "month")
	sub.StartDate = unixPtr(startDate)

	start, _ := derivePeriod(sub, string(plans.PlanProMonthly), now)
	if !start.Equal(startDate.UTC()) {
		t.Fatalf("start = %v, want start_date fallback %v", start, startDate)
	}
}

func TestDerivePeriodEndProjectsInterval(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	start := now.Add(-2 * 24 * time.Hour)

	sub := subWithInterval(t, models.SubscriptionStatusActive, "month")
	sub.CurrentPeriodStart = unixPtr(start)
	_, end := derivePeriod(sub, string(plans.PlanProMonthly), now)
	if want := start.UTC().Add(plans.MonthlyTerm); !end.Equal(want) {
		t.Fatalf("monthly projection end = %v, want %v", end, want)
	}

	subYear := subWithInterval(t, models.SubscriptionStatusActive, "year")
	subYear.CurrentPeriodStart = unixPtr(start)
	_, end = derivePeriod(subYear, string(plans.PlanProYearly), now)
	if want := start.UTC().Add(plans.YearlyTerm); !end.Equal(want) {
		t.Fatalf("yearly projection end = %v, want %v", end, want)
	}
}

func TestDerivePeriodEndPrefersTrialEnd(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	trialEnd := now.Add(14 * 24 * time.Hour)

	sub := subWithInterval(t, models.SubscriptionStatusTrialing, "month")
	sub.TrialEnd = unixPtr(trialEnd)

	_, end := derivePeriod(sub, string(plans.PlanProMonthly), now)
	if !end.Equal(trialEnd.UTC()) {
		t.Fatalf("end = %v, want trial end %v", end, trialEnd)
	}
}

func TestDerivePeriodNeverExtendsLapsedSubscription(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	start := now.Add(-40 * 24 * time.Hour)
	endedAt := now.Add(-10 * 24 * time.Hour)

	sub := subWithInterval(t, models.SubscriptionStatusCanceled, "month")
	sub.CurrentPeriodStart = unixPtr(start)
	sub.EndedAt = unixPtr(endedAt)

	_, end := derivePeriod(sub, string(plans.PlanProMonthly), now)
	if !end.Equal(endedAt.UTC()) {
		t.Fatalf("end = %v, want ended_at %v", end, endedAt)
	}

	// Without ended_at the period closes immediately instead of projecting.
	sub.EndedAt = nil
	_, end = derivePeriod(sub, string(plans.PlanProMonthly), now)
	if !end.Equal(now) {
		t.Fatalf("end = %v, want now %v for lapsed subscription", end, now)
	}
}
