package plans

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "starter_monthly", want: "starter_monthly"},
		{in: "starter_yearly", want: "starter_yearly"},
		{in: "pro_monthly", want: "pro_monthly"},
		{in: "pro_yearly", want: "pro_yearly"},
		{in: "lifetime", want: "lifetime"},
		{in: "pro", want: "pro_monthly"},
		{in: "starter", want: "starter_monthly"},
		{in: "PRO", want: "pro_monthly"},
		{in: " Lifetime ", want: "lifetime"},
		{in: "unknown_plan", want: "unknown_plan"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, plan := range []string{"starter", "pro", "starter_monthly", "starter_yearly", "pro_monthly", "pro_yearly", "lifetime", "garbage"} {
		once := Normalize(plan)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize(Normalize(%q)) = %q, want %q", plan, twice, once)
		}
	}
}

func TestRankOrdering(t *testing.T) {
	ordered := []Plan{PlanStarterMonthly, PlanStarterYearly, PlanProMonthly, PlanProYearly, PlanLifetime}
	for i := 1; i < len(ordered); i++ {
		if Rank(string(ordered[i-1])) >= Rank(string(ordered[i])) {
			t.Fatalf("expected %s to outrank %s", ordered[i], ordered[i-1])
		}
	}
	if Rank("unknown") != 0 {
		t.Fatalf("expected unknown plan to rank 0, got %d", Rank("unknown"))
	}
}

func TestTerm(t *testing.T) {
	tests := []struct {
		plan string
		want time.Duration
	}{
		{plan: string(PlanLifetime), want: LifetimeTerm},
		{plan: string(PlanStarterYearly), want: YearlyTerm},
		{plan: string(PlanProYearly), want: YearlyTerm},
		{plan: string(PlanStarterMonthly), want: MonthlyTerm},
		{plan: string(PlanProMonthly), want: MonthlyTerm},
		{plan: "unknown", want: MonthlyTerm},
	}

	for _, tt := range tests {
		if got := Term(tt.plan); got != tt.want {
			t.Fatalf("Term(%q) = %v, want %v", tt.plan, got, tt.want)
		}
	}
}

func TestExpiryFrom(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if got := ExpiryFrom(now, string(PlanLifetime)); !got.Equal(now.Add(LifetimeTerm)) {
		t.Fatalf("lifetime expiry = %v, want %v", got, now.Add(LifetimeTerm))
	}
	if got := ExpiryFrom(now, string(PlanProYearly)); !got.Equal(now.Add(YearlyTerm)) {
		t.Fatalf("yearly expiry = %v, want %v", got, now.Add(YearlyTerm))
	}
	if got := ExpiryFrom(now, string(PlanStarterMonthly)); !got.Equal(now.Add(MonthlyTerm)) {
		t.Fatalf("monthly expiry = %v, want %v", got, now.Add(MonthlyTerm))
	}
}

func TestIsYearlyAndLifetime(t *testing.T) {
	if !IsYearly(string(PlanStarterYearly)) || !IsYearly(string(PlanProYearly)) {
		t.Fatalf("expected yearly plans to report yearly")
	}
	if IsYearly(string(PlanStarterMonthly)) || IsYearly(string(PlanLifetime)) {
		t.Fatalf("expected non-yearly plans to report non-yearly")
	}
	if !IsLifetime(string(PlanLifetime)) || IsLifetime(string(PlanProYearly)) {
		t.Fatalf("unexpected lifetime classification")
	}
}
