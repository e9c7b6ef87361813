package billing

import (
	"testing"

	"github.com/tradeforgehq/tradeforge/internal/pkg/plans"
)

func TestCatalogResolvePrice(t *testing.T) {
	cat := NewCatalog(map[string]string{
		"price_starter_m": "starter_monthly",
		"price_pro_m":     "pro",
		"price_life":      "LIFETIME",
		"":                "pro_yearly",
	})

	tests := []struct {
		ref      string
		wantPlan string
		wantOK   bool
	}{
		{ref: "price_starter_m", wantPlan: "starter_monthly", wantOK: true},
		{ref: "price_pro_m", wantPlan: "pro_monthly", wantOK: true},
		{ref: "price_life", wantPlan: "lifetime", wantOK: true},
		{ref: " price_life ", wantPlan: "lifetime", wantOK: true},
		{ref: "price_unknown", wantPlan: "", wantOK: false},
		{ref: "", wantPlan: "", wantOK: false},
	}

	for _, tt := range tests {
		plan, ok := cat.ResolvePrice(tt.ref)
		if plan != tt.wantPlan || ok != tt.wantOK {
			t.Fatalf("ResolvePrice(%q) = (%q, %v), want (%q, %v)", tt.ref, plan, ok, tt.wantPlan, tt.wantOK)
		}
	}
}

func TestCatalogPriceFor(t *testing.T) {
	cat := NewCatalog(map[string]string{
		"price_pro_m":  string(plans.PlanProMonthly),
		"price_pro_y":  string(plans.PlanProYearly),
		"price_life_1": string(plans.PlanLifetime),
	})

	if ref, ok := cat.PriceFor("pro"); !ok || ref != "price_pro_m" {
		t.Fatalf("PriceFor(pro) = (%q, %v), want (price_pro_m, true)", ref, ok)
	}
	if ref, ok := cat.PriceFor(string(plans.PlanProYearly)); !ok || ref != "price_pro_y" {
		t.Fatalf("PriceFor(pro_yearly) = (%q, %v)", ref, ok)
	}
	if _, ok := cat.PriceFor("starter_monthly"); ok {
		t.Fatalf("expected unconfigured plan to miss")
	}
}
