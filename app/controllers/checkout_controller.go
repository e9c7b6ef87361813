package controllers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tradeforgehq/tradeforge/app/models"
	"github.com/tradeforgehq/tradeforge/internal/pkg/billing"
	"github.com/tradeforgehq/tradeforge/internal/pkg/database"
	"github.com/tradeforgehq/tradeforge/internal/pkg/env"
	"github.com/tradeforgehq/tradeforge/internal/pkg/plans"
)

var validate = validator.New()

// Display prices by plan, decimal currency units.
var planPrices = map[string]string{
	string(plans.PlanStarterMonthly): "19.00",
	string(plans.PlanStarterYearly):  "190.00",
	string(plans.PlanProMonthly):     "39.00",
	string(plans.PlanProYearly):      "390.00",
	string(plans.PlanLifetime):       "990.00",
}

// CheckoutRequest is the inbound body for starting a purchase.
type CheckoutRequest struct {
	Plan              string `json:"plan" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	FullName          string `json:"full_name" validate:"omitempty,max=200"`
	PaymentType       string `json:"payment_type" validate:"omitempty,oneof=one_time subscription"`
	UpgradeLicenseKey string `json:"upgrade_license_key" validate:"omitempty,max=64"`
}

// HandleCreateCheckout creates the pending order record and a provider
// checkout session, returning the hosted payment URL. The metadata written
// here is what the webhook events carry back to the reconciler.
func HandleCreateCheckout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	plan := plans.Normalize(req.Plan)
	price, ok := planPrices[plan]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_plan"})
	}

	catalog := billing.NewCatalogFromEnv()
	priceRef, ok := catalog.PriceFor(plan)
	if !ok {
		log.Printf("checkout: no provider price configured for plan %s", plan)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "plan_not_purchasable"})
	}

	paymentType := req.PaymentType
	if plans.IsLifetime(plan) || req.UpgradeLicenseKey != "" {
		paymentType = models.PaymentTypeOneTime
	}
	if paymentType == "" {
		paymentType = models.PaymentTypeSubscription
	}

	amount, err := decimal.NewFromString(price)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "price_config_invalid"})
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	orderRef := "ord_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	metadata := map[string]string{
		billing.MetaOrderReference: orderRef,
		billing.MetaEmail:          email,
		billing.MetaPlan:           plan,
	}
	if req.FullName != "" {
		metadata[billing.MetaFullName] = strings.TrimSpace(req.FullName)
	}

	mode := "payment"
	if paymentType == models.PaymentTypeSubscription {
		mode = "subscription"
		// The subscription handlers create the license from this key; it is
		// minted before payment so both creation paths race on the same row.
		metadata[billing.MetaLicenseKey] = billing.NewLicenseKey()
	} else if req.UpgradeLicenseKey != "" {
		metadata[billing.MetaIsUpgrade] = "true"
		metadata[billing.MetaUpgradeLicenseKey] = strings.TrimSpace(req.UpgradeLicenseKey)
	}

	order := &models.Order{
		PaymentReference: orderRef,
		Email:            email,
		FullName:         strings.TrimSpace(req.FullName),
		Plan:             plan,
		Amount:           amount,
		Currency:         "usd",
		DisplayPrice:     fmt.Sprintf("$%s", price),
		Status:           models.OrderStatusPending,
	}
	repo := billing.NewRepository(database.GetDB())
	if err := repo.CreateOrder(order); err != nil {
		log.Printf("checkout: creating order %s failed: %v", orderRef, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_create_failed"})
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	client := billing.NewStripeClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := client.CreateCheckoutSession(ctx, billing.CheckoutSessionParams{
		Mode:          mode,
		PriceRef:      priceRef,
		CustomerEmail: email,
		SuccessURL:    base + "/checkout/success?order=" + orderRef,
		CancelURL:     base + "/checkout/cancel?order=" + orderRef,
		Metadata:      metadata,
	})
	if err != nil {
		log.Printf("checkout: creating provider session for %s failed: %v", orderRef, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_session_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"order_reference": orderRef,
		"checkout_url":    session.URL,
	})
}
