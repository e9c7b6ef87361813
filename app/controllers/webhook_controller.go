package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tradeforgehq/tradeforge/app/models"
	"github.com/tradeforgehq/tradeforge/internal/pkg/billing"
	"github.com/tradeforgehq/tradeforge/internal/pkg/cache"
	"github.com/tradeforgehq/tradeforge/internal/pkg/database"
	"github.com/tradeforgehq/tradeforge/internal/pkg/env"
	"github.com/tradeforgehq/tradeforge/internal/pkg/fulfillment"
	"github.com/tradeforgehq/tradeforge/internal/pkg/metrics/counter"
)

const webhookSeenTTL = 24 * time.Hour

// newReconciler wires the billing service with its production collaborators.
func newReconciler() *billing.Service {
	return billing.NewServiceFromDB(
		database.GetDB(),
		billing.NewCatalogFromEnv(),
		fulfillment.NewMailFulfillment(fulfillment.NewTelegramNotifierFromEnv()),
		billing.NewStripeClientFromEnv(),
	)
}

// HandleStripeWebhook authenticates an inbound provider event, records it
// idempotently and routes it to the reconciler. Processing errors return a
// non-2xx status so the provider redelivers; the handlers are safe to
// re-invoke.
func HandleStripeWebhook(c *fiber.Ctx) error {
	return handleStripeWebhook(c, newReconciler())
}

func handleStripeWebhook(c *fiber.Ctx, svc *billing.Service) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	signatureValid := billing.VerifyStripeWebhookSignature(rawBody, signature, secret, time.Now())

	ev, parseErr := billing.ParseEvent(rawBody)
	eventID, eventType := "", ""
	if parseErr == nil {
		eventID, eventType = ev.ID, ev.Type
	}

	// Cheap replay short-circuit, gated on the signature so unauthenticated
	// traffic carrying a known event id is never acknowledged. The unique
	// index on the event ledger is the authoritative dedup.
	if signatureValid && eventID != "" {
		if _, err := cache.Get("webhook:seen:" + eventID); err == nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if created {
		if err := counter.AddWebhookEvent(eventType); err != nil {
			log.Printf("webhook: counting event %s failed: %v", eventID, err)
		}
	}
	if !signatureValid {
		// The row is kept for audit but only marked failed on first
		// sight; an unsigned replay must not taint a clean ledger entry.
		if created {
			_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("invalid webhook signature"))
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}
	if !created {
		// Re-process only if the first delivery never finished cleanly;
		// the handlers are idempotent, acknowledging without them is not.
		if stored.ProcessedAt != nil && stored.ProcessingError == "" {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
		}
	}
	if parseErr != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, parseErr)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	procErr := svc.HandleEvent(ctx, ev)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, procErr)
	if procErr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_processing_failed"})
	}

	if eventID != "" {
		if err := cache.Set("webhook:seen:"+eventID, 1, webhookSeenTTL); err != nil {
			log.Printf("webhook: caching seen marker for %s failed: %v", eventID, err)
		}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
