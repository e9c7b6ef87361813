package fulfillment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradeforgehq/tradeforge/internal/pkg/cache"
	"github.com/tradeforgehq/tradeforge/internal/pkg/mail"
	"github.com/tradeforgehq/tradeforge/internal/pkg/metrics/counter"
)

const deliveryDedupTTL = 30 * 24 * time.Hour

// MailFulfillment delivers license keys by email. The reconciler calls it at
// most once per state transition; the cache claim below is this
// implementation's own idempotency, so a retried invocation cannot send a
// second email for the same license.
type MailFulfillment struct {
	Notifier *TelegramNotifier
}

// NewMailFulfillment wires the default mail delivery with an optional
// operator notifier.
func NewMailFulfillment(notifier *TelegramNotifier) *MailFulfillment {
	return &MailFulfillment{Notifier: notifier}
}

func (m *MailFulfillment) Deliver(ctx context.Context, d Delivery) error {
	claimKey := "fulfillment:delivered:" + d.LicenseKey
	claimed, err := cache.SetNX(claimKey, 1, deliveryDedupTTL)
	if err != nil {
		// A cache outage must not block license delivery; risk a duplicate
		// email instead of sending none.
		log.Printf("fulfillment: dedup claim for %s failed: %v", d.LicenseKey, err)
		claimed = true
	}
	if !claimed {
		log.Printf("fulfillment: license %s already delivered, skipping", d.LicenseKey)
		return nil
	}

	name := d.FullName
	if name == "" {
		name = d.Email
	}
	subject := fmt.Sprintf("Your TradeForge license (%s)", d.Plan)
	body := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>thanks for your purchase! Your license key:</p>"+
			"<p><strong>%s</strong></p>"+
			"<p>Plan: %s</p>"+
			"<p>Enter the key in the TradeForge desktop app under Settings &gt; License.</p>",
		name, d.LicenseKey, d.Plan,
	)

	if err := mail.SendMail(d.Email, subject, body); err != nil {
		// Release the claim so a later manual or retried delivery can send.
		if delErr := cache.Delete(claimKey); delErr != nil {
			log.Printf("fulfillment: releasing claim for %s failed: %v", d.LicenseKey, delErr)
		}
		return err
	}

	if err := counter.AddSale(d.Plan); err != nil {
		log.Printf("fulfillment: sale counter for %s failed: %v", d.LicenseKey, err)
	}
	if cents := d.Amount.Mul(decimal.NewFromInt(100)).IntPart(); cents > 0 {
		if err := counter.AddRevenue(d.Plan, cents); err != nil {
			log.Printf("fulfillment: revenue counter for %s failed: %v", d.LicenseKey, err)
		}
	}

	if m.Notifier != nil && m.Notifier.Enabled() {
		if err := m.Notifier.NotifySale(ctx, d); err != nil {
			log.Printf("fulfillment: telegram notification for %s failed: %v", d.LicenseKey, err)
		}
	}
	return nil
}
