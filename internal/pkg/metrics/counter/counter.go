package counter

import (
	"context"

	"github.com/tradeforgehq/tradeforge/internal/pkg/cache"
)

const (
	webhookEventsKey = "billing:counters:webhooks"
	salesKey         = "billing:counters:sales"
	revenueCentsKey  = "billing:counters:revenue_cents"
)

// AddWebhookEvent increments the received counter for a webhook event type in Redis
func AddWebhookEvent(eventType string) error {
	if eventType == "" {
		eventType = "unknown"
	}
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookEventsKey, eventType, 1).Err()
}

// AddSale increments the delivered-license counter for a plan in Redis
func AddSale(plan string) error {
	if plan == "" {
		plan = "unknown"
	}
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, salesKey, plan, 1).Err()
}

// AddRevenue adds an amount in cents to the running revenue counter for a plan
func AddRevenue(plan string, cents int64) error {
	if plan == "" || cents <= 0 {
		return nil
	}
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, revenueCentsKey, plan, cents).Err()
}

// Snapshot holds the current counter state for the admin stats endpoint.
type Snapshot struct {
	WebhookEvents map[string]string `json:"webhook_events"`
	Sales         map[string]string `json:"sales"`
	RevenueCents  map[string]string `json:"revenue_cents"`
}

// Read returns the current counters. Counters live only in Redis; a cache
// flush resets them, which is acceptable for operational dashboards.
func Read() (*Snapshot, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	webhooks, err := rdb.HGetAll(ctx, webhookEventsKey).Result()
	if err != nil {
		return nil, err
	}
	sales, err := rdb.HGetAll(ctx, salesKey).Result()
	if err != nil {
		return nil, err
	}
	revenue, err := rdb.HGetAll(ctx, revenueCentsKey).Result()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		WebhookEvents: webhooks,
		Sales:         sales,
		RevenueCents:  revenue,
	}, nil
}
