// Package notify defines the notification channel interface and
// implementations for alert delivery.
package notify

import (
	"context"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

// Notifier is implemented by every notification channel the dispatcher
// fans out to. Implementations must treat send failures as their own
// concern: an error return is logged by the dispatcher and the remaining
// channels still run.
type Notifier interface {
	// NotifyStock announces that an item is worth alerting about. The
	// cookiesAmount is the product's accumulated alert-credit count.
	// The returned string, when non-empty, is a channel-specific message
	// reference usable for follow-ups.
	NotifyStock(ctx context.Context, it *domain.Item, cookiesAmount int) (string, error)

	// NotifyPriceChange announces that an item's price moved away from
	// lastKnownPrice.
	NotifyPriceChange(ctx context.Context, it *domain.Item, lastKnownPrice float64) error

	// NotifyAdmin sends an operational message to the admin channel.
	NotifyAdmin(ctx context.Context, message string) error

	// NotifyRateLimit announces that the upstream store throttled us.
	NotifyRateLimit(ctx context.Context) error

	// NotifyCookies announces the credit balance for a product.
	NotifyCookies(ctx context.Context, it *domain.Item, amount int) error

	// Shutdown releases channel resources. Must be idempotent.
	Shutdown()
}
