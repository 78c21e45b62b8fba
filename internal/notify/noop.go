package notify

import (
	"context"
	"log/slog"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

// NoOpNotifier implements Notifier by logging discarded alerts. It is
// used when no notification backend is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards alerts with a log
// message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// NotifyStock logs and discards a stock alert.
func (n *NoOpNotifier) NotifyStock(_ context.Context, it *domain.Item, cookiesAmount int) (string, error) {
	if it == nil || it.Product == nil {
		return "", nil
	}
	n.log.Debug("stock alert discarded (no backend configured)",
		"product", it.Product.ID,
		"title", it.Product.Title,
		"cookies", cookiesAmount,
	)
	return "", nil
}

// NotifyPriceChange logs and discards a price-change alert.
func (n *NoOpNotifier) NotifyPriceChange(_ context.Context, it *domain.Item, lastKnownPrice float64) error {
	if it == nil || it.Product == nil {
		return nil
	}
	n.log.Debug("price-change alert discarded (no backend configured)",
		"product", it.Product.ID,
		"last_known_price", lastKnownPrice,
	)
	return nil
}

// NotifyAdmin logs and discards an admin message.
func (n *NoOpNotifier) NotifyAdmin(_ context.Context, message string) error {
	n.log.Debug("admin message discarded (no backend configured)", "message", message)
	return nil
}

// NotifyRateLimit logs and discards a rate-limit notice.
func (n *NoOpNotifier) NotifyRateLimit(context.Context) error {
	n.log.Debug("rate-limit notice discarded (no backend configured)")
	return nil
}

// NotifyCookies logs and discards a credit notice.
func (n *NoOpNotifier) NotifyCookies(_ context.Context, it *domain.Item, amount int) error {
	if it == nil || it.Product == nil {
		return nil
	}
	n.log.Debug("cookie notice discarded (no backend configured)",
		"product", it.Product.ID,
		"amount", amount,
	)
	return nil
}

// Shutdown is a no-op.
func (n *NoOpNotifier) Shutdown() {}
