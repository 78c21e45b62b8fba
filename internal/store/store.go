// Package store defines the persistence collaborator for stocksentry.
// The dispatcher depends on the Store interface, never on concrete
// implementations; a nil store degrades every lookup to unknown/zero
// defaults.
package store

import (
	"context"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

// Store provides last-known prices and accumulated cookie credits per
// product. Implementations must tolerate concurrent reads but callers
// serialize writes (single dispatcher worker).
type Store interface {
	// GetLastKnownPrice returns the most recently persisted price for a
	// product, or NaN when none has been recorded.
	GetLastKnownPrice(ctx context.Context, p *domain.Product) (float64, error)

	// StorePrice persists the current price for a product.
	StorePrice(ctx context.Context, p *domain.Product, price float64) error

	// GetCookiesAmount returns the accumulated alert-credit count for a
	// product, zero when none.
	GetCookiesAmount(ctx context.Context, p *domain.Product) (int, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases held resources.
	Close()
}
