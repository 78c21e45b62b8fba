// Package cooldown implements the per-product suppression ledger that
// prevents duplicate stock alerts.
//
// Each product moves through a small state machine: Unreported (no
// entry) -> Suppressed once an alert has been sent (entry present) ->
// back to Unreported when the dispatcher deletes the entry on the
// not-buyable-to-buyable upgrade, or when the entry expires. Entry
// existence is the sole suppression gate.
package cooldown

import (
	"sync"
	"time"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

// Default TTLs. Expiry is a policy decision local to this ledger; the
// dispatcher only relies on entry existence.
const (
	DefaultStockTTL  = 2 * time.Hour
	DefaultBasketTTL = 8 * time.Hour
)

// Entry records the state observed when a stock alert was dispatched for
// a product. Buyable=false entries are the resurrection candidates: they
// are deleted the moment a fresh evaluation says the product became
// buyable, forcing a new alert.
type Entry struct {
	ProductID           string
	Buyable             bool
	CheckedOnlineStatus bool
	CheckedInAssortment bool
	HasCookies          bool
	ExpiresAt           time.Time
}

// Ledger is an in-memory cooldown store. Safe for concurrent use; the
// dispatcher is the only writer during batch evaluation, the prune hook
// may run from the scheduler.
type Ledger struct {
	mu        sync.Mutex
	stock     map[string]Entry
	basket    map[string]time.Time
	stockTTL  time.Duration
	basketTTL time.Duration
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithStockTTL overrides the stock suppression TTL.
func WithStockTTL(d time.Duration) Option {
	return func(l *Ledger) { l.stockTTL = d }
}

// WithBasketTTL overrides the basket suppression TTL.
func WithBasketTTL(d time.Duration) Option {
	return func(l *Ledger) { l.basketTTL = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates an empty cooldown ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		stock:     make(map[string]Entry),
		basket:    make(map[string]time.Time),
		stockTTL:  DefaultStockTTL,
		basketTTL: DefaultBasketTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetEntry returns the suppression entry for a product, or nil when the
// product is unreported. Expired entries count as unreported.
func (l *Ledger) GetEntry(productID string) *Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.stock[productID]
	if !ok {
		return nil
	}
	if l.now().After(e.ExpiresAt) {
		delete(l.stock, productID)
		return nil
	}
	return &e
}

// HasCooldown reports whether a stock alert for this product is
// currently suppressed.
func (l *Ledger) HasCooldown(productID string) bool {
	return l.GetEntry(productID) != nil
}

// HasBasketCooldown reports whether basket admission for this product is
// currently suppressed.
func (l *Ledger) HasBasketCooldown(productID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	exp, ok := l.basket[productID]
	if !ok {
		return false
	}
	if l.now().After(exp) {
		delete(l.basket, productID)
		return false
	}
	return true
}

// AddEntry records that a stock alert was just dispatched for the item.
// Called exactly once per product per suppression window, after the
// notification fan-out completed.
func (l *Ledger) AddEntry(buyable bool, it *domain.Item, checkedOnline, checkedAssortment, hasCookies bool) {
	if it == nil || it.Product == nil || it.Product.ID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.stock[it.Product.ID] = Entry{
		ProductID:           it.Product.ID,
		Buyable:             buyable,
		CheckedOnlineStatus: checkedOnline,
		CheckedInAssortment: checkedAssortment,
		HasCookies:          hasCookies,
		ExpiresAt:           l.now().Add(l.stockTTL),
	}
}

// AddBasketEntry suppresses further basket admission for a product,
// typically called by the checkout collaborator after queueing it.
func (l *Ledger) AddBasketEntry(productID string) {
	if productID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.basket[productID] = l.now().Add(l.basketTTL)
}

// DeleteEntry removes the stock suppression entry for a product. This is
// the resurrection path: the dispatcher calls it when the recorded state
// says not-buyable but a fresh check says buyable.
func (l *Ledger) DeleteEntry(productID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.stock, productID)
}

// Prune drops all expired entries and returns how many were removed.
func (l *Ledger) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, e := range l.stock {
		if now.After(e.ExpiresAt) {
			delete(l.stock, id)
			removed++
		}
	}
	for id, exp := range l.basket {
		if now.After(exp) {
			delete(l.basket, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live stock entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.stock)
}
