// Package engine orchestrates the snapshot evaluation pipeline:
// classification, cooldown-gated stock alerts, price-change detection,
// notification fan-out, and basket-candidate admission.
package engine

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/stocksentry/stocksentry/internal/classify"
	"github.com/stocksentry/stocksentry/internal/cooldown"
	"github.com/stocksentry/stocksentry/internal/metrics"
	"github.com/stocksentry/stocksentry/internal/notify"
	"github.com/stocksentry/stocksentry/internal/store"
	domain "github.com/stocksentry/stocksentry/pkg/types"
)

// Engine evaluates batches of item snapshots. A single logical worker
// runs one batch at a time: concurrent EvaluateBatch callers (scheduler
// firings, API requests) are serialized on evalMu. Items within a batch
// are processed strictly sequentially because each step mutates ledger
// and price-store state that later steps read.
type Engine struct {
	ledger    *cooldown.Ledger
	store     store.Store // nil means no persistence configured
	notifiers []notify.Notifier
	log       *slog.Logger

	evalMu sync.Mutex

	gates           classify.Gates
	basketAllowList map[string]struct{}
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithStore sets the persistence collaborator. Without one, price and
// credit lookups degrade to unknown/zero defaults.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithGates sets the per-store commercial gating flags.
func WithGates(g classify.Gates) Option {
	return func(e *Engine) { e.gates = g }
}

// WithBasketAllowList restricts basket admission to the given product
// ids. An empty list admits any eligible item.
func WithBasketAllowList(ids []string) Option {
	return func(e *Engine) {
		e.basketAllowList = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			e.basketAllowList[id] = struct{}{}
		}
	}
}

// NewEngine creates an Engine with the given ledger and notification
// channels.
func NewEngine(ledger *cooldown.Ledger, notifiers []notify.Notifier, opts ...Option) *Engine {
	e := &Engine{
		ledger:    ledger,
		notifiers: notifiers,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateBatch processes the items in order and returns the basket
// candidate set: product id to product for every item that is
// commercially eligible, not under basket cooldown, and allowed by the
// basket allow-list. The set is rebuilt on every call. Only one batch
// runs at a time; a call that arrives while another batch is in flight
// blocks until that batch finishes.
func (e *Engine) EvaluateBatch(ctx context.Context, items []domain.Item) map[string]domain.Product {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	start := time.Now()
	defer func() {
		metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}()

	candidates := make(map[string]domain.Product)
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		e.evaluateItem(ctx, &items[i], candidates)
	}
	return candidates
}

// evaluateItem runs the fixed per-item step order: availability gate,
// cooldown resurrection, price-change detection, cooldown-gated stock
// fan-out, basket admission. Price-change notifications always precede
// the stock notification for the same item.
func (e *Engine) evaluateItem(ctx context.Context, it *domain.Item, candidates map[string]domain.Product) {
	if it.Product == nil || it.Product.ID == "" {
		metrics.ItemsSkippedTotal.Inc()
		return
	}
	if !classify.IsAvailable(it, e.gates) {
		metrics.ItemsSkippedTotal.Inc()
		return
	}

	metrics.ItemsEvaluatedTotal.Inc()
	id := it.Product.ID
	buyable := classify.IsBuyable(it, e.gates)

	// Resurrection: a product recorded as not-buyable that is now
	// buyable gets its stale entry deleted so a fresh alert fires.
	if entry := e.ledger.GetEntry(id); entry != nil && !entry.Buyable && buyable {
		e.ledger.DeleteEntry(id)
		e.log.Info("cooldown lifted on availability upgrade", "product", id)
	}

	e.trackPrice(ctx, it)

	if !e.ledger.HasCooldown(id) {
		cookies := e.cookiesAmount(ctx, it)
		e.notifyStock(ctx, it, cookies)
		e.ledger.AddEntry(buyable, it, e.gates.CheckOnlineStatus, e.gates.CheckInAssortment, cookies > 0)
	}

	if classify.CanAddToBasket(it, e.gates) &&
		!e.ledger.HasBasketCooldown(id) &&
		e.allowedInBasket(id) {
		candidates[id] = *it.Product
		metrics.BasketCandidatesTotal.Inc()
	}
}

// trackPrice compares the snapshot price against the last persisted one.
// A change notification fires only when both values are valid numbers
// and differ; the new price is persisted whenever it is valid and
// differs from the record, including when no record existed.
func (e *Engine) trackPrice(ctx context.Context, it *domain.Item) {
	lastKnown := e.lastKnownPrice(ctx, it)
	price := it.PriceAmount()

	if domain.ValidPrice(price) && domain.ValidPrice(lastKnown) && price != lastKnown {
		for _, n := range e.notifiers {
			if err := n.NotifyPriceChange(ctx, it, lastKnown); err != nil {
				metrics.NotifierFailuresTotal.WithLabelValues(channelName(n)).Inc()
				e.log.Error("price-change notification failed",
					"product", it.Product.ID, "error", err)
			}
		}
		metrics.PriceChangeAlertsTotal.Inc()
	}

	if domain.ValidPrice(price) && price != lastKnown && e.store != nil {
		if err := e.store.StorePrice(ctx, it.Product, price); err != nil {
			e.log.Error("persisting price failed", "product", it.Product.ID, "error", err)
		}
	}
}

func (e *Engine) notifyStock(ctx context.Context, it *domain.Item, cookies int) {
	for _, n := range e.notifiers {
		if _, err := n.NotifyStock(ctx, it, cookies); err != nil {
			metrics.NotifierFailuresTotal.WithLabelValues(channelName(n)).Inc()
			e.log.Error("stock notification failed",
				"product", it.Product.ID, "error", err)
		}
	}
	metrics.StockAlertsTotal.Inc()
}

func (e *Engine) lastKnownPrice(ctx context.Context, it *domain.Item) float64 {
	if e.store == nil {
		return nan()
	}
	price, err := e.store.GetLastKnownPrice(ctx, it.Product)
	if err != nil {
		e.log.Error("price lookup failed", "product", it.Product.ID, "error", err)
		return nan()
	}
	return price
}

func (e *Engine) cookiesAmount(ctx context.Context, it *domain.Item) int {
	if e.store == nil {
		return 0
	}
	amount, err := e.store.GetCookiesAmount(ctx, it.Product)
	if err != nil {
		e.log.Error("cookies lookup failed", "product", it.Product.ID, "error", err)
		return 0
	}
	return amount
}

func (e *Engine) allowedInBasket(id string) bool {
	if len(e.basketAllowList) == 0 {
		return true
	}
	_, ok := e.basketAllowList[id]
	return ok
}

// channelName labels notifier failures per concrete channel type.
func channelName(n notify.Notifier) string {
	switch n.(type) {
	case *notify.WebhookNotifier:
		return "webhook"
	case *notify.NoOpNotifier:
		return "noop"
	default:
		return "other"
	}
}

func nan() float64 {
	return math.NaN()
}
