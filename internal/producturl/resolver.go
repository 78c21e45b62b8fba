// Package producturl resolves store product URLs. Per-product override
// URLs (affiliate or tracking links) live in an external keyed table
// that can be reloaded at runtime; everything else falls back to the
// store's computed URL pattern.
package producturl

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

// Resolver computes product URLs for one store.
type Resolver struct {
	store domain.StoreInfo
	log   *slog.Logger

	mu        sync.RWMutex
	overrides map[string]string

	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewResolver creates a Resolver with no overrides loaded.
func NewResolver(store domain.StoreInfo, log *slog.Logger) *Resolver {
	return &Resolver{
		store:     store,
		log:       log,
		overrides: make(map[string]string),
		done:      make(chan struct{}),
	}
}

// LoadOverrides reads the override table (YAML map of product id to
// URL) from path, replacing the current table.
func (r *Resolver) LoadOverrides(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from trusted config
	if err != nil {
		return fmt.Errorf("reading override table: %w", err)
	}

	table := make(map[string]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("parsing override table: %w", err)
	}

	r.mu.Lock()
	r.overrides = table
	r.path = path
	r.mu.Unlock()

	r.log.Info("url override table loaded", "path", path, "entries", len(table))
	return nil
}

// Watch reloads the override table whenever the file changes. Call
// Close to stop watching.
func (r *Resolver) Watch() error {
	r.mu.RLock()
	path := r.path
	r.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("no override table loaded")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", path, err)
	}
	r.watcher = watcher

	go func() {
		for {
			select {
			case <-r.done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.LoadOverrides(path); err != nil {
					r.log.Error("override table reload failed", "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Error("override table watch error", "error", err)
			}
		}
	}()

	return nil
}

// Close stops the file watcher. Idempotent.
func (r *Resolver) Close() {
	r.once.Do(func() {
		close(r.done)
		if r.watcher != nil {
			r.watcher.Close()
		}
	})
}

// URL returns the public product URL for an item: the override when one
// exists for the product id, otherwise the store's standard pattern.
func (r *Resolver) URL(it *domain.Item) string {
	return r.resolve(it, false)
}

// MagicianURL returns the product URL with the magician query parameter
// appended, used by the checkout automation.
func (r *Resolver) MagicianURL(it *domain.Item) string {
	return r.resolve(it, true)
}

func (r *Resolver) resolve(it *domain.Item, magician bool) string {
	if it == nil || it.Product == nil || it.Product.ID == "" {
		return ""
	}

	r.mu.RLock()
	override, ok := r.overrides[it.Product.ID]
	r.mu.RUnlock()
	if ok && override != "" {
		return override
	}

	path := it.Product.URL
	if path == "" {
		path = fmt.Sprintf("/%s/product/-%s.html", r.store.LanguageCode, it.Product.ID)
	}

	url := r.store.BaseURL + path
	if magician {
		url += "?magician=" + it.Product.ID
	}
	return url
}
