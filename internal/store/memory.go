package store

import (
	"context"
	"math"
	"sync"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

// MemoryStore is an in-memory Store used when no database is configured
// and in tests. Lookups for unknown products degrade to NaN/0.
type MemoryStore struct {
	mu      sync.RWMutex
	prices  map[string]float64
	cookies map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prices:  make(map[string]float64),
		cookies: make(map[string]int),
	}
}

// GetLastKnownPrice returns the stored price or NaN.
func (s *MemoryStore) GetLastKnownPrice(_ context.Context, p *domain.Product) (float64, error) {
	if p == nil || p.ID == "" {
		return math.NaN(), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[p.ID]
	if !ok {
		return math.NaN(), nil
	}
	return price, nil
}

// StorePrice records the price in memory.
func (s *MemoryStore) StorePrice(_ context.Context, p *domain.Product, price float64) error {
	if p == nil || p.ID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[p.ID] = price
	return nil
}

// GetCookiesAmount returns the stored credit count or zero.
func (s *MemoryStore) GetCookiesAmount(_ context.Context, p *domain.Product) (int, error) {
	if p == nil || p.ID == "" {
		return 0, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cookies[p.ID], nil
}

// SetCookiesAmount seeds a credit count, used by tests and tooling.
func (s *MemoryStore) SetCookiesAmount(id string, amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cookies[id] = amount
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() {}
