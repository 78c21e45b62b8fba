package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

func testItem(id string) *domain.Item {
	return &domain.Item{
		Product: &domain.Product{ID: id, Title: "PS5 Disc Edition"},
	}
}

func TestAddAndGetEntry(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	require.Nil(t, l.GetEntry("P1"))
	assert.False(t, l.HasCooldown("P1"))

	l.AddEntry(true, testItem("P1"), true, false, true)

	e := l.GetEntry("P1")
	require.NotNil(t, e)
	assert.Equal(t, "P1", e.ProductID)
	assert.True(t, e.Buyable)
	assert.True(t, e.CheckedOnlineStatus)
	assert.False(t, e.CheckedInAssortment)
	assert.True(t, e.HasCookies)
	assert.True(t, l.HasCooldown("P1"))
}

func TestAddEntry_IgnoresItemsWithoutProductID(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.AddEntry(true, nil, false, false, false)
	l.AddEntry(true, &domain.Item{}, false, false, false)
	l.AddEntry(true, &domain.Item{Product: &domain.Product{}}, false, false, false)
	assert.Equal(t, 0, l.Len())
}

func TestDeleteEntry_ResurrectionPath(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.AddEntry(false, testItem("P1"), true, true, false)

	e := l.GetEntry("P1")
	require.NotNil(t, e)
	require.False(t, e.Buyable)

	// Fresh evaluation says buyable: the dispatcher deletes the stale
	// entry so a new alert can fire.
	l.DeleteEntry("P1")
	assert.Nil(t, l.GetEntry("P1"))
	assert.False(t, l.HasCooldown("P1"))
}

func TestStockEntryExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := &now
	l := NewLedger(
		WithStockTTL(time.Hour),
		WithClock(func() time.Time { return *clock }),
	)

	l.AddEntry(true, testItem("P1"), false, false, false)
	assert.True(t, l.HasCooldown("P1"))

	later := now.Add(61 * time.Minute)
	clock = &later
	assert.False(t, l.HasCooldown("P1"))
	assert.Nil(t, l.GetEntry("P1"))
}

func TestBasketCooldown(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := &now
	l := NewLedger(
		WithBasketTTL(time.Hour),
		WithClock(func() time.Time { return *clock }),
	)

	assert.False(t, l.HasBasketCooldown("P1"))
	l.AddBasketEntry("P1")
	assert.True(t, l.HasBasketCooldown("P1"))

	// Basket and stock cooldowns are independent.
	assert.False(t, l.HasCooldown("P1"))

	later := now.Add(2 * time.Hour)
	clock = &later
	assert.False(t, l.HasBasketCooldown("P1"))
}

func TestPrune(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := &now
	l := NewLedger(
		WithStockTTL(time.Minute),
		WithBasketTTL(time.Hour),
		WithClock(func() time.Time { return *clock }),
	)

	l.AddEntry(true, testItem("P1"), false, false, false)
	l.AddEntry(false, testItem("P2"), false, false, false)
	l.AddBasketEntry("P3")

	assert.Equal(t, 0, l.Prune())

	later := now.Add(30 * time.Minute)
	clock = &later
	assert.Equal(t, 2, l.Prune()) // both stock entries, basket survives
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.HasBasketCooldown("P3"))
}
