package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

func boolPtr(b bool) *bool { return &b }

func snapshot(online, inAssortment *bool, kind domain.DeliveryKind, qty int) *domain.Item {
	return &domain.Item{
		Product: &domain.Product{
			ID:           "P100",
			Title:        "RTX 5080",
			OnlineStatus: online,
		},
		Control: &domain.ProductControl{InAssortment: inAssortment},
		Availability: domain.Availability{
			Delivery: &domain.Delivery{Kind: kind, Quantity: qty},
		},
	}
}

func TestIsAvailable(t *testing.T) {
	t.Parallel()

	allGates := Gates{CheckOnlineStatus: true, CheckInAssortment: true}
	noGates := Gates{}

	tests := []struct {
		name  string
		item  *domain.Item
		gates Gates
		want  bool
	}{
		{
			name:  "gates pass outright",
			item:  snapshot(boolPtr(true), boolPtr(true), domain.DeliveryNone, 0),
			gates: allGates,
			want:  true,
		},
		{
			name:  "gates disabled pass outright",
			item:  snapshot(boolPtr(false), boolPtr(false), domain.DeliveryNone, 0),
			gates: noGates,
			want:  true,
		},
		{
			name:  "gates fail falls back to in-store stock",
			item:  snapshot(boolPtr(false), boolPtr(true), domain.DeliveryInStore, 0),
			gates: allGates,
			want:  true,
		},
		{
			name:  "gates fail falls back to warehouse with quantity",
			item:  snapshot(boolPtr(false), boolPtr(false), domain.DeliveryInWarehouse, 3),
			gates: allGates,
			want:  true,
		},
		{
			name:  "gates fail warehouse empty",
			item:  snapshot(boolPtr(false), boolPtr(false), domain.DeliveryInWarehouse, 0),
			gates: allGates,
			want:  false,
		},
		{
			name:  "gates fail long tail with quantity",
			item:  snapshot(boolPtr(false), boolPtr(true), domain.DeliveryLongTail, 1),
			gates: allGates,
			want:  true,
		},
		{
			name:  "gates fail no delivery",
			item:  snapshot(boolPtr(false), boolPtr(false), domain.DeliveryNone, 5),
			gates: allGates,
			want:  false,
		},
		{
			name: "absent flags fail enabled gates, nil descriptor",
			item: &domain.Item{
				Product:      &domain.Product{ID: "P1", Title: "x"},
				Availability: domain.Availability{},
			},
			gates: allGates,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsAvailable(tt.item, tt.gates))
		})
	}
}

func TestIsBuyable(t *testing.T) {
	t.Parallel()

	allGates := Gates{CheckOnlineStatus: true, CheckInAssortment: true}

	tests := []struct {
		name  string
		item  *domain.Item
		gates Gates
		want  bool
	}{
		{
			name:  "gates pass with in-store stock",
			item:  snapshot(boolPtr(true), boolPtr(true), domain.DeliveryInStore, 0),
			gates: allGates,
			want:  true,
		},
		{
			name:  "gates pass warehouse needs quantity",
			item:  snapshot(boolPtr(true), boolPtr(true), domain.DeliveryInWarehouse, 0),
			gates: allGates,
			want:  false,
		},
		{
			name:  "gates pass warehouse with quantity",
			item:  snapshot(boolPtr(true), boolPtr(true), domain.DeliveryInWarehouse, 2),
			gates: allGates,
			want:  true,
		},
		{
			name:  "gates pass but no delivery",
			item:  snapshot(boolPtr(true), boolPtr(true), domain.DeliveryNone, 9),
			gates: allGates,
			want:  false,
		},
		{
			name:  "gates fail overrides stock",
			item:  snapshot(boolPtr(false), boolPtr(true), domain.DeliveryInStore, 0),
			gates: allGates,
			want:  false,
		},
		{
			name:  "gates disabled only delivery matters",
			item:  snapshot(boolPtr(false), boolPtr(false), domain.DeliveryLongTail, 1),
			gates: Gates{},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsBuyable(tt.item, tt.gates))
		})
	}
}

func TestCanAddToBasket(t *testing.T) {
	t.Parallel()

	allGates := Gates{CheckOnlineStatus: true, CheckInAssortment: true}

	// Delivery descriptor must be irrelevant.
	assert.True(t, CanAddToBasket(snapshot(boolPtr(true), boolPtr(true), domain.DeliveryNone, 0), allGates))
	assert.False(t, CanAddToBasket(snapshot(boolPtr(true), boolPtr(false), domain.DeliveryInStore, 10), allGates))
	assert.False(t, CanAddToBasket(snapshot(nil, boolPtr(true), domain.DeliveryInStore, 10), allGates))
	assert.True(t, CanAddToBasket(snapshot(nil, nil, domain.DeliveryNone, 0), Gates{}))
}

func TestInStoreAlwaysAvailableAndBuyableWhenGatesPass(t *testing.T) {
	t.Parallel()

	// IN_STORE ignores quantity entirely.
	for _, qty := range []int{0, 1, 100} {
		it := snapshot(boolPtr(true), boolPtr(true), domain.DeliveryInStore, qty)
		gates := Gates{CheckOnlineStatus: true, CheckInAssortment: true}
		assert.True(t, IsAvailable(it, gates), "qty=%d", qty)
		assert.True(t, IsBuyable(it, gates), "qty=%d", qty)
	}
}
