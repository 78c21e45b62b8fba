package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

func TestFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{
			"items": [
				{
					"product": {"id": "P1", "title": "Widget", "online_status": true},
					"availability": {"delivery": {"kind": "IN_WAREHOUSE", "quantity": 5}},
					"price": {"amount": 19.99, "currency": "EUR"}
				},
				{
					"product": {"id": "P2", "title": "Gadget"}
				}
			]
		}`))
	}))
	t.Cleanup(srv.Close)

	items, err := NewClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "P1", items[0].Product.ID)
	require.NotNil(t, items[0].Availability.Delivery)
	assert.Equal(t, domain.DeliveryInWarehouse, items[0].Availability.Delivery.Kind)
	assert.Equal(t, 5, items[0].Availability.Delivery.Quantity)
	assert.InDelta(t, 19.99, items[0].Price.Amount, 0.001)

	assert.Equal(t, "P2", items[1].Product.ID)
	assert.Nil(t, items[1].Availability.Delivery)
}

func TestFetch_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetch_UnknownDeliveryKindRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"items":[{"product":{"id":"P1"},"availability":{"delivery":{"kind":"TELEPORT"}}}]}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown delivery kind")
}

func TestFetch_InvalidJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Fetch(context.Background())
	assert.Error(t, err)
}
