package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

func TestNoOpNotifier_DiscardsEverything(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := NewNoOpNotifier(log)

	it := &domain.Item{Product: &domain.Product{ID: "P1", Title: "Widget"}}

	_, err := n.NotifyStock(context.Background(), it, 1)
	require.NoError(t, err)
	require.NoError(t, n.NotifyPriceChange(context.Background(), it, 9.99))
	require.NoError(t, n.NotifyAdmin(context.Background(), "hello"))
	require.NoError(t, n.NotifyRateLimit(context.Background()))
	require.NoError(t, n.NotifyCookies(context.Background(), it, 2))
	n.Shutdown()

	assert.Contains(t, buf.String(), "discarded")
}

func TestNoOpNotifier_NilItems(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := NewNoOpNotifier(log)

	_, err := n.NotifyStock(context.Background(), nil, 0)
	require.NoError(t, err)
	require.NoError(t, n.NotifyPriceChange(context.Background(), nil, 0))
	require.NoError(t, n.NotifyCookies(context.Background(), nil, 0))

	assert.Empty(t, buf.String())
}
