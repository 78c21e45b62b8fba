package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksentry/stocksentry/internal/cooldown"
	"github.com/stocksentry/stocksentry/internal/notify"
	domain "github.com/stocksentry/stocksentry/pkg/types"
)

type fakeSource struct {
	mu      sync.Mutex
	items   []domain.Item
	err     error
	fetches int
}

func (f *fakeSource) Fetch(context.Context) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.items, f.err
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewScheduler_RegistersBothJobs(t *testing.T) {
	t.Parallel()

	n := &recordingNotifier{}
	ledger := cooldown.NewLedger()
	eng := NewEngine(ledger, []notify.Notifier{n}, WithGates(allGates()))

	sched, err := NewScheduler(eng, &fakeSource{}, ledger, time.Minute, 15*time.Minute, testLogger())
	require.NoError(t, err)
	assert.Len(t, sched.Entries(), 2)
}

func TestScheduler_RunsEvaluation(t *testing.T) {
	t.Parallel()

	n := &recordingNotifier{}
	ledger := cooldown.NewLedger()
	eng := NewEngine(ledger, []notify.Notifier{n}, WithGates(allGates()))

	source := &fakeSource{items: []domain.Item{buyableItem("P1", 0)}}
	sched, err := NewScheduler(eng, source, ledger, 50*time.Millisecond, time.Hour, testLogger())
	require.NoError(t, err)

	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	require.Eventually(t, func() bool {
		return source.fetchCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return ledger.HasCooldown("P1")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_FetchErrorSkipsEvaluation(t *testing.T) {
	t.Parallel()

	n := &recordingNotifier{}
	ledger := cooldown.NewLedger()
	eng := NewEngine(ledger, []notify.Notifier{n}, WithGates(allGates()))

	source := &fakeSource{err: errors.New("feed down")}
	sched, err := NewScheduler(eng, source, ledger, 50*time.Millisecond, time.Hour, testLogger())
	require.NoError(t, err)

	sched.Start()

	require.Eventually(t, func() bool {
		return source.fetchCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	<-sched.Stop().Done()
	assert.Empty(t, n.stockIDs)
}
