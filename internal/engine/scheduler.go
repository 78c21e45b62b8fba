package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stocksentry/stocksentry/internal/cooldown"
	domain "github.com/stocksentry/stocksentry/pkg/types"
)

// SnapshotSource supplies the next batch of item snapshots. The store
// scraping adapter implementing it is an external collaborator.
type SnapshotSource interface {
	Fetch(ctx context.Context) ([]domain.Item, error)
}

// Scheduler runs periodic batch evaluations and cooldown pruning.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	source SnapshotSource
	ledger *cooldown.Ledger
	log    *slog.Logger
}

// NewScheduler creates a Scheduler that evaluates snapshots from source
// on evaluationInterval and prunes expired cooldown entries on
// pruneInterval.
func NewScheduler(
	eng *Engine,
	source SnapshotSource,
	ledger *cooldown.Ledger,
	evaluationInterval time.Duration,
	pruneInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:   c,
		engine: eng,
		source: source,
		ledger: ledger,
		log:    log,
	}

	if _, err := c.AddFunc(
		"@every "+evaluationInterval.String(),
		s.runEvaluation,
	); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(
		"@every "+pruneInterval.String(),
		s.runPrune,
	); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to
// finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runEvaluation() {
	ctx := context.Background()

	items, err := s.source.Fetch(ctx)
	if err != nil {
		s.log.Error("snapshot fetch failed", "error", err)
		return
	}

	candidates := s.engine.EvaluateBatch(ctx, items)
	s.log.Info("batch evaluated",
		"items", len(items),
		"basket_candidates", len(candidates),
	)
}

func (s *Scheduler) runPrune() {
	if removed := s.ledger.Prune(); removed > 0 {
		s.log.Info("cooldown entries pruned", "removed", removed)
	}
}
