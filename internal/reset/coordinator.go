package reset

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"daily-mission-tracker/internal/metrics"
	"daily-mission-tracker/internal/model"
)

// Store is the persistence the coordinator needs.
type Store interface {
	// ListUserIDs returns a snapshot of every user id.
	ListUserIDs(ctx context.Context) ([]model.UserID, error)
	// ResetDailyMissions locks one user's missions and marks them incomplete
	// in a single transaction, returning the number of rows updated.
	ResetDailyMissions(ctx context.Context, userID model.UserID) (int64, error)
}

// CoordinatorConfig holds Coordinator settings.
type CoordinatorConfig struct {
	// Concurrency bounds simultaneous per-user transactions.
	Concurrency int
	// TxTimeout bounds each per-user transaction.
	TxTimeout time.Duration
}

// Failure is a user whose reset did not commit.
type Failure struct {
	UserID model.UserID
	Err    error
}

// CycleReport summarizes one reset cycle.
type CycleReport struct {
	Total         int
	Succeeded     []model.UserID
	Failed        []Failure
	MissionsReset int64
	Duration      time.Duration
}

// Coordinator runs reset cycles.
type Coordinator struct {
	store       Store
	concurrency int
	txTimeout   time.Duration
	logger      zerolog.Logger
}

// NewCoordinator creates a Coordinator over store.
func NewCoordinator(store Store, cfg CoordinatorConfig) *Coordinator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 10 * time.Second
	}
	return &Coordinator{
		store:       store,
		concurrency: cfg.Concurrency,
		txTimeout:   cfg.TxTimeout,
		logger:      log.With().Str("component", "coordinator").Logger(),
	}
}

// Run handles triggers one cycle at a time until ctx is done or triggers is
// closed. Cycle failures are logged and do not stop the loop.
func (c *Coordinator) Run(ctx context.Context, triggers <-chan Trigger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-triggers:
			if !ok {
				return nil
			}
			c.logger.Info().Time("event", t.At).Msg("Starting reset cycle")
			// OnTrigger logs its own failures
			_, _ = c.OnTrigger(ctx)
		}
	}
}

// OnTrigger runs one reset cycle.
//
// The user snapshot is fetched first; if that fails the whole cycle is
// abandoned. Otherwise every user is reset independently and the cycle waits
// for all of them, collecting failures without stopping early.
func (c *Coordinator) OnTrigger(ctx context.Context) (*CycleReport, error) {
	start := time.Now()

	userIDs, err := c.store.ListUserIDs(ctx)
	if err != nil {
		metrics.RecordCycle(metrics.ResultAborted, time.Since(start))
		c.logger.Error().Err(err).Msg("Failed to fetch users, skipping reset cycle")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	type outcome struct {
		rows int64
		err  error
	}
	outcomes := make([]outcome, len(userIDs))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, id := range userIDs {
		g.Go(func() error {
			rows, err := c.resetUser(ctx, id)
			outcomes[i] = outcome{rows: rows, err: err}
			return nil
		})
	}
	_ = g.Wait()

	report := &CycleReport{Total: len(userIDs)}
	for i, o := range outcomes {
		if o.err != nil {
			report.Failed = append(report.Failed, Failure{UserID: userIDs[i], Err: o.err})
			continue
		}
		report.Succeeded = append(report.Succeeded, userIDs[i])
		report.MissionsReset += o.rows
	}
	report.Duration = time.Since(start)

	result := metrics.ResultSuccess
	if len(report.Failed) > 0 {
		result = metrics.ResultFailure
	}
	metrics.RecordCycle(result, report.Duration)
	metrics.RecordUserResets(len(report.Succeeded), len(report.Failed))

	c.logger.Info().
		Int("total", report.Total).
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Int64("missions_reset", report.MissionsReset).
		Dur("duration", report.Duration).
		Msg("Reset cycle finished")

	return report, nil
}

func (c *Coordinator) resetUser(ctx context.Context, userID model.UserID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.txTimeout)
	defer cancel()

	rows, err := c.store.ResetDailyMissions(ctx, userID)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("user_id", userID.String()).
			Msg("Failed to reset daily missions")
		return 0, err
	}
	return rows, nil
}
