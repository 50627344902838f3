package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/matrixise/guild-dashboard/internal/datasource"
)

// ErrNotStarted is returned by refresh calls issued before Start.
var ErrNotStarted = errors.New("dashboard not started")

const recordTimeout = 10 * time.Second

// SnapshotRecorder persists treasury figures of a Ready view.
type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, state ViewState) error
}

// Config holds dashboard dependencies.
type Config struct {
	Recorder SnapshotRecorder // optional
	Logger   *slog.Logger
}

// Dashboard keeps the current view state of the treasury dashboard up to
// date with the data source subscriptions.
type Dashboard struct {
	adapter  *datasource.Adapter
	recorder SnapshotRecorder
	logger   *slog.Logger

	mu          sync.RWMutex
	current     ViewState
	updatedAt   time.Time
	diagnostics []Diagnostic
	recorded    datasource.TreasuryMetadata
	changed     chan struct{} // closed and replaced on every transition

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a dashboard over querier. Call Start to issue the queries.
func New(querier datasource.Querier, cfg Config) *Dashboard {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	d := &Dashboard{
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		current:  ViewState{Phase: PhaseLoading},
		changed:  make(chan struct{}),
	}
	d.adapter = datasource.NewAdapter(querier, d.apply, cfg.Logger)
	return d
}

// Start issues all queries. Cancelling ctx aborts the queries; snapshot
// writes already started run to completion or recordTimeout.
func (d *Dashboard) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.apply(d.adapter.Snapshot())
	d.adapter.Start(d.ctx)
}

// Refresh re-triggers every query.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if d.ctx == nil {
		return ErrNotStarted
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	d.adapter.RefetchAll(d.ctx)
	return nil
}

// RefreshQuery re-triggers one query by name and reports whether the name
// is known.
func (d *Dashboard) RefreshQuery(query string) (bool, error) {
	if d.ctx == nil {
		return false, ErrNotStarted
	}
	return d.adapter.Refetch(d.ctx, query), nil
}

// Current returns the latest view state.
func (d *Dashboard) Current() ViewState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// UpdatedAt returns when the view state last changed.
func (d *Dashboard) UpdatedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.updatedAt
}

// WaitSettled blocks until every query has resolved at least once, or
// until metadata failed, and returns the view state at that point.
func (d *Dashboard) WaitSettled(ctx context.Context) (ViewState, error) {
	for {
		d.mu.RLock()
		state, changed := d.current, d.changed
		d.mu.RUnlock()

		if state.Settled() {
			return state, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// Close discards in-flight queries and waits for pending snapshot writes.
func (d *Dashboard) Close() {
	d.adapter.Close()
	if d.cancel != nil {
		d.cancel()
	}
	d.adapter.Wait()
	d.wg.Wait()
}

func (d *Dashboard) record(state ViewState) {
	defer d.wg.Done()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.ctx), recordTimeout)
	defer cancel()
	if err := d.recorder.RecordSnapshot(ctx, state); err != nil {
		d.logger.Error("Failed to record treasury snapshot", "error", err)
	}
}

// apply recomputes the view state. The adapter calls it once per transition.
func (d *Dashboard) apply(snap datasource.Snapshot) {
	state := ReduceSnapshot(snap)

	d.mu.Lock()
	d.current = state
	d.updatedAt = time.Now()
	changedDiag := !slices.Equal(d.diagnostics, state.Diagnostics)
	d.diagnostics = state.Diagnostics
	record := d.shouldRecord(state)
	close(d.changed)
	d.changed = make(chan struct{})
	d.mu.Unlock()

	if changedDiag {
		for _, diag := range state.Diagnostics {
			d.logger.Error("Could not load figure", "query", diag.Query, "error", diag.Reason)
		}
	}

	switch state.Phase {
	case PhaseFailed:
		d.logger.Error("Treasury metadata unavailable", "error", state.Err)
	case PhaseReady:
		d.logger.Debug("Dashboard updated",
			"members", state.Members.Label(),
			"proposals", state.Proposals.Label(),
			"total_shares", state.Treasury.TotalShares)
	}

	if record {
		d.wg.Add(1)
		go d.record(state)
	}
}

// shouldRecord reports whether state is a settled Ready view whose metadata
// result was not yet recorded. Each metadata resolution carries a fresh
// GuildBankValue, so pointer identity tells results apart. Callers hold d.mu.
func (d *Dashboard) shouldRecord(state ViewState) bool {
	if d.recorder == nil || d.ctx == nil || state.Phase != PhaseReady || !state.Settled() {
		return false
	}
	if state.Treasury.GuildBankValue == d.recorded.GuildBankValue {
		return false
	}
	d.recorded = state.Treasury
	return true
}
