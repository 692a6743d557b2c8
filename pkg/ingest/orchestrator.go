// Package ingest implements the orchestrator that runs every jurisdiction
// connector on a schedule or on demand, merges their output into the
// repository, and records per-connector status (spec §4.5).
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/calhealth/trustscore/internal/platform/metrics"
	"github.com/calhealth/trustscore/internal/platform/tracing"
	"github.com/calhealth/trustscore/internal/repositories/facility"
	"github.com/calhealth/trustscore/pkg/apierr"
	"github.com/calhealth/trustscore/pkg/connectors"
	"github.com/calhealth/trustscore/pkg/events"
	"github.com/calhealth/trustscore/pkg/merging"
	"github.com/calhealth/trustscore/pkg/models"
)

// ErrAlreadyRunning is returned by Start when the orchestrator has already
// been started.
var ErrAlreadyRunning = errors.New("ingest: orchestrator already running")

// Outcome summarizes one refresh, for refresh_once's exit code and the
// worker loop's logging.
type Outcome struct {
	Statuses     []models.ConnectorStatus
	TotalFetched int
	AllFailed    bool
}

// Orchestrator runs the configured connectors concurrently, merges results
// sequentially against the repository, and exposes a single-slot manual
// refresh mailbox (spec §4.5, §5).
type Orchestrator struct {
	store      facility.Store
	merger     *merging.Engine
	connectors []connectors.Connector
	breakers   map[string]*gobreaker.CircuitBreaker[[]models.RawRecord]
	emitter    events.Emitter
	logger     ectologger.Logger

	refreshCh chan struct{}
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu      sync.Mutex
	running bool
}

func NewOrchestrator(store facility.Store, conns []connectors.Connector, merger *merging.Engine, emitter events.Emitter, logger ectologger.Logger) *Orchestrator {
	breakers := make(map[string]*gobreaker.CircuitBreaker[[]models.RawRecord], len(conns))
	for _, c := range conns {
		breakers[c.Name()] = newBreaker(c.Name())
	}
	return &Orchestrator{
		store:      store,
		merger:     merger,
		connectors: conns,
		breakers:   breakers,
		emitter:    emitter,
		logger:     logger,
		refreshCh:  make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[[]models.RawRecord] {
	return gobreaker.NewCircuitBreaker[[]models.RawRecord](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(breakerName string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(breakerName, breakerStateString(from), breakerStateString(to))
		},
	})
}

func breakerStateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Start launches the manual-refresh mailbox loop and, if scheduled is true,
// a periodic ticker loop running one refresh every interval (worker mode).
// api mode calls Start with scheduled=false so the manual refresh endpoint
// still works without a background schedule.
func (o *Orchestrator) Start(ctx context.Context, scheduled bool, interval time.Duration) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.running = true
	o.mu.Unlock()

	go o.mailboxLoop(ctx)
	if scheduled {
		go o.scheduleLoop(ctx, interval)
	}
	return nil
}

// Stop signals both loops to exit and waits for the mailbox loop to drain,
// allowing an in-flight refresh to complete (spec §5's cancellation policy).
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	o.mu.Unlock()

	close(o.stopCh)

	select {
	case <-o.stoppedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// RequestRefresh enqueues a manual refresh, collapsing concurrent requests
// into the same pending run (spec §4.5's single-slot coalescing mailbox).
// Returns false if the orchestrator hasn't been started.
func (o *Orchestrator) RequestRefresh() bool {
	if !o.IsRunning() {
		return false
	}
	select {
	case o.refreshCh <- struct{}{}:
	default:
		// already one queued; this request collapses into it
	}
	return true
}

func (o *Orchestrator) mailboxLoop(ctx context.Context) {
	defer close(o.stoppedCh)
	for {
		select {
		case <-o.stopCh:
			return
		case <-o.refreshCh:
			if _, err := o.RunOnce(ctx); err != nil {
				o.logger.WithContext(ctx).WithError(err).Error("manual refresh failed")
			}
		}
	}
}

func (o *Orchestrator) scheduleLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.RequestRefresh()
		}
	}
}

type fetchResult struct {
	name       string
	records    []models.RawRecord
	warnings   []string
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

// RunOnce performs exactly one refresh: fetch every connector concurrently,
// then merge and apply each connector's batch sequentially in the order its
// fetch completed (spec §4.5, §5).
func (o *Orchestrator) RunOnce(ctx context.Context) (Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Orchestrator.RunOnce")
	defer span.End()

	refreshStart := time.Now().UTC()
	log := o.logger.WithContext(ctx)
	log.Infof("starting refresh across %d connectors", len(o.connectors))

	resultsCh := make(chan fetchResult, len(o.connectors))
	var eg errgroup.Group
	for _, c := range o.connectors {
		c := c
		eg.Go(func() error {
			start := time.Now().UTC()
			records, warnings, err := o.fetchWithBreaker(ctx, c)
			resultsCh <- fetchResult{
				name:       c.Name(),
				records:    records,
				warnings:   warnings,
				err:        err,
				startedAt:  start,
				finishedAt: time.Now().UTC(),
			}
			return nil
		})
	}
	go func() {
		_ = eg.Wait()
		close(resultsCh)
	}()

	outcome := Outcome{AllFailed: true}

	for r := range resultsCh {
		status := models.ConnectorStatus{
			Source:         r.name,
			FetchedRecords: len(r.records),
			RanAt:          r.finishedAt,
		}

		statusLabel := "success"
		if r.err != nil {
			msg := r.err.Error()
			status.Error = &msg
			statusLabel = "error"
			log.WithError(r.err).Warnf("connector %s failed", r.name)
		} else {
			outcome.AllFailed = false
		}
		for _, w := range r.warnings {
			log.Warnf("connector %s: %s", r.name, w)
		}

		metrics.RecordConnectorFetch(r.name, statusLabel, r.finishedAt.Sub(r.startedAt).Seconds(), len(r.records))

		if err := o.store.RecordConnectorStatus(ctx, status); err != nil {
			return outcome, apierr.Repository(err, "record connector status for %s", r.name)
		}
		outcome.Statuses = append(outcome.Statuses, status)
		outcome.TotalFetched += len(r.records)

		if len(r.records) > 0 {
			batch := o.merger.MergeBatch(r.records)
			if err := o.merger.Apply(ctx, o.store, batch); err != nil {
				return outcome, apierr.Repository(err, "apply merge batch for %s", r.name)
			}
		}

		o.emitEvent(ctx, r, status)
	}

	if err := o.store.RecordRefreshCompleted(ctx); err != nil {
		return outcome, apierr.Repository(err, "record refresh completed")
	}

	outcomeLabel := "success"
	if outcome.AllFailed {
		outcomeLabel = "all_failed"
	}
	metrics.RecordRefresh(outcomeLabel, time.Since(refreshStart).Seconds())

	log.Infof("refresh completed: fetched=%d all_failed=%t duration=%s", outcome.TotalFetched, outcome.AllFailed, time.Since(refreshStart))
	return outcome, nil
}

func (o *Orchestrator) emitEvent(ctx context.Context, r fetchResult, status models.ConnectorStatus) {
	event := models.IngestionEvent{
		Source:         r.name,
		StartedAt:      r.startedAt,
		FinishedAt:     r.finishedAt,
		FetchedRecords: status.FetchedRecords,
	}
	if status.Error != nil {
		event.Error = *status.Error
	}
	if err := o.emitter.Emit(ctx, event); err != nil {
		o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source": r.name}).
			Warn("failed to emit ingestion event")
	}
}

func (o *Orchestrator) fetchWithBreaker(ctx context.Context, c connectors.Connector) ([]models.RawRecord, []string, error) {
	breaker := o.breakers[c.Name()]
	var warnings []string

	records, err := breaker.Execute(func() ([]models.RawRecord, error) {
		recs, w, ferr := c.Fetch(ctx)
		warnings = w
		return recs, ferr
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, nil, fmt.Errorf("circuit open for %s: %w", c.Name(), err)
		}
		return records, warnings, err
	}
	return records, warnings, nil
}
