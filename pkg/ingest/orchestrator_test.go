package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calhealth/trustscore/internal/repositories/facility"
	"github.com/calhealth/trustscore/pkg/connectors"
	"github.com/calhealth/trustscore/pkg/events"
	"github.com/calhealth/trustscore/pkg/merging"
	"github.com/calhealth/trustscore/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

type fakeConnector struct {
	name    string
	records []models.RawRecord
	err     error
	calls   atomic.Int32
}

func (c *fakeConnector) Name() string { return c.name }

func (c *fakeConnector) Fetch(ctx context.Context) ([]models.RawRecord, []string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, nil, c.err
	}
	return c.records, nil, nil
}

func recordsFor(jurisdiction string, n int) []models.RawRecord {
	recs := make([]models.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, models.RawRecord{
			Jurisdiction:      jurisdiction,
			SourceFacilityKey: fmt.Sprintf("%s-%d", jurisdiction, i),
			Name:              fmt.Sprintf("Diner %d", i),
			Address:           "1 Main St",
			City:              "Anytown",
			State:             "CA",
			PostalCode:        "90001",
		})
	}
	return recs
}

func newTestOrchestrator(conns []*fakeConnector) (*Orchestrator, facility.Store) {
	store := facility.NewMemoryStore()
	merger := merging.NewEngine(testLogger())
	typed := make([]connectors.Connector, 0, len(conns))
	for _, c := range conns {
		typed = append(typed, c)
	}
	return NewOrchestrator(store, typed, merger, events.NoopEmitter{}, testLogger()), store
}

func TestRunOnce_S6_PartialFailureStillCountsSuccessfulConnectors(t *testing.T) {
	conns := []*fakeConnector{
		{name: "a", records: recordsFor("A", 10)},
		{name: "b", records: recordsFor("B", 10)},
		{name: "c", records: recordsFor("C", 10)},
		{name: "d", err: fmt.Errorf("upstream unreachable")},
		{name: "e", err: fmt.Errorf("upstream timeout")},
	}
	o, store := newTestOrchestrator(conns)

	outcome, err := o.RunOnce(context.Background())
	require.NoError(t, err)

	assert.False(t, outcome.AllFailed)
	assert.Equal(t, 30, outcome.TotalFetched)
	assert.Len(t, outcome.Statuses, 5)

	failed := 0
	for _, s := range outcome.Statuses {
		if s.Error != nil {
			failed++
		}
	}
	assert.Equal(t, 2, failed)

	stats, err := store.IngestionStats(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.UniqueFacilities, 30)
	assert.Len(t, stats.ConnectorStats, 5)
	require.NotNil(t, stats.LastRefreshAt)
}

func TestRunOnce_AllConnectorsFailingSetsAllFailed(t *testing.T) {
	conns := []*fakeConnector{
		{name: "a", err: fmt.Errorf("down")},
		{name: "b", err: fmt.Errorf("down")},
	}
	o, _ := newTestOrchestrator(conns)

	outcome, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.AllFailed)
	assert.Equal(t, 0, outcome.TotalFetched)
}

func TestRunOnce_NoConnectorsIsVacuouslyAllFailed(t *testing.T) {
	o, _ := newTestOrchestrator(nil)
	outcome, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.AllFailed)
}

func TestRequestRefresh_ReturnsFalseBeforeStart(t *testing.T) {
	o, _ := newTestOrchestrator([]*fakeConnector{{name: "a", records: recordsFor("A", 1)}})
	assert.False(t, o.RequestRefresh())
}

func TestRequestRefresh_CoalescesConcurrentRequests(t *testing.T) {
	c := &fakeConnector{name: "a", records: recordsFor("A", 1)}
	o, _ := newTestOrchestrator([]*fakeConnector{c})

	require.NoError(t, o.Start(context.Background(), false, time.Hour))
	defer func() { _ = o.Stop(context.Background()) }()

	assert.True(t, o.RequestRefresh())
	assert.True(t, o.RequestRefresh())
	assert.True(t, o.RequestRefresh())

	require.Eventually(t, func() bool {
		return c.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestStartTwice_ReturnsErrAlreadyRunning(t *testing.T) {
	o, _ := newTestOrchestrator([]*fakeConnector{{name: "a", records: recordsFor("A", 1)}})
	require.NoError(t, o.Start(context.Background(), false, time.Hour))
	defer func() { _ = o.Stop(context.Background()) }()

	assert.ErrorIs(t, o.Start(context.Background(), false, time.Hour), ErrAlreadyRunning)
}

func TestStop_WaitsForMailboxLoopToDrain(t *testing.T) {
	o, _ := newTestOrchestrator([]*fakeConnector{{name: "a", records: recordsFor("A", 1)}})
	require.NoError(t, o.Start(context.Background(), false, time.Hour))

	require.NoError(t, o.Stop(context.Background()))
	assert.False(t, o.IsRunning())
}
