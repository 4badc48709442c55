package cron

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/dashboard"
	"github.com/nomis52/taskboard/lifecycle"
	"github.com/nomis52/taskboard/logging"
	"github.com/nomis52/taskboard/metrics"
)

type fakeLister struct {
	instances []engineclient.ProcessInstance
	err       error
}

func (f *fakeLister) ListProcessInstances(ctx context.Context, definitionKey string) ([]engineclient.ProcessInstance, error) {
	return f.instances, f.err
}

type fakeBoard struct {
	refs    []dashboard.InstanceRef
	failing map[string]bool
}

func (f *fakeBoard) Progress(ctx context.Context, refs []dashboard.InstanceRef) map[string]dashboard.InstanceProgress {
	f.refs = refs
	out := make(map[string]dashboard.InstanceProgress, len(refs))
	for _, r := range refs {
		p := dashboard.InstanceProgress{InstanceID: r.InstanceID, ProcessKind: r.ProcessKind, State: lifecycle.InstanceLoaded}
		if f.failing[r.InstanceID] {
			p.State = lifecycle.InstanceUnknown
			p.Err = fmt.Errorf("%w: timeout", dashboard.ErrSnapshotUnavailable)
		}
		out[r.InstanceID] = p
	}
	return out
}

type fakeGauges struct {
	live  map[string]bool
	calls int
}

func (f *fakeGauges) RetainInstances(live map[string]bool) int {
	f.live = live
	f.calls++
	return 0
}

func TestSweep_Run(t *testing.T) {
	lister := &fakeLister{instances: []engineclient.ProcessInstance{
		{ID: "p1", ProcessDefinitionID: "order_process:1:abc"},
		{ID: "p2", ProcessDefinitionID: "invoice_process:4:def"},
	}}
	board := &fakeBoard{}
	gauges := &fakeGauges{}

	require.NoError(t, NewSweep(lister, board, gauges, logging.Discard()).Run(context.Background()))
	assert.Equal(t, []dashboard.InstanceRef{
		{InstanceID: "p1", ProcessKind: "order_process"},
		{InstanceID: "p2", ProcessKind: "invoice_process"},
	}, board.refs)
	assert.Equal(t, map[string]bool{"p1": true, "p2": true}, gauges.live)
}

func TestSweep_ListFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	board := &fakeBoard{}
	gauges := &fakeGauges{}

	err := NewSweep(lister, board, gauges, logging.Discard()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, board.refs)
	assert.Zero(t, gauges.calls, "gauges are kept when the active list is unknown")
}

func TestSweep_ReportsUnavailableSnapshots(t *testing.T) {
	lister := &fakeLister{instances: []engineclient.ProcessInstance{
		{ID: "p1", ProcessDefinitionID: "order_process:1:abc"},
		{ID: "p2", ProcessDefinitionID: "order_process:1:abc"},
	}}
	board := &fakeBoard{failing: map[string]bool{"p2": true}}

	err := NewSweep(lister, board, &fakeGauges{}, logging.Discard()).Run(context.Background())
	assert.ErrorIs(t, err, dashboard.ErrSnapshotUnavailable)
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestSweep_DropsGaugesOfEndedInstances(t *testing.T) {
	registry, err := metrics.NewScrapeRegistry()
	require.NoError(t, err)
	m, err := metrics.NewDashboardMetrics(registry)
	require.NoError(t, err)
	m.RecordProgress("order_process", "p1", 40)
	m.RecordProgress("order_process", "ended", 90)

	lister := &fakeLister{instances: []engineclient.ProcessInstance{{ID: "p1", ProcessDefinitionID: "order_process:1:abc"}}}
	require.NoError(t, NewSweep(lister, &fakeBoard{}, m, logging.Discard()).Run(context.Background()))

	w := httptest.NewRecorder()
	registry.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `instance_id="p1"`)
	assert.NotContains(t, w.Body.String(), `instance_id="ended"`)
}
