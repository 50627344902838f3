package health

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matrixise/guild-dashboard/internal/dashboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeView struct {
	state   dashboard.ViewState
	updated time.Time
}

func (v fakeView) Current() dashboard.ViewState { return v.state }
func (v fakeView) UpdatedAt() time.Time        { return v.updated }

type fakeRPC struct {
	err       error
	endpoints map[string]bool
}

func (r fakeRPC) ChainID(context.Context) (*big.Int, error) {
	if r.err != nil {
		return nil, r.err
	}
	return big.NewInt(1), nil
}

func (r fakeRPC) GetEndpointsHealth() map[string]bool { return r.endpoints }

type fakeDB struct{ err error }

func (d fakeDB) Ping(context.Context) error { return d.err }

type fakeRefresh struct {
	last     time.Time
	err      error
	interval time.Duration
}

func (r fakeRefresh) LastRun() (time.Time, error)      { return r.last, r.err }
func (r fakeRefresh) ExpectedInterval() time.Duration { return r.interval }

func ready() fakeView {
	return fakeView{
		state: dashboard.ViewState{
			Phase:     dashboard.PhaseReady,
			Members:   dashboard.Figure{State: dashboard.FigureReady, Count: 3},
			Proposals: dashboard.Figure{State: dashboard.FigureReady, Count: 1},
		},
		updated: fixedNow.Add(-30 * time.Second),
	}
}

func newChecker(view ViewSource, opts Options) *Checker {
	c := NewChecker(view, opts)
	c.now = func() time.Time { return fixedNow }
	c.started = fixedNow.Add(-time.Hour)
	return c
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		view    fakeView
		opts    Options
		want    CheckStatus
		checkOf string
		detail  CheckStatus
	}{
		{
			name:    "ready view with no optional dependencies",
			view:    ready(),
			want:    StatusOK,
			checkOf: "data_source",
			detail:  StatusOK,
		},
		{
			name:    "loading view is healthy",
			view:    fakeView{state: dashboard.ViewState{Phase: dashboard.PhaseLoading}},
			want:    StatusOK,
			checkOf: "data_source",
			detail:  StatusOK,
		},
		{
			name:    "failed metadata is an error",
			view:    fakeView{state: dashboard.ViewState{Phase: dashboard.PhaseFailed, Err: "metadata: boom"}},
			want:    StatusError,
			checkOf: "data_source",
			detail:  StatusError,
		},
		{
			name: "unavailable figure degrades",
			view: func() fakeView {
				v := ready()
				v.state.Diagnostics = []dashboard.Diagnostic{{Query: "members", Reason: "boom"}}
				return v
			}(),
			want:    StatusDegraded,
			checkOf: "data_source",
			detail:  StatusDegraded,
		},
		{
			name:    "database down is an error",
			view:    ready(),
			opts:    Options{DB: fakeDB{err: errors.New("connection refused")}},
			want:    StatusError,
			checkOf: "database",
			detail:  StatusError,
		},
		{
			name:    "database up",
			view:    ready(),
			opts:    Options{DB: fakeDB{}},
			want:    StatusOK,
			checkOf: "database",
			detail:  StatusOK,
		},
		{
			name:    "RPC unreachable only degrades",
			view:    ready(),
			opts:    Options{RPC: fakeRPC{err: errors.New("no healthy endpoints")}},
			want:    StatusDegraded,
			checkOf: "rpc_endpoints",
			detail:  StatusError,
		},
		{
			name: "some RPC endpoints unhealthy",
			view: ready(),
			opts: Options{RPC: fakeRPC{endpoints: map[string]bool{
				"https://a.example.com": true,
				"https://b.example.com": false,
			}}},
			want:    StatusDegraded,
			checkOf: "rpc_endpoints",
			detail:  StatusDegraded,
		},
		{
			name:    "all RPC endpoints healthy",
			view:    ready(),
			opts:    Options{RPC: fakeRPC{endpoints: map[string]bool{"https://a.example.com": true}}},
			want:    StatusOK,
			checkOf: "rpc_endpoints",
			detail:  StatusOK,
		},
		{
			name:    "refresh not yet executed",
			view:    ready(),
			opts:    Options{Refresh: fakeRefresh{interval: time.Minute}},
			want:    StatusOK,
			checkOf: "refresh",
			detail:  StatusOK,
		},
		{
			name:    "refresh on schedule",
			view:    ready(),
			opts:    Options{Refresh: fakeRefresh{last: fixedNow.Add(-time.Minute), interval: time.Minute}},
			want:    StatusOK,
			checkOf: "refresh",
			detail:  StatusOK,
		},
		{
			name:    "refresh stalled",
			view:    ready(),
			opts:    Options{Refresh: fakeRefresh{last: fixedNow.Add(-5 * time.Minute), interval: time.Minute}},
			want:    StatusDegraded,
			checkOf: "refresh",
			detail:  StatusDegraded,
		},
		{
			name:    "last refresh failed",
			view:    ready(),
			opts:    Options{Refresh: fakeRefresh{last: fixedNow, err: errors.New("boom"), interval: time.Minute}},
			want:    StatusDegraded,
			checkOf: "refresh",
			detail:  StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := newChecker(tt.view, tt.opts).Check(context.Background())
			assert.Equal(t, tt.want, resp.Status)
			require.Contains(t, resp.Checks, tt.checkOf)
			assert.Equal(t, tt.detail, resp.Checks[tt.checkOf].Status)
			assert.Equal(t, "1h0m0s", resp.Uptime)
		})
	}
}

func TestCheckOmitsUnconfiguredDependencies(t *testing.T) {
	resp := newChecker(ready(), Options{}).Check(context.Background())
	assert.Len(t, resp.Checks, 1)
	assert.NotContains(t, resp.Checks, "database")
	assert.NotContains(t, resp.Checks, "rpc_endpoints")
	assert.NotContains(t, resp.Checks, "refresh")
}

func TestHandler(t *testing.T) {
	t.Run("healthy returns 200", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newChecker(ready(), Options{}).Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, StatusOK, body.Status)
	})

	t.Run("degraded still returns 200", func(t *testing.T) {
		rec := httptest.NewRecorder()
		opts := Options{RPC: fakeRPC{err: errors.New("down")}}
		newChecker(ready(), opts).Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("error returns 503", func(t *testing.T) {
		rec := httptest.NewRecorder()
		view := fakeView{state: dashboard.ViewState{Phase: dashboard.PhaseFailed, Err: "boom"}}
		newChecker(view, Options{}).Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("rejects other methods", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newChecker(ready(), Options{}).Handler()(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
