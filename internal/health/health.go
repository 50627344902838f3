package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/matrixise/guild-dashboard/internal/dashboard"
)

// ViewSource exposes the dashboard's latest view state.
type ViewSource interface {
	Current() dashboard.ViewState
	UpdatedAt() time.Time
}

// RPCPool is the set of JSON-RPC endpoints used for allowance requests.
type RPCPool interface {
	ChainID(ctx context.Context) (*big.Int, error)
	GetEndpointsHealth() map[string]bool
}

// Pinger is a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RefreshTracker reports the periodic refresh cadence.
type RefreshTracker interface {
	LastRun() (time.Time, error)
	ExpectedInterval() time.Duration
}

// Checker performs health checks on application dependencies. Optional
// dependencies left nil are not reported.
type Checker struct {
	view    ViewSource
	rpc     RPCPool
	db      Pinger
	refresh RefreshTracker
	started time.Time
	now     func() time.Time
}

// Options lists the optional dependencies of a Checker.
type Options struct {
	RPC     RPCPool
	DB      Pinger
	Refresh RefreshTracker
}

// NewChecker creates a new health checker
func NewChecker(view ViewSource, opts Options) *Checker {
	return &Checker{
		view:    view,
		rpc:     opts.RPC,
		db:      opts.DB,
		refresh: opts.Refresh,
		started: time.Now(),
		now:     time.Now,
	}
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// rank orders statuses from best to worst.
func (s CheckStatus) rank() int {
	switch s {
	case StatusError:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// Check performs all health checks and returns the aggregated status.
// Only an unreachable data source or database makes the service unhealthy;
// the RPC pool and the refresh cadence degrade it.
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overall := StatusOK

	add := func(name string, detail CheckDetail, worst CheckStatus) {
		checks[name] = detail
		status := detail.Status
		if status.rank() > worst.rank() {
			status = worst
		}
		if status.rank() > overall.rank() {
			overall = status
		}
	}

	add("data_source", c.checkDataSource(), StatusError)
	if c.db != nil {
		add("database", c.checkDatabase(ctx), StatusError)
	}
	if c.rpc != nil {
		add("rpc_endpoints", c.checkRPC(ctx), StatusDegraded)
	}
	if c.refresh != nil {
		add("refresh", c.checkRefresh(), StatusDegraded)
	}

	now := c.now()
	return HealthResponse{
		Status:    overall,
		Timestamp: now,
		Checks:    checks,
		Uptime:    now.Sub(c.started).Round(time.Second).String(),
	}
}

// checkDataSource reports the phase of the treasury metadata query
func (c *Checker) checkDataSource() CheckDetail {
	state := c.view.Current()
	switch state.Phase {
	case dashboard.PhaseFailed:
		return CheckDetail{
			Status:  StatusError,
			Message: "treasury metadata unavailable: " + state.Err,
		}
	case dashboard.PhaseLoading:
		return CheckDetail{
			Status:  StatusOK,
			Message: "treasury metadata loading",
		}
	}

	if n := len(state.Diagnostics); n > 0 {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d figure(s) unavailable", n),
		}
	}
	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("updated %s ago", c.now().Sub(c.view.UpdatedAt()).Round(time.Second)),
	}
}

// checkDatabase verifies PostgreSQL connectivity
func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "database unreachable: " + err.Error(),
		}
	}
	return CheckDetail{Status: StatusOK, Message: "database connection healthy"}
}

// checkRPC verifies that at least one RPC endpoint answers
func (c *Checker) checkRPC(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := c.rpc.ChainID(ctx); err != nil {
		slog.Error("Health check: RPC endpoint failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "RPC endpoint not responding: " + err.Error(),
		}
	}

	endpoints := c.rpc.GetEndpointsHealth()
	healthy := 0
	for _, ok := range endpoints {
		if ok {
			healthy++
		}
	}

	if healthy == len(endpoints) {
		return CheckDetail{Status: StatusOK, Message: "all RPC endpoints healthy"}
	}
	return CheckDetail{
		Status:  StatusDegraded,
		Message: fmt.Sprintf("%d/%d RPC endpoints healthy", healthy, len(endpoints)),
	}
}

// checkRefresh verifies the dashboard is refreshed on schedule (2x interval grace)
func (c *Checker) checkRefresh() CheckDetail {
	lastRun, err := c.refresh.LastRun()
	if lastRun.IsZero() {
		return CheckDetail{Status: StatusOK, Message: "refresh not yet executed (startup)"}
	}
	if err != nil {
		return CheckDetail{Status: StatusDegraded, Message: "last refresh failed: " + err.Error()}
	}

	interval := c.refresh.ExpectedInterval()
	since := c.now().Sub(lastRun)
	if since > 2*interval {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no refresh in %s (expected every %s)", since.Round(time.Second), interval),
		}
	}
	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("last refreshed %s ago", since.Round(time.Second)),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.Check(r.Context())

		statusCode := http.StatusOK
		if status.Status == StatusError {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	}
}
