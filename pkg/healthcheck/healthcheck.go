// Package healthcheck reports on the dependencies the API needs: the
// database, the optional Redis revocation store and the upstream services.
package healthcheck

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check is the outcome of one probe
type Check struct {
	Name      string
	Status    Status
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
	Details   map[string]interface{}
}

// Report aggregates every probe; the worst status wins
type Report struct {
	Status    Status
	Version   string
	Timestamp time.Time
	Checks    []Check
	Duration  time.Duration
}

// Checker probes one dependency. A nil error means healthy; an error made
// with Degraded means usable but impaired.
type Checker interface {
	Check(ctx context.Context) (map[string]interface{}, error)
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) (map[string]interface{}, error)

// Check implements Checker
func (f CheckerFunc) Check(ctx context.Context) (map[string]interface{}, error) {
	return f(ctx)
}

type degradedError struct{ msg string }

func (e degradedError) Error() string { return e.msg }

// Degraded marks a probe result as impaired rather than failed
func Degraded(format string, args ...interface{}) error {
	return degradedError{msg: fmt.Sprintf(format, args...)}
}

type registration struct {
	name     string
	checker  Checker
	optional bool
}

// Option tunes a registration
type Option func(*registration)

// Optional downgrades failures of this dependency to degraded. Use it for
// anything the API can serve without.
func Optional() Option {
	return func(r *registration) { r.optional = true }
}

// HealthCheck runs the registered probes and caches the report briefly so
// frequent polling does not hammer dependencies.
type HealthCheck struct {
	version string
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.RWMutex
	checks   map[string]registration
	cacheTTL time.Duration
	cached   *Report

	group singleflight.Group
}

// New creates a new health check instance
func New(version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		version:  version,
		logger:   logger,
		timeout:  10 * time.Second,
		checks:   make(map[string]registration),
		cacheTTL: 5 * time.Second,
	}
}

// Register adds or replaces a named probe
func (h *HealthCheck) Register(name string, checker Checker, opts ...Option) {
	reg := registration{name: name, checker: checker}
	for _, opt := range opts {
		opt(&reg)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = reg
	h.cached = nil
}

// SetCacheTTL sets how long a report is reused
func (h *HealthCheck) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
	h.cached = nil
}

// Check returns the cached report or runs every probe. Concurrent callers
// share a single run, which outlives the caller that started it and is
// bounded only by the probe timeout.
func (h *HealthCheck) Check(ctx context.Context) Report {
	h.mu.RLock()
	if h.cached != nil && time.Since(h.cached.Timestamp) < h.cacheTTL {
		report := *h.cached
		h.mu.RUnlock()
		return report
	}
	h.mu.RUnlock()

	v, _, _ := h.group.Do("report", func() (interface{}, error) {
		report := h.run(context.WithoutCancel(ctx))

		h.mu.Lock()
		h.cached = &report
		h.mu.Unlock()

		return report, nil
	})
	return v.(Report)
}

func (h *HealthCheck) run(ctx context.Context) Report {
	h.mu.RLock()
	regs := make([]registration, 0, len(h.checks))
	for _, reg := range h.checks {
		regs = append(regs, reg)
	}
	h.mu.RUnlock()

	sort.Slice(regs, func(i, j int) bool { return regs[i].name < regs[j].name })

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	checks := make([]Check, len(regs))

	var wg sync.WaitGroup
	for i, reg := range regs {
		wg.Add(1)
		go func(i int, reg registration) {
			defer wg.Done()
			checks[i] = probe(ctx, reg)
		}(i, reg)
	}
	wg.Wait()

	report := Report{
		Status:    StatusHealthy,
		Version:   h.version,
		Timestamp: start,
		Checks:    checks,
		Duration:  time.Since(start),
	}
	for _, c := range checks {
		report.Status = worst(report.Status, c.Status)
		if c.Status != StatusHealthy {
			h.logger.Warn("Dependency check failed",
				zap.String("check", c.Name),
				zap.String("status", string(c.Status)),
				zap.String("message", c.Message),
			)
		}
	}
	return report
}

func probe(ctx context.Context, reg registration) Check {
	start := time.Now()
	details, err := reg.checker.Check(ctx)

	c := Check{
		Name:      reg.name,
		Status:    StatusHealthy,
		CheckedAt: start,
		Duration:  time.Since(start),
		Details:   details,
	}
	if err == nil {
		return c
	}

	c.Message = err.Error()
	var degraded degradedError
	if errors.As(err, &degraded) || reg.optional {
		c.Status = StatusDegraded
	} else {
		c.Status = StatusUnhealthy
	}
	return c
}

func worst(a, b Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// LivenessHandler answers as long as the process serves requests
func (h *HealthCheck) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "alive",
			"version":   h.version,
			"timestamp": time.Now().UTC(),
		})
	}
}

// Handler returns the full report; unhealthy answers 503
func (h *HealthCheck) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Check(r.Context())

		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

// ReadinessHandler answers 503 while a required dependency is down.
// Degraded still counts as ready.
func (h *HealthCheck) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Check(r.Context())

		if report.Status == StatusUnhealthy {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not_ready",
				"checks": report.Checks,
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ready",
			"degraded":  report.Status == StatusDegraded,
			"timestamp": time.Now().UTC(),
		})
	}
}

// DatabaseChecker pings the pool and flags a nearly exhausted one
func DatabaseChecker(db *sql.DB) Checker {
	return CheckerFunc(func(ctx context.Context) (map[string]interface{}, error) {
		if err := db.PingContext(ctx); err != nil {
			return nil, err
		}

		stats := db.Stats()
		details := map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"max_open":         stats.MaxOpenConnections,
			"wait_count":       stats.WaitCount,
		}

		if stats.MaxOpenConnections > 0 && stats.InUse*10 > stats.MaxOpenConnections*9 {
			return details, Degraded("connection pool %d/%d in use", stats.InUse, stats.MaxOpenConnections)
		}
		return details, nil
	})
}

// RedisChecker pings Redis
func RedisChecker(client redis.UniversalClient) Checker {
	return CheckerFunc(func(ctx context.Context) (map[string]interface{}, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// HTTPChecker treats any answer below 500 from url as reachable
func HTTPChecker(client *http.Client, url string) Checker {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return CheckerFunc(func(ctx context.Context) (map[string]interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		resp.Body.Close()

		details := map[string]interface{}{"status_code": resp.StatusCode}
		if resp.StatusCode >= http.StatusInternalServerError {
			return details, fmt.Errorf("upstream answered %d", resp.StatusCode)
		}
		return details, nil
	})
}

type checkJSON struct {
	Name       string                 `json:"name"`
	Status     Status                 `json:"status"`
	Message    string                 `json:"message,omitempty"`
	CheckedAt  time.Time              `json:"checked_at"`
	DurationMS int64                  `json:"duration_ms"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// MarshalJSON renders the duration in milliseconds
func (c Check) MarshalJSON() ([]byte, error) {
	return json.Marshal(checkJSON{
		Name:       c.Name,
		Status:     c.Status,
		Message:    c.Message,
		CheckedAt:  c.CheckedAt,
		DurationMS: c.Duration.Milliseconds(),
		Details:    c.Details,
	})
}

// MarshalJSON renders the duration in milliseconds
func (r Report) MarshalJSON() ([]byte, error) {
	checks := r.Checks
	if checks == nil {
		checks = []Check{}
	}
	return json.Marshal(struct {
		Status     Status    `json:"status"`
		Version    string    `json:"version"`
		Timestamp  time.Time `json:"timestamp"`
		Checks     []Check   `json:"checks"`
		DurationMS int64     `json:"duration_ms"`
	}{r.Status, r.Version, r.Timestamp, checks, r.Duration.Milliseconds()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
