// Package handlers holds the pieces of the HTTP layer that do not need the
// server itself: health checks and fiber middleware.
package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECK INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker reports whether the service can serve matching and
// admission requests.
type HealthChecker interface {
	// Check runs every registered check and aggregates the results.
	Check(ctx context.Context) HealthStatus

	// AddCheck registers a check the service cannot work without.
	AddCheck(name string, check HealthCheckFunc)

	// AddOptionalCheck registers a check whose failure only degrades the
	// service (e.g. the match cache).
	AddOptionalCheck(name string, check HealthCheckFunc)

	// RemoveCheck removes a named check.
	RemoveCheck(name string)

	// AddStats attaches counters reported under Stats. They never affect
	// Healthy or Degraded.
	AddStats(name string, stats StatsFunc)
}

// HealthCheckFunc performs a single check. A non-nil error means it failed.
type HealthCheckFunc func(ctx context.Context) error

// StatsFunc returns a JSON-encodable snapshot, e.g. event bus counters.
type StatsFunc func() interface{}

// HealthStatus represents the overall health status of the service.
type HealthStatus struct {
	// Healthy is false when a required check failed.
	Healthy bool `json:"healthy"`

	// Degraded is true when only optional checks failed.
	Degraded bool `json:"degraded,omitempty"`

	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Stats     map[string]interface{} `json:"stats,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

type registeredCheck struct {
	fn       HealthCheckFunc
	optional bool
}

// CompositeHealthChecker runs named checks in parallel, each under its own
// timeout.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]registeredCheck
	stats     map[string]StatsFunc
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates a checker with a 5s per-check timeout.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]registeredCheck),
		stats:     make(map[string]StatsFunc),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout sets the timeout for individual health checks.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// AddCheck registers a required check.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registeredCheck{fn: check}
}

// AddOptionalCheck registers a check that can only degrade the status.
func (c *CompositeHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registeredCheck{fn: check, optional: true}
}

// RemoveCheck removes a named health check.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// AddStats registers a stats source.
func (c *CompositeHealthChecker) AddStats(name string, stats StatsFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[name] = stats
}

// Check performs all health checks and returns the aggregated status.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]registeredCheck, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	stats := make(map[string]StatsFunc, len(c.stats))
	for name, fn := range c.stats {
		stats[name] = fn
	}
	timeout := c.timeout
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}
	if len(stats) > 0 {
		status.Stats = make(map[string]interface{}, len(stats))
		for name, fn := range stats {
			status.Stats[name] = fn()
		}
	}

	if len(checks) == 0 {
		status.Message = "No health checks registered"
		return status
	}

	type namedResult struct {
		name   string
		result CheckResult
	}

	var wg sync.WaitGroup
	results := make(chan namedResult, len(checks))

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check registeredCheck) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := check.fn(checkCtx)

			result := CheckResult{
				Healthy:  err == nil,
				Optional: check.optional,
				Duration: time.Since(start).Round(time.Millisecond).String(),
				Message:  "OK",
			}
			if err != nil {
				result.Message = err.Error()
			}
			results <- namedResult{name, result}
		}(name, check)
	}

	wg.Wait()
	close(results)

	var failedRequired, failedOptional []string
	for r := range results {
		status.Checks[r.name] = r.result
		if r.result.Healthy {
			continue
		}
		if r.result.Optional {
			failedOptional = append(failedOptional, r.name)
		} else {
			failedRequired = append(failedRequired, r.name)
		}
	}
	sort.Strings(failedRequired)
	sort.Strings(failedOptional)

	switch {
	case len(failedRequired) > 0:
		status.Healthy = false
		status.Message = "Some checks failed: " + strings.Join(failedRequired, ", ")
	case len(failedOptional) > 0:
		status.Degraded = true
		status.Message = "Degraded: " + strings.Join(failedOptional, ", ")
	default:
		status.Message = "All checks passed"
	}

	return status
}

// ══════════════════════════════════════════════════════════════════════════════
// PREDEFINED HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is anything that can report connectivity: the Postgres pool and
// the Redis cache both are.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingCheck creates a check that pings p.
func NewPingCheck(p Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// NOOP IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NoopHealthChecker always returns healthy status.
type NoopHealthChecker struct {
	startTime time.Time
}

// NewNoopHealthChecker creates a new noop health checker.
func NewNoopHealthChecker() *NoopHealthChecker {
	return &NoopHealthChecker{startTime: time.Now()}
}

// Check always returns healthy status.
func (n *NoopHealthChecker) Check(ctx context.Context) HealthStatus {
	return HealthStatus{
		Healthy:   true,
		Message:   "OK",
		Uptime:    time.Since(n.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
}

// AddCheck is a no-op.
func (n *NoopHealthChecker) AddCheck(name string, check HealthCheckFunc) {}

// AddOptionalCheck is a no-op.
func (n *NoopHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {}

// RemoveCheck is a no-op.
func (n *NoopHealthChecker) RemoveCheck(name string) {}

// AddStats is a no-op.
func (n *NoopHealthChecker) AddStats(name string, stats StatsFunc) {}
