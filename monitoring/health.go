package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"

	"hyprice/metrics"
)

type HealthStatus struct {
	Status          string            `json:"status"`
	Uptime          string            `json:"uptime"`
	StartTime       time.Time         `json:"start_time"`
	MemoryUsage     uint64            `json:"memory_usage"`
	GoroutineCount  int               `json:"goroutine_count"`
	ActiveLoops     int               `json:"active_loops"`
	RefreshPasses   uint64            `json:"refresh_passes"`
	FetchErrors     uint64            `json:"fetch_errors"`
	LastRefresh     string            `json:"last_refresh,omitempty"`
	ComponentStatus map[string]string `json:"component_status"`
}

var (
	startTime = time.Now()

	mu           sync.RWMutex
	healthChecks = make(map[string]func() bool)
	loopCounter  func() int
)

func RegisterHealthCheck(name string, check func() bool) {
	mu.Lock()
	healthChecks[name] = check
	mu.Unlock()
}

// RegisterLoopCounter wires the scheduler's active-loop count into the
// health report.
func RegisterLoopCounter(count func() int) {
	mu.Lock()
	loopCounter = count
	mu.Unlock()
}

func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := HealthStatus{
		Status:          "ok",
		Uptime:          time.Since(startTime).String(),
		StartTime:       startTime,
		MemoryUsage:     m.Alloc,
		GoroutineCount:  runtime.NumGoroutine(),
		ComponentStatus: make(map[string]string),
	}

	passes, fetchErrors, lastRefresh, _ := metrics.GetStats()
	status.RefreshPasses = passes
	status.FetchErrors = fetchErrors
	if passes > 0 {
		status.LastRefresh = lastRefresh.Format(time.RFC3339)
	}

	mu.RLock()
	if loopCounter != nil {
		status.ActiveLoops = loopCounter()
	}
	// Check all registered components
	for name, check := range healthChecks {
		if check() {
			status.ComponentStatus[name] = "healthy"
		} else {
			status.ComponentStatus[name] = "unhealthy"
			status.Status = "degraded"
		}
	}
	mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
