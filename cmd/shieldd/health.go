// health.go - Health reporting for shieldd.
package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

type healthStatus string

const (
	statusHealthy   healthStatus = "healthy"
	statusUnhealthy healthStatus = "unhealthy"
)

type componentHealth struct {
	Name      string       `json:"name"`
	Status    healthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	LastCheck time.Time    `json:"last_check"`
}

type systemHealth struct {
	Status     healthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version"`
	Components []componentHealth `json:"components"`
}

// healthChecker runs registered component probes on demand.
type healthChecker struct {
	mu        sync.Mutex
	checkers  map[string]func() error
	startTime time.Time
	version   string
}

func newHealthChecker(version string) *healthChecker {
	return &healthChecker{
		checkers:  make(map[string]func() error),
		startTime: time.Now(),
		version:   version,
	}
}

func (hc *healthChecker) Register(name string, probe func() error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checkers[name] = probe
}

func (hc *healthChecker) Check() systemHealth {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	overall := statusHealthy
	components := make([]componentHealth, 0, len(hc.checkers))
	for name, probe := range hc.checkers {
		c := componentHealth{Name: name, Status: statusHealthy, LastCheck: time.Now()}
		if err := probe(); err != nil {
			c.Status = statusUnhealthy
			c.Message = err.Error()
			overall = statusUnhealthy
		}
		components = append(components, c)
	}
	return systemHealth{
		Status:     overall,
		Timestamp:  time.Now(),
		Uptime:     time.Since(hc.startTime).String(),
		Version:    hc.version,
		Components: components,
	}
}

// Handler serves the health report; unhealthy systems answer 503.
func (hc *healthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hc.Check()
		w.Header().Set("Content-Type", "application/json")
		if report.Status != statusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
