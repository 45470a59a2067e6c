package core

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// healthCheckTimeout is the maximum time allowed for all health probes to
// complete. If any probe exceeds this deadline, the health check reports
// unhealthy.
const healthCheckTimeout = 2 * time.Second

// serviceName identifies this service in the health payload.
const serviceName = "plara-payment-api"

// HealthProbe defines the interface for a subsystem health check.
type HealthProbe interface {
	// Name returns a human-readable identifier for the probe (e.g., "polar").
	Name() string

	// Check performs the health check against the subsystem. It should
	// respect the context deadline and return an error if the subsystem is
	// unhealthy or unreachable.
	Check(ctx context.Context) error
}

// componentStatus represents the health state of a single subsystem.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status      string                     `json:"status"`
	Service     string                     `json:"service"`
	Environment string                     `json:"environment"`
	Timestamp   time.Time                  `json:"timestamp"`
	Components  map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth executes all registered health probes concurrently with a
// short timeout. Returns 200 OK if all probes report healthy, 503 Service
// Unavailable if any subsystem fails or the global timeout is exceeded.
//
// This endpoint is public and is mounted at GET / and GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "healthy",
		Service:     serviceName,
		Environment: s.Config.Environment,
		Timestamp:   time.Now().UTC(),
	}

	probes := s.HealthProbes
	if len(probes) == 0 {
		JSON(w, r, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	// Each probe runs in its own goroutine and writes to its own slot, so no
	// locking is needed around the results slice.
	results := make([]error, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, probe := range probes {
		i, probe := i, probe
		g.Go(func() error {
			defer func() {
				if rvr := recover(); rvr != nil {
					results[i] = fmt.Errorf("probe panicked: %v", rvr)
				}
			}()
			results[i] = probe.Check(gctx)
			return nil
		})
	}
	_ = g.Wait()

	resp.Components = make(map[string]componentStatus, len(probes))
	healthy := true
	for i, probe := range probes {
		if err := results[i]; err != nil {
			healthy = false
			resp.Components[probe.Name()] = componentStatus{
				Status:  "unhealthy",
				Message: err.Error(),
			}
			continue
		}
		resp.Components[probe.Name()] = componentStatus{Status: "healthy"}
	}

	if !healthy {
		resp.Status = "unhealthy"
		JSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}

	JSON(w, r, http.StatusOK, resp)
}
