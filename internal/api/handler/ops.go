package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/simbok/delivery/internal/api/models"
	"github.com/simbok/delivery/internal/api/response"
	"github.com/simbok/delivery/internal/provider/resilience"
)

// readinessTimeout bounds each dependency ping.
const readinessTimeout = 2 * time.Second

// DependencyCheck pings a local dependency such as Postgres or Redis.
type DependencyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// OpsHandlerConfig configures an OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	// Resolver is the active route resolver name.
	Resolver string
	Registry *resilience.Registry
	Checks   []DependencyCheck
	Now      func() time.Time
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	resolver  string
	registry  *resilience.Registry
	checks    []DependencyCheck
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		resolver:  cfg.Resolver,
		registry:  cfg.Registry,
		checks:    cfg.Checks,
		now:       now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. It answers 503 while any
// dependency ping fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems, healthy := h.pingAll(r.Context())

	details := make(map[string]any, len(subsystems))
	for _, s := range subsystems {
		details[s.Name] = s.Status
	}

	status := http.StatusOK
	health := models.Health{Status: models.HealthStatusOK, Time: models.Timestamp(h.now()), Details: details}
	if !healthy {
		status = http.StatusServiceUnavailable
		health.Status = models.HealthStatusFail
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - dependency and provider circuit status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	subsystems, healthy := h.pingAll(r.Context())

	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Resolver:   h.resolver,
		Subsystems: subsystems,
		Providers:  []models.ProviderStatus{},
	}

	if h.registry != nil {
		for _, ph := range h.registry.GetAllHealth() {
			ps := providerStatus(ph)
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}
	if !healthy {
		status.Status = models.HealthStatusFail
	}

	response.OK(w, r, status)
}

func (h *OpsHandler) pingAll(ctx context.Context) ([]models.SubsystemStatus, bool) {
	subsystems := make([]models.SubsystemStatus, 0, len(h.checks))
	healthy := true
	for _, c := range h.checks {
		pingCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := c.Ping(pingCtx)
		cancel()

		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err != nil {
			healthy = false
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		subsystems = append(subsystems, s)
	}
	return subsystems, healthy
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            ph.Name,
		Status:              models.HealthStatusOK,
		CircuitState:        ph.CircuitState.String(),
		Requests:            ph.Counts.Requests,
		ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
	}
	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if ph.LastSuccessAt != nil {
		t := models.Timestamp(*ph.LastSuccessAt)
		ps.LastSuccessAt = &t
	}
	if ph.LastFailureAt != nil {
		t := models.Timestamp(*ph.LastFailureAt)
		ps.LastFailureAt = &t
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}
