package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthbot/healthbot/types"
	"healthbot/healthbot/utils/logging"

	"go.uber.org/zap"
)

var ErrUnhealthy = errors.New("backend reports unhealthy")

type HealthAPI interface {
	Health(ctx context.Context) (*types.Health, error)
}

// BackendStatus is the outcome of one health probe.
type BackendStatus struct {
	Environment string
	Latency     time.Duration
}

type HealthController struct {
	api HealthAPI
	now func() time.Time
}

func NewHealthController(client HealthAPI) *HealthController {
	return &HealthController{api: client, now: time.Now}
}

// Check probes the backend once. Any status other than "healthy" is
// ErrUnhealthy.
func (h *HealthController) Check(ctx context.Context) (BackendStatus, error) {
	start := h.now()
	res, err := h.api.Health(ctx)
	status := BackendStatus{Latency: h.now().Sub(start)}
	if err != nil {
		logging.AppLogger.Warn("health check failed", zap.Error(err))
		return status, err
	}
	status.Environment = res.Environment
	if res.Status != types.StatusHealthy {
		return status, fmt.Errorf("%w: %q", ErrUnhealthy, res.Status)
	}
	logging.AppLogger.Info("health check", zap.String("environment", res.Environment), zap.Duration("latency", status.Latency))
	return status, nil
}
