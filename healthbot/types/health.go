package types

const StatusHealthy = "healthy"

// Health mirrors GET /health.
type Health struct {
	Status      string `json:"status"`
	Environment string `json:"environment,omitempty"`
}
