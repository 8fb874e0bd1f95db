package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// BFAMetrics is returned by GET /v1/metrics/bfa.
type BFAMetrics struct {
	UpstreamErrors     float64 `json:"upstreamErrors"`
	CacheHitRate       float64 `json:"cacheHitRate"`
	TransfersSucceeded float64 `json:"transfersSucceeded"`
	TransfersRejected  float64 `json:"transfersRejected"`
	TransfersFailed    float64 `json:"transfersFailed"`
	InvitesSent        float64 `json:"invitesSent"`
	InvitesFailed      float64 `json:"invitesFailed"`
	MatrixSaves        float64 `json:"matrixSaves"`
	Period             string  `json:"period"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
