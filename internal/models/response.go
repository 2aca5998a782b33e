package models

// HealthResponse reports liveness and the analysis configuration in effect
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Timestamp  string `json:"timestamp"`
	Dialect    string `json:"dialect"`
	MinSamples int    `json:"min_samples"`
	AsyncJobs  bool   `json:"async_jobs"`
}

// SubmitResponse is returned when a job is queued for the worker
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// BatchSubmitResponse lists job ids in request order
type BatchSubmitResponse struct {
	JobIDs []string `json:"job_ids"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
