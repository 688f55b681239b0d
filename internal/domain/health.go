package domain

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

// EngineMetrics is returned by GET /v1/metrics/engine.
type EngineMetrics struct {
	UpstreamErrors     float64            `json:"upstreamErrors"`
	ReportCacheHitRate float64            `json:"reportCacheHitRate"`
	AnomaliesByType    map[string]float64 `json:"anomaliesByType"`
	BatchSucceeded     float64            `json:"batchSucceeded"`
	BatchFailed        float64            `json:"batchFailed"`
	TotalRequests      int64              `json:"totalRequests"`
	ErrorRate          float64            `json:"errorRate"`
	Period             string             `json:"period"`
}

// BatchItem is the outcome of one item inside a batch operation.
type BatchItem struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchResult tallies a batch operation. One failed item never aborts the
// rest of the batch.
type BatchResult struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
	Items     []BatchItem `json:"items"`
}

// Record appends an item outcome and updates the counters.
func (b *BatchResult) Record(id, detail string, err error) {
	b.Total++
	item := BatchItem{ID: id, Success: err == nil, Detail: detail}
	if err != nil {
		b.Failed++
		item.Error = err.Error()
	} else {
		b.Succeeded++
	}
	b.Items = append(b.Items, item)
}

// Skip counts an item that was examined but needed no change.
func (b *BatchResult) Skip() {
	b.Total++
	b.Skipped++
}
