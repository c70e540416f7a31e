package domain

// Status is the panel status payload returned by GET /status.
type Status struct {
	System  SystemStatus `json:"system"`
	Tunnels Counts       `json:"tunnels"`
	Nodes   Counts       `json:"nodes"`
}

// SystemStatus describes the panel host resources.
type SystemStatus struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
}

// Counts is a total/active pair.
type Counts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// Version is returned by GET /status/version.
type Version struct {
	Version string `json:"version"`
}
