package domain

// CoreHealth is the per-core connectivity report from GET /core-health/health.
type CoreHealth struct {
	Core          string                `json:"core"`
	NodesStatus   map[string]PeerStatus `json:"nodes_status"`
	ServersStatus map[string]PeerStatus `json:"servers_status"`
}

// PeerStatus is the link state of one node or server for a core.
type PeerStatus struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	Status       string  `json:"status"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// StatusText returns the operator-facing label for a link status.
func StatusText(status string) string {
	switch status {
	case "connected":
		return "Operational"
	case "connecting":
		return "Establishing Link"
	case "reconnecting":
		return "Restoring Array"
	case "failed":
		return "Critical Failure"
	default:
		return "Unknown Status"
	}
}

// ResetConfig is the periodic reset schedule of a core.
type ResetConfig struct {
	Core            string  `json:"core"`
	Enabled         bool    `json:"enabled"`
	IntervalMinutes int     `json:"interval_minutes"`
	LastReset       *string `json:"last_reset"`
	NextReset       *string `json:"next_reset"`
}

// ResetConfigUpdate is a partial update for PUT /core-health/reset-config/:core.
type ResetConfigUpdate struct {
	Enabled         *bool `json:"enabled,omitempty"`
	IntervalMinutes *int  `json:"interval_minutes,omitempty"`
}
