package views

import (
	"context"
	"fmt"
	"time"

	"github.com/cimex/cimex-console/internal/domain"
	"github.com/cimex/cimex-console/internal/format"
)

// DashboardName is the catalog name of the dashboard view.
const DashboardName = "dashboard"

// Dashboard polls the panel status.
type Dashboard struct {
	*base[*domain.Status]
}

// DashboardModel is the rendered dashboard.
type DashboardModel struct {
	Nodes   StatCard `json:"nodes"`
	Tunnels StatCard `json:"tunnels"`
	CPU     Gauge    `json:"cpu"`
	Memory  Gauge    `json:"memory"`
}

// StatCard is a total with an active subtitle.
type StatCard struct {
	Value    string `json:"value"`
	Subtitle string `json:"subtitle"`
}

// Gauge is a formatted value with a progress bar in [0,100].
type Gauge struct {
	Value    string  `json:"value"`
	Subtitle string  `json:"subtitle"`
	Progress float64 `json:"progress"`
}

// NewDashboard returns the dashboard view polling GET /status.
func NewDashboard(backend Backend, interval time.Duration, opts Options) *Dashboard {
	fetch := func(ctx context.Context) (*domain.Status, error) {
		return backend.Status(ctx)
	}
	return &Dashboard{newBase(DashboardName, interval, fetch, renderDashboard, opts)}
}

func renderDashboard(s *domain.Status) any {
	if s == nil {
		return nil
	}
	return DashboardModel{
		Nodes: StatCard{
			Value:    format.Count(s.Nodes.Total),
			Subtitle: fmt.Sprintf("%s active", format.Count(s.Nodes.Active)),
		},
		Tunnels: StatCard{
			Value:    format.Count(s.Tunnels.Total),
			Subtitle: fmt.Sprintf("%s active", format.Count(s.Tunnels.Active)),
		},
		CPU: Gauge{
			Value:    fmt.Sprintf("%.1f%%", s.System.CPUPercent),
			Subtitle: "processor load",
			Progress: format.Percent(s.System.CPUPercent),
		},
		Memory: Gauge{
			Value:    fmt.Sprintf("%.1fGB", s.System.MemoryUsedGB),
			Subtitle: fmt.Sprintf("%.1f%% of %.1fGB", s.System.MemoryPercent, s.System.MemoryTotalGB),
			Progress: format.Percent(s.System.MemoryPercent),
		},
	}
}
