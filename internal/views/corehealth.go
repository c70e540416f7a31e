package views

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cimex/cimex-console/internal/domain"
)

// CoreHealthName is the catalog name of the core health view.
const CoreHealthName = "core-health"

// CoreHealthData pairs the health report with the reset schedules; both are
// fetched together on every poll.
type CoreHealthData struct {
	Health       []domain.CoreHealth
	ResetConfigs []domain.ResetConfig
}

// CoreHealth polls per-core connectivity and reset schedules.
type CoreHealth struct {
	*base[CoreHealthData]
	backend Backend
}

// CoreModel is one rendered core card.
type CoreModel struct {
	Core    string      `json:"core"`
	Peers   []PeerModel `json:"peers"`
	Healthy int         `json:"healthy"`
	Total   int         `json:"total"`
	Reset   *ResetModel `json:"reset,omitempty"`
}

// PeerModel is one node or server link within a core.
type PeerModel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Status     string `json:"status"`
	StatusText string `json:"status_text"`
	Error      string `json:"error,omitempty"`
}

// ResetModel is the rendered reset schedule of a core.
type ResetModel struct {
	Enabled         bool   `json:"enabled"`
	IntervalMinutes int    `json:"interval_minutes"`
	LastReset       string `json:"last_reset,omitempty"`
	NextReset       string `json:"next_reset,omitempty"`
}

// NewCoreHealth returns the core health view.
func NewCoreHealth(backend Backend, interval time.Duration, opts Options) *CoreHealth {
	fetch := func(ctx context.Context) (CoreHealthData, error) {
		var data CoreHealthData
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			health, err := backend.CoreHealth(gctx)
			if err != nil {
				return fmt.Errorf("core health: %w", err)
			}
			data.Health = health
			return nil
		})
		g.Go(func() error {
			configs, err := backend.ResetConfigs(gctx)
			if err != nil {
				return fmt.Errorf("reset configs: %w", err)
			}
			data.ResetConfigs = configs
			return nil
		})
		if err := g.Wait(); err != nil {
			return CoreHealthData{}, err
		}
		return data, nil
	}
	return &CoreHealth{base: newBase(CoreHealthName, interval, fetch, renderCoreHealth, opts), backend: backend}
}

// Reset re-initializes a core and refetches.
func (c *CoreHealth) Reset(ctx context.Context, core string) error {
	if err := c.backend.ResetCore(ctx, core); err != nil {
		return fmt.Errorf("reset %s: %w", core, err)
	}
	c.Refresh()
	return nil
}

// UpdateResetConfig changes a core's reset schedule and refetches.
func (c *CoreHealth) UpdateResetConfig(ctx context.Context, core string, update domain.ResetConfigUpdate) error {
	if err := c.backend.UpdateResetConfig(ctx, core, update); err != nil {
		return fmt.Errorf("update reset config %s: %w", core, err)
	}
	c.Refresh()
	return nil
}

func renderCoreHealth(d CoreHealthData) any {
	resets := make(map[string]domain.ResetConfig, len(d.ResetConfigs))
	for _, rc := range d.ResetConfigs {
		resets[rc.Core] = rc
	}

	cores := make([]CoreModel, 0, len(d.Health))
	for _, h := range d.Health {
		core := CoreModel{Core: h.Core, Peers: []PeerModel{}}
		core.Peers = appendPeers(core.Peers, h.NodesStatus)
		core.Peers = appendPeers(core.Peers, h.ServersStatus)
		for _, p := range core.Peers {
			if p.Status == "connected" {
				core.Healthy++
			}
		}
		core.Total = len(core.Peers)
		if rc, ok := resets[h.Core]; ok {
			core.Reset = &ResetModel{
				Enabled:         rc.Enabled,
				IntervalMinutes: rc.IntervalMinutes,
				LastReset:       deref(rc.LastReset),
				NextReset:       deref(rc.NextReset),
			}
		}
		cores = append(cores, core)
	}
	return cores
}

func appendPeers(dst []PeerModel, peers map[string]domain.PeerStatus) []PeerModel {
	ids := make([]string, 0, len(peers))
	for id := range peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := peers[id]
		if p.ID == "" {
			p.ID = id
		}
		dst = append(dst, PeerModel{
			ID:         p.ID,
			Name:       p.Name,
			Role:       p.Role,
			Status:     p.Status,
			StatusText: domain.StatusText(p.Status),
			Error:      deref(p.ErrorMessage),
		})
	}
	return dst
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
