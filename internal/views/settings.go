package views

import (
	"context"
	"fmt"

	"github.com/cimex/cimex-console/internal/domain"
)

// SettingsName is the catalog name of the settings view.
const SettingsName = "settings"

// Settings loads the panel settings on mount.
type Settings struct {
	*base[*domain.Settings]
	backend Backend
}

// NewSettings returns the settings view.
func NewSettings(backend Backend, opts Options) *Settings {
	fetch := func(ctx context.Context) (*domain.Settings, error) {
		return backend.Settings(ctx)
	}
	render := func(s *domain.Settings) any {
		if s == nil {
			return nil
		}
		return s
	}
	return &Settings{base: newBase(SettingsName, 0, fetch, render, opts), backend: backend}
}

// Save writes the settings and reloads them.
func (s *Settings) Save(ctx context.Context, settings domain.Settings) error {
	if err := s.backend.UpdateSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.Refresh()
	return nil
}
