package console

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aretw0/procmeta/pkg/domain"
)

type themeRecord struct {
	Mode domain.Theme `json:"mode"`
}

// Theme returns the current theme.
func (s *Session) Theme() domain.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// LoadTheme restores the persisted theme, defaulting to light.
func (s *Session) LoadTheme(ctx context.Context) domain.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.prefs.Get(ctx, ThemeKey)
	if err != nil {
		if !errors.Is(err, domain.ErrPreferenceNotFound) {
			s.logger.Warn("failed to read theme", "err", err)
		}
		return s.theme
	}
	var rec themeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("ignoring corrupt theme preference", "err", err)
		return s.theme
	}
	s.theme = domain.ParseTheme(string(rec.Mode))
	return s.theme
}

// ToggleTheme switches between light and dark and persists the result.
func (s *Session) ToggleTheme(ctx context.Context) (domain.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setThemeLocked(ctx, s.theme.Toggle())
}

// SetTheme sets and persists the theme.
func (s *Session) SetTheme(ctx context.Context, theme domain.Theme) (domain.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setThemeLocked(ctx, theme)
}

func (s *Session) setThemeLocked(ctx context.Context, theme domain.Theme) (domain.Theme, error) {
	s.theme = theme
	data, err := json.Marshal(themeRecord{Mode: theme})
	if err != nil {
		return theme, err
	}
	return theme, s.prefs.Set(ctx, ThemeKey, data)
}
