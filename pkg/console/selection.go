package console

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aretw0/procmeta/pkg/domain"
)

// Selection returns the current selection.
func (s *Session) Selection() domain.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// SelectType selects a type and clears the state and operation selection.
func (s *Session) SelectType(ctx context.Context, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.SelectType(code)
	s.persistSelection(ctx)
}

// SelectState selects a state of the current type and clears the operation selection.
func (s *Session) SelectState(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.SelectState(id)
	s.persistSelection(ctx)
}

// SelectOperation selects an operation of the current type and clears the state selection.
func (s *Session) SelectOperation(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.SelectOperation(id)
	s.persistSelection(ctx)
}

// ClearSelection drops the whole selection.
func (s *Session) ClearSelection(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Clear()
	s.persistSelection(ctx)
}

// persistSelection stores the selection best-effort; failures are only logged.
func (s *Session) persistSelection(ctx context.Context) {
	data, err := json.Marshal(s.selection)
	if err == nil {
		err = s.prefs.Set(ctx, SelectionKey, data)
	}
	if err != nil {
		s.logger.Warn("failed to persist selection", "err", err)
	}
}

// RestoreSelection loads the last persisted selection. A missing or unreadable
// snapshot leaves the selection empty and is not an error.
func (s *Session) RestoreSelection(ctx context.Context) domain.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.prefs.Get(ctx, SelectionKey)
	if err != nil {
		if !errors.Is(err, domain.ErrPreferenceNotFound) {
			s.logger.Warn("failed to read last selection", "err", err)
		}
		return s.selection
	}
	var sel domain.Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		s.logger.Warn("ignoring corrupt last selection", "err", err)
		return s.selection
	}
	s.selection = sel.Normalize()
	return s.selection
}

// AutoSelect selects the first leaf of the tree when no type is selected and
// reports the selected type code.
func (s *Session) AutoSelect(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection.TypeCode != "" {
		if _, ok := s.typeByCode(s.selection.TypeCode); ok {
			return s.selection.TypeCode
		}
	}
	leaves := domain.BuildForest(s.typesLocked()).Leaves()
	if len(leaves) == 0 {
		return ""
	}
	s.selection.SelectType(leaves[0].Code)
	s.persistSelection(ctx)
	return leaves[0].Code
}
