package console

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/domain"
)

// Validate checks every buffered create and update without saving.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validateSnapshot(s.buffer.Snapshot())
}

func validateSnapshot(snap changes.Snapshot) error {
	var results []error
	for _, t := range slices.Concat(snap.Types.Created, snap.Types.Updated) {
		results = append(results, domain.ValidateType(t))
	}
	for _, st := range slices.Concat(snap.States.Created, snap.States.Updated) {
		results = append(results, domain.ValidateState(st))
	}
	for _, o := range slices.Concat(snap.Operations.Created, snap.Operations.Updated) {
		results = append(results, domain.ValidateOperation(o))
	}
	return domain.Join(results...)
}

// Save flushes the buffer to the backend.
//
// Validation failures are returned before any request is sent. On any request
// failure the buffer is left untouched so the save can be retried; requests
// that already succeeded are not rolled back in sequential mode. The session
// lock is not held during requests, so reads and edits stay responsive. On
// success the saved changes are dropped from the buffer, edits made meanwhile
// stay pending, and the cached lists are refetched best-effort.
func (s *Session) Save(ctx context.Context) error {
	if !s.saving.CompareAndSwap(false, true) {
		return domain.ErrSaveInProgress
	}
	defer s.saving.Store(false)

	s.mu.Lock()
	if !s.buffer.HasChanges() {
		s.mu.Unlock()
		return nil
	}
	snap := s.buffer.Snapshot()
	if err := validateSnapshot(snap); err != nil {
		s.mu.Unlock()
		s.logger.Info("save blocked by validation", "err", err)
		return err
	}
	selected := s.selection.TypeCode
	codes := s.typeCodes(snap)
	s.mu.Unlock()

	start := time.Now()
	var err error
	switch s.mode {
	case SaveBatch:
		err = s.saveBatch(ctx, snap, selected)
	default:
		err = s.saveSequential(ctx, snap, codes)
	}
	s.metrics.ObserveSave(string(s.mode), err)
	if err != nil {
		s.logger.Error("save failed", "mode", s.mode, "err", err)
		return err
	}
	s.logger.Info("changes saved", "mode", s.mode, "calls", snap.Types.Len()+snap.States.Len()+snap.Operations.Len(), "elapsed", time.Since(start))

	s.mu.Lock()
	if !s.buffer.Settle(snap) {
		s.logger.Info("edits made during save stay pending", "pending", s.buffer.Pending())
	}
	s.mu.Unlock()
	s.reload(ctx)
	return nil
}

type fetchedLists struct {
	states   []domain.ProcessState
	stateErr error
	ops      []domain.ProcessOperation
	opErr    error
}

// reload refetches the cached lists after a save. Requests run without the
// lock. Failures only show up as panel errors.
func (s *Session) reload(ctx context.Context) {
	s.mu.Lock()
	cached := slices.Collect(maps.Keys(s.states))
	s.mu.Unlock()

	types, err := s.api.ListTypes(ctx)
	fetched := make(map[string]fetchedLists)
	if err == nil {
		for _, code := range cached {
			if !slices.ContainsFunc(types, func(t domain.ProcessType) bool { return t.Code == code }) {
				continue
			}
			var l fetchedLists
			l.states, l.stateErr = s.api.ListStates(ctx, code)
			l.ops, l.opErr = s.api.ListOperations(ctx, code)
			fetched[code] = l
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string][]domain.ProcessState)
	s.operations = make(map[string][]domain.ProcessOperation)
	s.panelErrs[domain.KindType] = err
	if err != nil {
		s.logger.Warn("failed to load types", "err", err)
		return
	}
	s.types = types
	for code, l := range fetched {
		_ = s.storeLists(code, l.states, l.stateErr, l.ops, l.opErr)
	}
}

func (s *Session) saveBatch(ctx context.Context, snap changes.Snapshot, selected string) error {
	req := changes.BuildSaveAll(snap, selected)
	resp, err := s.api.SaveAll(ctx, req)
	if err != nil {
		return fmt.Errorf("save-all: %w", err)
	}
	s.logger.Debug("save-all accepted", "message", resp.Message)
	return nil
}

func (s *Session) saveSequential(ctx context.Context, snap changes.Snapshot, codes codeIndex) error {
	for _, t := range changes.ParentsFirst(snap.Types.Created) {
		if _, err := s.api.CreateType(ctx, t); err != nil {
			return fmt.Errorf("create type %q: %w", t.Code, err)
		}
	}
	for _, t := range snap.Types.Updated {
		if _, err := s.api.UpdateType(ctx, t.Code, t); err != nil {
			return fmt.Errorf("update type %q: %w", t.Code, err)
		}
	}
	for _, code := range snap.Types.Deleted {
		if err := s.api.DeleteType(ctx, code); err != nil {
			return fmt.Errorf("delete type %q: %w", code, err)
		}
	}

	for _, st := range snap.States.Created {
		code, err := codes.of(st.TypeID)
		if err != nil {
			return fmt.Errorf("create state %q: %w", st.Code, err)
		}
		if _, err := s.api.CreateState(ctx, code, st); err != nil {
			return fmt.Errorf("create state %q: %w", st.Code, err)
		}
	}
	for _, st := range snap.States.Updated {
		if _, err := s.api.UpdateState(ctx, st.ID, st); err != nil {
			return fmt.Errorf("update state %q: %w", st.Code, err)
		}
	}
	for _, id := range snap.States.Deleted {
		if err := s.api.DeleteState(ctx, id); err != nil {
			return fmt.Errorf("delete state %q: %w", id, err)
		}
	}

	for _, o := range snap.Operations.Created {
		code, err := codes.of(o.TypeID)
		if err != nil {
			return fmt.Errorf("create operation %q: %w", o.Code, err)
		}
		if _, err := s.api.CreateOperation(ctx, code, o); err != nil {
			return fmt.Errorf("create operation %q: %w", o.Code, err)
		}
	}
	for _, o := range snap.Operations.Updated {
		if _, err := s.api.UpdateOperation(ctx, o.ID, o); err != nil {
			return fmt.Errorf("update operation %q: %w", o.Code, err)
		}
	}
	for _, id := range snap.Operations.Deleted {
		if err := s.api.DeleteOperation(ctx, id); err != nil {
			return fmt.Errorf("delete operation %q: %w", id, err)
		}
	}
	return nil
}

type codeIndex map[string]string

func (c codeIndex) of(typeID string) (string, error) {
	code, ok := c[typeID]
	if !ok {
		return "", fmt.Errorf("type id %q: %w", typeID, domain.ErrTypeNotFound)
	}
	return code, nil
}

// typeCodes maps type ids to codes over the server list and every buffered type.
func (s *Session) typeCodes(snap changes.Snapshot) codeIndex {
	out := make(codeIndex)
	for _, t := range s.types {
		out[t.ID] = t.Code
	}
	for _, t := range slices.Concat(snap.Types.Created, snap.Types.Updated) {
		out[t.ID] = t.Code
	}
	return out
}
