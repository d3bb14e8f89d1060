package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/procmeta/internal/logging"
	"github.com/aretw0/procmeta/pkg/adapters/memory"
	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/aretw0/procmeta/pkg/observability"
	"github.com/aretw0/procmeta/pkg/ports"
	"github.com/google/uuid"
)

// SaveMode selects how Save talks to the backend.
type SaveMode string

const (
	// SaveSequential issues one request per buffered change.
	SaveSequential SaveMode = "sequential"
	// SaveBatch issues a single POST /save-all.
	SaveBatch SaveMode = "batch"
)

// ParseSaveMode maps "batch" to SaveBatch and anything else to SaveSequential.
func ParseSaveMode(s string) SaveMode {
	if SaveMode(s) == SaveBatch {
		return SaveBatch
	}
	return SaveSequential
}

// Preference keys.
const (
	SelectionKey = "procmeta.selection"
	ThemeKey     = "procmeta.theme"
)

// Session is a console editing session. Safe for concurrent use.
type Session struct {
	api     ports.API
	prefs   ports.PreferenceStore
	logger  *slog.Logger
	metrics *observability.Metrics
	mode    SaveMode
	newID   func() string

	mu        sync.Mutex
	buffer    *changes.Buffer
	selection domain.Selection
	expand    domain.ExpandState
	theme     domain.Theme

	types      []domain.ProcessType
	states     map[string][]domain.ProcessState     // by type code
	operations map[string][]domain.ProcessOperation // by type code
	panelErrs  map[domain.Kind]error

	saving atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithPreferences sets where the selection and theme are persisted.
func WithPreferences(store ports.PreferenceStore) Option {
	return func(s *Session) {
		s.prefs = store
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMetrics records edits and saves.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithSaveMode selects sequential or batch saving. Default is sequential.
func WithSaveMode(mode SaveMode) Option {
	return func(s *Session) {
		s.mode = mode
	}
}

// WithIDGenerator overrides the UUIDv4 generator used for new entities.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) {
		s.newID = fn
	}
}

// New creates a session over api. Preferences default to memory.
func New(api ports.API, opts ...Option) *Session {
	s := &Session{
		api:        api,
		prefs:      memory.NewPreferences(),
		logger:     logging.NewNop(),
		mode:       SaveSequential,
		newID:      uuid.NewString,
		buffer:     changes.NewBuffer(),
		expand:     make(domain.ExpandState),
		theme:      domain.ThemeLight,
		states:     make(map[string][]domain.ProcessState),
		operations: make(map[string][]domain.ProcessOperation),
		panelErrs:  make(map[domain.Kind]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh fetches the type list. A failure is kept as the error of the type panel.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	types, err := s.api.ListTypes(ctx)
	s.panelErrs[domain.KindType] = err
	if err != nil {
		s.logger.Warn("failed to load types", "err", err)
		return fmt.Errorf("load types: %w", err)
	}
	s.types = types
	return nil
}

// LoadType fetches the states and operations of a type. Each list fails
// independently and records the error of its own panel.
// A type that exists only in the buffer has nothing to fetch.
func (s *Session) LoadType(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTypeLocked(ctx, code)
}

func (s *Session) loadTypeLocked(ctx context.Context, code string) error {
	if s.buffer.Types.IsCreated(code) {
		s.states[code] = nil
		s.operations[code] = nil
		s.panelErrs[domain.KindState] = nil
		s.panelErrs[domain.KindOperation] = nil
		return nil
	}

	states, stateErr := s.api.ListStates(ctx, code)
	ops, opErr := s.api.ListOperations(ctx, code)
	return s.storeLists(code, states, stateErr, ops, opErr)
}

// storeLists caches the fetched lists of a type and records each panel error.
func (s *Session) storeLists(code string, states []domain.ProcessState, stateErr error, ops []domain.ProcessOperation, opErr error) error {
	s.panelErrs[domain.KindState] = stateErr
	if stateErr == nil {
		s.states[code] = states
	} else {
		stateErr = fmt.Errorf("load states of %q: %w", code, stateErr)
		s.logger.Warn("failed to load states", "type", code, "err", stateErr)
	}

	s.panelErrs[domain.KindOperation] = opErr
	if opErr == nil {
		s.operations[code] = ops
	} else {
		opErr = fmt.Errorf("load operations of %q: %w", code, opErr)
		s.logger.Warn("failed to load operations", "type", code, "err", opErr)
	}
	return errors.Join(stateErr, opErr)
}

// PanelError returns the last fetch error of the panel showing kind, or nil.
func (s *Session) PanelError(kind domain.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelErrs[kind]
}

// Types returns the effective type list.
func (s *Session) Types() []domain.ProcessType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typesLocked()
}

func (s *Session) typesLocked() []domain.ProcessType {
	return changes.Merge(s.types, s.buffer.Types, nil)
}

// Forest composes the effective type list into a tree.
func (s *Session) Forest() *domain.Forest {
	return domain.BuildForest(s.Types())
}

func (s *Session) typeByCode(code string) (domain.ProcessType, bool) {
	for _, t := range s.typesLocked() {
		if t.Code == code {
			return t, true
		}
	}
	return domain.ProcessType{}, false
}

func (s *Session) typeByID(id string) (domain.ProcessType, bool) {
	for _, t := range s.typesLocked() {
		if t.ID == id {
			return t, true
		}
	}
	return domain.ProcessType{}, false
}

// Type returns the effective type with the given code.
func (s *Session) Type(code string) (domain.ProcessType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.typeByCode(code)
	if !ok {
		return domain.ProcessType{}, fmt.Errorf("%q: %w", code, domain.ErrTypeNotFound)
	}
	return t, nil
}

// States returns the effective states of the selected type, or an empty list
// when no type is selected.
func (s *Session) States() []domain.ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statesLocked(s.selection.TypeCode)
}

// StatesOf returns the effective states of a type.
func (s *Session) StatesOf(code string) []domain.ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statesLocked(code)
}

func (s *Session) statesLocked(code string) []domain.ProcessState {
	t, ok := s.typeByCode(code)
	if !ok {
		return []domain.ProcessState{}
	}
	return changes.Merge(s.states[code], s.buffer.States, func(st domain.ProcessState) bool {
		return st.TypeID == t.ID
	})
}

// Operations returns the effective operations of the selected type, or an
// empty list when no type is selected.
func (s *Session) Operations() []domain.ProcessOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.operationsLocked(s.selection.TypeCode)
}

// OperationsOf returns the effective operations of a type.
func (s *Session) OperationsOf(code string) []domain.ProcessOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.operationsLocked(code)
}

func (s *Session) operationsLocked(code string) []domain.ProcessOperation {
	t, ok := s.typeByCode(code)
	if !ok {
		return []domain.ProcessOperation{}
	}
	return changes.Merge(s.operations[code], s.buffer.Operations, func(o domain.ProcessOperation) bool {
		return o.TypeID == t.ID
	})
}

// HasChanges reports whether anything was edited since the last save or reset.
func (s *Session) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.HasChanges()
}

// Pending returns a copy of the buffered changes.
func (s *Session) Pending() changes.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Snapshot()
}

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool {
	return s.saving.Load()
}

// Reset discards every pending change.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Clear()
	s.logger.Info("pending changes discarded")
}

// ToggleExpanded flips the expand state of a type in the tree.
func (s *Session) ToggleExpanded(typeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expand.Toggle(typeID)
}

// Expanded returns a copy of the expand state.
func (s *Session) Expanded() domain.ExpandState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(domain.ExpandState, len(s.expand))
	for k, v := range s.expand {
		out[k] = v
	}
	return out
}
