package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/aretw0/procmeta/pkg/ports"
	"github.com/google/uuid"
)

// Catalog implements ports.Catalog in memory.
// Safe for concurrent use. Atomic batches work on a copy that replaces the
// live data only when the batch succeeds.
type Catalog struct {
	mu   sync.RWMutex
	data *tables
}

// NewCatalog creates an empty in-memory catalog.
func NewCatalog() *Catalog {
	return &Catalog{data: newTables()}
}

var _ ports.Catalog = (*Catalog)(nil)

func (c *Catalog) ListTypes(ctx context.Context) ([]domain.ProcessType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.ListTypes(ctx)
}

func (c *Catalog) GetType(ctx context.Context, code string) (domain.ProcessType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.GetType(ctx, code)
}

func (c *Catalog) CreateType(ctx context.Context, t domain.ProcessType) (domain.ProcessType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.CreateType(ctx, t)
}

func (c *Catalog) UpdateType(ctx context.Context, code string, t domain.ProcessType) (domain.ProcessType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.UpdateType(ctx, code, t)
}

func (c *Catalog) DeleteType(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.DeleteType(ctx, code)
}

func (c *Catalog) ListStates(ctx context.Context, typeID string) ([]domain.ProcessState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.ListStates(ctx, typeID)
}

func (c *Catalog) GetState(ctx context.Context, id string) (domain.ProcessState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.GetState(ctx, id)
}

func (c *Catalog) CreateState(ctx context.Context, s domain.ProcessState) (domain.ProcessState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.CreateState(ctx, s)
}

func (c *Catalog) UpdateState(ctx context.Context, id string, s domain.ProcessState) (domain.ProcessState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.UpdateState(ctx, id, s)
}

func (c *Catalog) DeleteState(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.DeleteState(ctx, id)
}

func (c *Catalog) ListOperations(ctx context.Context, typeID string) ([]domain.ProcessOperation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.ListOperations(ctx, typeID)
}

func (c *Catalog) GetOperation(ctx context.Context, id string) (domain.ProcessOperation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.GetOperation(ctx, id)
}

func (c *Catalog) CreateOperation(ctx context.Context, o domain.ProcessOperation) (domain.ProcessOperation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.CreateOperation(ctx, o)
}

func (c *Catalog) UpdateOperation(ctx context.Context, id string, o domain.ProcessOperation) (domain.ProcessOperation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.UpdateOperation(ctx, id, o)
}

func (c *Catalog) DeleteOperation(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.DeleteOperation(ctx, id)
}

func (c *Catalog) SetOperationStates(ctx context.Context, operationID string, stateIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.SetOperationStates(ctx, operationID, stateIDs)
}

// Atomic runs fn on a copy of the catalog and publishes the copy on success.
// Writers are blocked for the duration of fn.
func (c *Catalog) Atomic(ctx context.Context, fn func(tx ports.Catalog) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	draft := c.data.clone()
	if err := fn(draft); err != nil {
		return err
	}
	c.data = draft
	return nil
}

// tables holds the catalog rows. It implements ports.Catalog without locking
// and doubles as the transaction view handed to Atomic callbacks.
type tables struct {
	types  map[string]domain.ProcessType
	states map[string]domain.ProcessState
	ops    map[string]domain.ProcessOperation
}

func newTables() *tables {
	return &tables{
		types:  make(map[string]domain.ProcessType),
		states: make(map[string]domain.ProcessState),
		ops:    make(map[string]domain.ProcessOperation),
	}
}

func (d *tables) clone() *tables {
	out := newTables()
	for k, v := range d.types {
		out.types[k] = v
	}
	for k, v := range d.states {
		out.states[k] = v
	}
	for k, v := range d.ops {
		out.ops[k] = v.Clone()
	}
	return out
}

func (d *tables) typeByCode(code string) (domain.ProcessType, bool) {
	for _, t := range d.types {
		if t.Code == code {
			return t, true
		}
	}
	return domain.ProcessType{}, false
}

func (d *tables) typeList() []domain.ProcessType {
	out := make([]domain.ProcessType, 0, len(d.types))
	for _, t := range d.types {
		out = append(out, t)
	}
	return out
}

func (d *tables) ListTypes(_ context.Context) ([]domain.ProcessType, error) {
	out := d.typeList()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (d *tables) GetType(_ context.Context, code string) (domain.ProcessType, error) {
	t, ok := d.typeByCode(code)
	if !ok {
		return domain.ProcessType{}, fmt.Errorf("%q: %w", code, domain.ErrTypeNotFound)
	}
	return t, nil
}

func (d *tables) CreateType(_ context.Context, t domain.ProcessType) (domain.ProcessType, error) {
	if _, taken := d.typeByCode(t.Code); taken {
		return domain.ProcessType{}, fmt.Errorf("%q: %w", t.Code, domain.ErrDuplicateCode)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, taken := d.types[t.ID]; taken {
		return domain.ProcessType{}, fmt.Errorf("type %q: %w", t.ID, domain.ErrDuplicateID)
	}
	if err := domain.CheckParent(d.typeList(), t); err != nil {
		return domain.ProcessType{}, err
	}
	d.types[t.ID] = t
	return t, nil
}

func (d *tables) UpdateType(ctx context.Context, code string, t domain.ProcessType) (domain.ProcessType, error) {
	current, err := d.GetType(ctx, code)
	if err != nil {
		return domain.ProcessType{}, err
	}
	t.ID = current.ID
	if t.Code == "" {
		t.Code = current.Code
	}
	if other, taken := d.typeByCode(t.Code); taken && other.ID != t.ID {
		return domain.ProcessType{}, fmt.Errorf("%q: %w", t.Code, domain.ErrDuplicateCode)
	}
	if err := domain.CheckParent(d.typeList(), t); err != nil {
		return domain.ProcessType{}, err
	}
	d.types[t.ID] = t
	return t, nil
}

func (d *tables) DeleteType(ctx context.Context, code string) error {
	t, err := d.GetType(ctx, code)
	if err != nil {
		return err
	}
	delete(d.types, t.ID)
	for id, child := range d.types {
		if child.ParentID == t.ID {
			child.ParentID = ""
			d.types[id] = child
		}
	}
	for id, s := range d.states {
		if s.TypeID == t.ID {
			delete(d.states, id)
		}
	}
	for id, o := range d.ops {
		if o.TypeID == t.ID {
			delete(d.ops, id)
		}
	}
	return nil
}

func (d *tables) ListStates(_ context.Context, typeID string) ([]domain.ProcessState, error) {
	out := make([]domain.ProcessState, 0)
	for _, s := range d.states {
		if s.TypeID == typeID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (d *tables) GetState(_ context.Context, id string) (domain.ProcessState, error) {
	s, ok := d.states[id]
	if !ok {
		return domain.ProcessState{}, fmt.Errorf("%q: %w", id, domain.ErrStateNotFound)
	}
	return s, nil
}

func (d *tables) requireType(id string) error {
	if _, ok := d.types[id]; !ok {
		return fmt.Errorf("type id %q: %w", id, domain.ErrTypeNotFound)
	}
	return nil
}

func (d *tables) CreateState(_ context.Context, s domain.ProcessState) (domain.ProcessState, error) {
	if err := d.requireType(s.TypeID); err != nil {
		return domain.ProcessState{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if _, taken := d.states[s.ID]; taken {
		return domain.ProcessState{}, fmt.Errorf("state %q: %w", s.ID, domain.ErrDuplicateID)
	}
	d.states[s.ID] = s
	return s, nil
}

func (d *tables) UpdateState(ctx context.Context, id string, s domain.ProcessState) (domain.ProcessState, error) {
	current, err := d.GetState(ctx, id)
	if err != nil {
		return domain.ProcessState{}, err
	}
	s.ID = id
	if s.TypeID == "" {
		s.TypeID = current.TypeID
	}
	if err := d.requireType(s.TypeID); err != nil {
		return domain.ProcessState{}, err
	}
	d.states[id] = s
	return s, nil
}

func (d *tables) DeleteState(_ context.Context, id string) error {
	if _, ok := d.states[id]; !ok {
		return fmt.Errorf("%q: %w", id, domain.ErrStateNotFound)
	}
	delete(d.states, id)
	for opID, o := range d.ops {
		if !o.AvailableFrom(id) {
			continue
		}
		kept := make([]string, 0, len(o.AvailableStateIDs))
		for _, sid := range o.AvailableStateIDs {
			if sid != id {
				kept = append(kept, sid)
			}
		}
		o.AvailableStateIDs = kept
		d.ops[opID] = o
	}
	return nil
}

func (d *tables) ListOperations(_ context.Context, typeID string) ([]domain.ProcessOperation, error) {
	out := make([]domain.ProcessOperation, 0)
	for _, o := range d.ops {
		if o.TypeID == typeID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (d *tables) GetOperation(_ context.Context, id string) (domain.ProcessOperation, error) {
	o, ok := d.ops[id]
	if !ok {
		return domain.ProcessOperation{}, fmt.Errorf("%q: %w", id, domain.ErrOperationNotFound)
	}
	return o.Clone(), nil
}

func (d *tables) requireStates(ids []string) error {
	for _, id := range ids {
		if _, ok := d.states[id]; !ok {
			return fmt.Errorf("%q: %w", id, domain.ErrStateNotFound)
		}
	}
	return nil
}

func (d *tables) CreateOperation(_ context.Context, o domain.ProcessOperation) (domain.ProcessOperation, error) {
	if err := d.requireType(o.TypeID); err != nil {
		return domain.ProcessOperation{}, err
	}
	if err := d.requireStates(o.AvailableStateIDs); err != nil {
		return domain.ProcessOperation{}, err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if _, taken := d.ops[o.ID]; taken {
		return domain.ProcessOperation{}, fmt.Errorf("operation %q: %w", o.ID, domain.ErrDuplicateID)
	}
	d.ops[o.ID] = o.Clone()
	return o.Clone(), nil
}

func (d *tables) UpdateOperation(ctx context.Context, id string, o domain.ProcessOperation) (domain.ProcessOperation, error) {
	current, err := d.GetOperation(ctx, id)
	if err != nil {
		return domain.ProcessOperation{}, err
	}
	o.ID = id
	if o.TypeID == "" {
		o.TypeID = current.TypeID
	}
	if err := d.requireType(o.TypeID); err != nil {
		return domain.ProcessOperation{}, err
	}
	if err := d.requireStates(o.AvailableStateIDs); err != nil {
		return domain.ProcessOperation{}, err
	}
	d.ops[id] = o.Clone()
	return o.Clone(), nil
}

func (d *tables) DeleteOperation(_ context.Context, id string) error {
	if _, ok := d.ops[id]; !ok {
		return fmt.Errorf("%q: %w", id, domain.ErrOperationNotFound)
	}
	delete(d.ops, id)
	return nil
}

func (d *tables) SetOperationStates(_ context.Context, operationID string, stateIDs []string) error {
	o, ok := d.ops[operationID]
	if !ok {
		return fmt.Errorf("%q: %w", operationID, domain.ErrOperationNotFound)
	}
	if err := d.requireStates(stateIDs); err != nil {
		return err
	}
	o.AvailableStateIDs = append([]string(nil), stateIDs...)
	d.ops[operationID] = o
	return nil
}

// Atomic on a transaction view runs fn in the same transaction.
func (d *tables) Atomic(_ context.Context, fn func(tx ports.Catalog) error) error {
	return fn(d)
}
