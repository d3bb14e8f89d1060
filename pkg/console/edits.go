package console

import (
	"context"
	"fmt"

	"github.com/aretw0/procmeta/pkg/domain"
)

func (s *Session) edited(kind domain.Kind, op string) {
	s.metrics.ObserveEdit(string(kind), op)
	s.logger.Debug("buffered edit", "kind", kind, "op", op, "pending", s.buffer.Pending())
}

// AddRootType buffers a new root type. An empty id is generated.
func (s *Session) AddRootType(t domain.ProcessType) (domain.ProcessType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ParentID = ""
	return s.createTypeLocked(t)
}

// AddChildType buffers a new type under parentCode. The child inherits the
// parent's attributes table unless it names its own.
func (s *Session) AddChildType(parentCode string, t domain.ProcessType) (domain.ProcessType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent, ok := s.typeByCode(parentCode)
	if !ok {
		return domain.ProcessType{}, fmt.Errorf("parent %q: %w", parentCode, domain.ErrTypeNotFound)
	}
	t.ParentID = parent.ID
	if t.AttributesTable == "" {
		t.AttributesTable = parent.AttributesTable
	}
	return s.createTypeLocked(t)
}

func (s *Session) createTypeLocked(t domain.ProcessType) (domain.ProcessType, error) {
	if _, taken := s.typeByCode(t.Code); taken {
		return domain.ProcessType{}, fmt.Errorf("%q: %w", t.Code, domain.ErrDuplicateCode)
	}
	if t.ID == "" {
		t.ID = s.newID()
	}
	s.buffer.CreateType(t)
	s.edited(domain.KindType, "create")
	return t, nil
}

// UpdateType buffers a new value for the type with t.Code. The code is the
// buffering key and cannot be changed through an update.
func (s *Session) UpdateType(t domain.ProcessType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.typeByCode(t.Code)
	if !ok {
		return fmt.Errorf("%q: %w", t.Code, domain.ErrTypeNotFound)
	}
	t.ID = current.ID
	if t.ParentID != "" {
		if err := domain.CheckParent(s.typesLocked(), t); err != nil {
			return err
		}
	}
	s.buffer.UpdateType(t)
	s.edited(domain.KindType, "update")
	return nil
}

// Reparent moves the dragged type under the target type. Dropping a type on
// itself or on one of its descendants is rejected and changes nothing.
func (s *Session) Reparent(draggedID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved, err := domain.BuildForest(s.typesLocked()).Reparent(draggedID, targetID)
	if err != nil {
		return err
	}
	s.buffer.UpdateType(moved)
	s.edited(domain.KindType, "reparent")
	return nil
}

// ChildCount returns the number of direct children of a type, shown when
// confirming its deletion.
func (s *Session) ChildCount(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.typeByCode(code)
	if !ok {
		return 0
	}
	return len(domain.BuildForest(s.typesLocked()).Children(t.ID))
}

// DeleteType buffers the removal of a type and reports how many direct children
// it had. The backend removes the type's states and operations and turns its
// children into roots; the buffer mirrors that so the save stays consistent.
func (s *Session) DeleteType(code string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.typeByCode(code)
	if !ok {
		return 0, fmt.Errorf("%q: %w", code, domain.ErrTypeNotFound)
	}
	forest := domain.BuildForest(s.typesLocked())
	children := forest.Children(t.ID)

	for _, child := range children {
		s.buffer.Types.Rewrite(child.Code, func(pending domain.ProcessType) domain.ProcessType {
			if pending.ParentID == t.ID {
				pending.ParentID = ""
			}
			return pending
		})
	}
	s.discardStatesOf(t)
	s.discardOperationsOf(t)
	s.buffer.DeleteType(code)

	if s.selection.TypeCode == code {
		s.selection.Clear()
		s.persistSelection(context.Background())
	}
	s.edited(domain.KindType, "delete")
	return len(children), nil
}

func (s *Session) discardStatesOf(t domain.ProcessType) {
	for _, st := range s.statesLocked(t.Code) {
		s.buffer.States.Discard(st.ID)
	}
	for _, st := range s.states[t.Code] {
		s.buffer.States.Discard(st.ID)
	}
}

func (s *Session) discardOperationsOf(t domain.ProcessType) {
	for _, o := range s.operationsLocked(t.Code) {
		s.buffer.Operations.Discard(o.ID)
	}
	for _, o := range s.operations[t.Code] {
		s.buffer.Operations.Discard(o.ID)
	}
}

// stateOwner resolves the type a state belongs to, defaulting to the selected type.
func (s *Session) stateOwner(typeID string) (domain.ProcessType, error) {
	if typeID == "" {
		t, ok := s.typeByCode(s.selection.TypeCode)
		if !ok {
			return domain.ProcessType{}, fmt.Errorf("no type selected: %w", domain.ErrTypeNotFound)
		}
		return t, nil
	}
	t, ok := s.typeByID(typeID)
	if !ok {
		return domain.ProcessType{}, fmt.Errorf("type id %q: %w", typeID, domain.ErrTypeNotFound)
	}
	return t, nil
}

func (s *Session) findState(id string) (domain.ProcessState, domain.ProcessType, bool) {
	for _, t := range s.typesLocked() {
		for _, st := range s.statesLocked(t.Code) {
			if st.ID == id {
				return st, t, true
			}
		}
	}
	return domain.ProcessState{}, domain.ProcessType{}, false
}

func (s *Session) findOperation(id string) (domain.ProcessOperation, domain.ProcessType, bool) {
	for _, t := range s.typesLocked() {
		for _, o := range s.operationsLocked(t.Code) {
			if o.ID == id {
				return o, t, true
			}
		}
	}
	return domain.ProcessOperation{}, domain.ProcessType{}, false
}

// CreateState buffers a new state. An empty TypeID means the selected type;
// an empty id is generated.
func (s *Session) CreateState(st domain.ProcessState) (domain.ProcessState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.stateOwner(st.TypeID)
	if err != nil {
		return domain.ProcessState{}, err
	}
	st.TypeID = owner.ID
	if st.ID == "" {
		st.ID = s.newID()
	}
	s.buffer.CreateState(st)
	s.edited(domain.KindState, "create")
	return st, nil
}

// UpdateState buffers a new value for an existing state.
func (s *Session) UpdateState(st domain.ProcessState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, _, ok := s.findState(st.ID)
	if !ok {
		return fmt.Errorf("%q: %w", st.ID, domain.ErrStateNotFound)
	}
	if st.TypeID == "" {
		st.TypeID = current.TypeID
	}
	s.buffer.UpdateState(st)
	s.edited(domain.KindState, "update")
	return nil
}

// DeleteState buffers the removal of a state and unlinks it from the
// operations of its type.
func (s *Session) DeleteState(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, owner, ok := s.findState(id)
	if !ok {
		return fmt.Errorf("%q: %w", id, domain.ErrStateNotFound)
	}
	for _, o := range s.operationsLocked(owner.Code) {
		if !o.AvailableFrom(id) {
			continue
		}
		s.buffer.Operations.Rewrite(o.ID, func(pending domain.ProcessOperation) domain.ProcessOperation {
			kept := make([]string, 0, len(pending.AvailableStateIDs))
			for _, sid := range pending.AvailableStateIDs {
				if sid != id {
					kept = append(kept, sid)
				}
			}
			pending.AvailableStateIDs = kept
			return pending
		})
	}
	s.buffer.DeleteState(id)
	if s.selection.StateID == id {
		s.selection.SelectState("")
		s.persistSelection(context.Background())
	}
	s.edited(domain.KindState, "delete")
	return nil
}

// CreateOperation buffers a new operation. An empty TypeID means the selected
// type; an empty id is generated. Every available state must belong to the
// operation's type.
func (s *Session) CreateOperation(o domain.ProcessOperation) (domain.ProcessOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.stateOwner(o.TypeID)
	if err != nil {
		return domain.ProcessOperation{}, err
	}
	o.TypeID = owner.ID
	if err := s.checkLinks(owner, o.AvailableStateIDs); err != nil {
		return domain.ProcessOperation{}, err
	}
	if o.ID == "" {
		o.ID = s.newID()
	}
	s.buffer.CreateOperation(o)
	s.edited(domain.KindOperation, "create")
	return o.Clone(), nil
}

func (s *Session) checkLinks(owner domain.ProcessType, stateIDs []string) error {
	known := make(map[string]bool)
	for _, st := range s.statesLocked(owner.Code) {
		known[st.ID] = true
	}
	for _, id := range stateIDs {
		if !known[id] {
			return fmt.Errorf("state %q of type %q: %w", id, owner.Code, domain.ErrStateNotFound)
		}
	}
	return nil
}

// UpdateOperation buffers a new value for an existing operation.
func (s *Session) UpdateOperation(o domain.ProcessOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, owner, ok := s.findOperation(o.ID)
	if !ok {
		return fmt.Errorf("%q: %w", o.ID, domain.ErrOperationNotFound)
	}
	if o.TypeID == "" {
		o.TypeID = current.TypeID
	}
	if err := s.checkLinks(owner, o.AvailableStateIDs); err != nil {
		return err
	}
	s.buffer.UpdateOperation(o)
	s.edited(domain.KindOperation, "update")
	return nil
}

// DeleteOperation buffers the removal of an operation.
func (s *Session) DeleteOperation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.findOperation(id); !ok {
		return fmt.Errorf("%q: %w", id, domain.ErrOperationNotFound)
	}
	s.buffer.DeleteOperation(id)
	if s.selection.OperationID == id {
		s.selection.SelectOperation("")
		s.persistSelection(context.Background())
	}
	s.edited(domain.KindOperation, "delete")
	return nil
}
