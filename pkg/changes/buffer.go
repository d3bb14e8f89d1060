package changes

import "github.com/aretw0/procmeta/pkg/domain"

// Buffer holds the pending changes of a session: one set per entity kind.
// Types are keyed by code, states and operations by id.
//
// A Buffer is not safe for concurrent use; the owning session serializes access.
type Buffer struct {
	Types      *Set[domain.ProcessType]
	States     *Set[domain.ProcessState]
	Operations *Set[domain.ProcessOperation]

	dirty    bool
	revision uint64
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		Types:      NewSet(domain.TypeKey),
		States:     NewSet(domain.StateKey),
		Operations: NewSet(domain.OperationKey),
	}
}

func (b *Buffer) touch() {
	b.dirty = true
	b.revision++
}

// HasChanges reports whether any create, update or delete happened since the
// buffer was created or last cleared. It stays true even when the edits cancel
// out, for example a create followed by a delete of the same key.
func (b *Buffer) HasChanges() bool { return b.dirty }

// Revision increases on every edit and on Clear.
func (b *Buffer) Revision() uint64 { return b.revision }

func (b *Buffer) CreateType(t domain.ProcessType) { b.Types.Create(t); b.touch() }
func (b *Buffer) UpdateType(t domain.ProcessType) { b.Types.Update(t); b.touch() }
func (b *Buffer) DeleteType(code string)          { b.Types.Delete(code); b.touch() }

func (b *Buffer) CreateState(s domain.ProcessState) { b.States.Create(s); b.touch() }
func (b *Buffer) UpdateState(s domain.ProcessState) { b.States.Update(s); b.touch() }
func (b *Buffer) DeleteState(id string)             { b.States.Delete(id); b.touch() }

func (b *Buffer) CreateOperation(o domain.ProcessOperation) {
	b.Operations.Create(o.Clone())
	b.touch()
}

func (b *Buffer) UpdateOperation(o domain.ProcessOperation) {
	b.Operations.Update(o.Clone())
	b.touch()
}

func (b *Buffer) DeleteOperation(id string) { b.Operations.Delete(id); b.touch() }

// Clear drops every pending change and resets HasChanges.
func (b *Buffer) Clear() {
	b.Types.Clear()
	b.States.Clear()
	b.Operations.Clear()
	b.dirty = false
	b.revision++
}

// Settle drops the changes a finished save has written. With no edits since
// the snapshot was taken this is Clear; otherwise later edits stay pending and
// Settle reports false.
func (b *Buffer) Settle(snap Snapshot) bool {
	if b.revision == snap.Revision {
		b.Clear()
		return true
	}
	b.Types.Settle(snap.Types)
	b.States.Settle(snap.States)
	b.Operations.Settle(snap.Operations)
	b.dirty = !(b.Types.Empty() && b.States.Empty() && b.Operations.Empty())
	b.revision++
	return false
}

// Pending returns the number of backend calls a sequential save would issue.
func (b *Buffer) Pending() int {
	return b.Types.Len() + b.States.Len() + b.Operations.Len()
}

// Snapshot is a deep copy of a buffer taken at save time.
type Snapshot struct {
	Types      *Set[domain.ProcessType]
	States     *Set[domain.ProcessState]
	Operations *Set[domain.ProcessOperation]
	Revision   uint64
}

// Snapshot copies the buffer. Later edits to the buffer do not affect it.
func (b *Buffer) Snapshot() Snapshot {
	return Snapshot{
		Types:      b.Types.Clone(nil),
		States:     b.States.Clone(nil),
		Operations: b.Operations.Clone(domain.ProcessOperation.Clone),
		Revision:   b.revision,
	}
}

// OperationStates maps every buffered created or updated operation to its
// available state ids. Operations without links map to an empty list so the
// backend clears stale links.
func (b *Buffer) OperationStates() map[string][]string {
	return operationStates(b.Operations)
}

func operationStates(ops *Set[domain.ProcessOperation]) map[string][]string {
	out := make(map[string][]string)
	add := func(o domain.ProcessOperation) {
		ids := make([]string, 0, len(o.AvailableStateIDs))
		out[o.ID] = append(ids, o.AvailableStateIDs...)
	}
	for _, o := range ops.Created {
		add(o)
	}
	for _, o := range ops.Updated {
		add(o)
	}
	return out
}
