package domain

import "fmt"

// Forest is the parent/child composition of a flat list of types.
// Nodes live in an arena indexed by id; parent and child links are ids only,
// so a forest never holds cyclic object graphs even over malformed input.
type Forest struct {
	nodes    map[string]ProcessType
	order    []string
	children map[string][]string
	roots    []string
}

// BuildForest indexes types by id and computes the children index.
// Children keep input order. A type whose parent is absent from the list is
// treated as a root so it stays reachable. Duplicate ids keep the first entry.
func BuildForest(types []ProcessType) *Forest {
	f := &Forest{
		nodes:    make(map[string]ProcessType, len(types)),
		order:    make([]string, 0, len(types)),
		children: make(map[string][]string),
	}
	for _, t := range types {
		if _, dup := f.nodes[t.ID]; dup {
			continue
		}
		f.nodes[t.ID] = t
		f.order = append(f.order, t.ID)
	}
	for _, id := range f.order {
		parent := f.nodes[id].ParentID
		if _, ok := f.nodes[parent]; parent == "" || !ok {
			f.roots = append(f.roots, id)
			continue
		}
		f.children[parent] = append(f.children[parent], id)
	}
	return f
}

// Len returns the number of types in the forest.
func (f *Forest) Len() int { return len(f.order) }

// Node returns the type with the given id.
func (f *Forest) Node(id string) (ProcessType, bool) {
	t, ok := f.nodes[id]
	return t, ok
}

// ByCode returns the type with the given code.
func (f *Forest) ByCode(code string) (ProcessType, bool) {
	for _, id := range f.order {
		if t := f.nodes[id]; t.Code == code {
			return t, true
		}
	}
	return ProcessType{}, false
}

// Roots returns the top-level types.
func (f *Forest) Roots() []ProcessType {
	return f.resolve(f.roots)
}

// Children returns the direct children of a type.
func (f *Forest) Children(id string) []ProcessType {
	return f.resolve(f.children[id])
}

// HasChildren reports whether a type has at least one child.
func (f *Forest) HasChildren(id string) bool {
	return len(f.children[id]) > 0
}

func (f *Forest) resolve(ids []string) []ProcessType {
	out := make([]ProcessType, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.nodes[id])
	}
	return out
}

// Descendants returns the ids of every type below id, depth first.
func (f *Forest) Descendants(id string) []string {
	var out []string
	visited := map[string]bool{id: true}
	stack := append([]string(nil), f.children[id]...)
	for len(stack) > 0 {
		cur := stack[0]
		stack = stack[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, cur)
		stack = append(append([]string(nil), f.children[cur]...), stack...)
	}
	return out
}

// IsDescendant reports whether candidate is reachable from ancestor through the children index.
func (f *Forest) IsDescendant(ancestor, candidate string) bool {
	for _, id := range f.Descendants(ancestor) {
		if id == candidate {
			return true
		}
	}
	return false
}

// Leaves returns the types without children, in input order.
func (f *Forest) Leaves() []ProcessType {
	var out []ProcessType
	for _, id := range f.order {
		if len(f.children[id]) == 0 {
			out = append(out, f.nodes[id])
		}
	}
	return out
}

// Reparent moves dragged under target.
// It returns the dragged type with its new ParentID; the forest itself is not
// modified, callers route the result through the pending-changes buffer.
func (f *Forest) Reparent(draggedID, targetID string) (ProcessType, error) {
	dragged, ok := f.nodes[draggedID]
	if !ok {
		return ProcessType{}, ErrUnknownNode
	}
	if _, ok := f.nodes[targetID]; !ok {
		return ProcessType{}, ErrUnknownNode
	}
	if draggedID == targetID {
		return ProcessType{}, ErrSelfParent
	}
	if f.IsDescendant(draggedID, targetID) {
		return ProcessType{}, ErrCycle
	}
	dragged.ParentID = targetID
	return dragged, nil
}

// Visit is called by Walk for every rendered node.
type Visit func(t ProcessType, depth int, hasChildren, expanded bool)

// Walk descends the forest depth first, skipping the children of collapsed nodes.
func (f *Forest) Walk(state ExpandState, fn Visit) {
	visited := make(map[string]bool, len(f.order))
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if visited[id] {
			return
		}
		visited[id] = true
		kids := f.children[id]
		open := state.IsExpanded(id)
		fn(f.nodes[id], depth, len(kids) > 0, open)
		if !open {
			return
		}
		for _, child := range kids {
			walk(child, depth+1)
		}
	}
	for _, root := range f.roots {
		walk(root, 0)
	}
}

// ExpandState tracks expand/collapse per type id. Types not present are expanded.
type ExpandState map[string]bool

// IsExpanded reports whether the children of id are shown.
func (s ExpandState) IsExpanded(id string) bool {
	open, ok := s[id]
	return !ok || open
}

// Toggle flips the expand state of id.
func (s ExpandState) Toggle(id string) {
	s[id] = !s.IsExpanded(id)
}

// Expand shows the children of id.
func (s ExpandState) Expand(id string) {
	delete(s, id)
}

// Collapse hides the children of id.
func (s ExpandState) Collapse(id string) {
	s[id] = false
}

// CheckParent reports whether t can be stored with its ParentID next to the
// already stored types. The parent must exist and must be neither t nor one of
// its descendants.
func CheckParent(stored []ProcessType, t ProcessType) error {
	if t.ParentID == "" {
		return nil
	}
	if t.ParentID == t.ID {
		return ErrSelfParent
	}
	f := BuildForest(stored)
	if _, ok := f.Node(t.ParentID); !ok {
		return fmt.Errorf("parent %q: %w", t.ParentID, ErrTypeNotFound)
	}
	if t.ID != "" && f.IsDescendant(t.ID, t.ParentID) {
		return ErrCycle
	}
	return nil
}
