package changes

import "github.com/aretw0/procmeta/pkg/domain"

// ParentsFirst orders created types so that a parent created in the same batch
// comes before its children. Relative order is otherwise kept, and types whose
// parents form a cycle are appended in input order.
func ParentsFirst(created []domain.ProcessType) []domain.ProcessType {
	pending := make(map[string]bool, len(created))
	for _, t := range created {
		pending[t.ID] = true
	}
	out := make([]domain.ProcessType, 0, len(created))
	for len(out) < len(created) {
		progressed := false
		for _, t := range created {
			if !pending[t.ID] || pending[t.ParentID] {
				continue
			}
			out = append(out, t)
			delete(pending, t.ID)
			progressed = true
		}
		if progressed {
			continue
		}
		for _, t := range created {
			if pending[t.ID] {
				out = append(out, t)
				delete(pending, t.ID)
			}
		}
	}
	return out
}
