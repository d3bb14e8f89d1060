package changes

// Merge overlays a set on top of a server list and returns the effective list.
//
// Server order is preserved. Created entries accepted by inContext are appended,
// updated entries replace the entry with the same key wholesale, and deleted keys
// are removed last so an update followed by a delete still ends up deleted.
// A nil inContext accepts every created entry. The server slice is not modified.
func Merge[T any](server []T, set *Set[T], inContext func(T) bool) []T {
	out := make([]T, 0, len(server)+len(set.Created))
	out = append(out, server...)
	for _, e := range set.Created {
		if inContext == nil || inContext(e) {
			out = append(out, e)
		}
	}

	if len(set.Updated) > 0 {
		updated := make(map[string]T, len(set.Updated))
		for _, e := range set.Updated {
			updated[set.key(e)] = e
		}
		for i, e := range out {
			if u, ok := updated[set.key(e)]; ok {
				out[i] = u
			}
		}
	}

	if len(set.Deleted) == 0 {
		return out
	}
	deleted := make(map[string]struct{}, len(set.Deleted))
	for _, k := range set.Deleted {
		deleted[k] = struct{}{}
	}
	kept := out[:0]
	for _, e := range out {
		if _, gone := deleted[set.key(e)]; !gone {
			kept = append(kept, e)
		}
	}
	return kept
}
