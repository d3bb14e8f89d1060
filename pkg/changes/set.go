package changes

import (
	"encoding/json"
	"reflect"
)

// KeyFunc extracts the buffering key of an entity.
type KeyFunc[T any] func(T) string

// Set stages created, updated and deleted entries of one entity kind.
// The zero value is not usable; construct with NewSet.
type Set[T any] struct {
	Created []T
	Updated []T
	Deleted []string

	key KeyFunc[T]
}

// NewSet creates an empty set keyed by key.
func NewSet[T any](key KeyFunc[T]) *Set[T] {
	return &Set[T]{key: key}
}

// Key returns the key of e.
func (s *Set[T]) Key(e T) string {
	return s.key(e)
}

// Create stages a new entity.
func (s *Set[T]) Create(e T) {
	s.Created = append(s.Created, e)
}

// Update stages a new value for an entity. Any earlier queued update of the
// same key is removed first, so repeated updates collapse into one entry
// holding the last value. A pending create of the key is left as is; the
// update is sent after it.
func (s *Set[T]) Update(e T) {
	s.Updated = append(s.filter(s.Updated, s.key(e)), e)
}

// Rewrite applies fn to every pending create and update of key and reports
// whether there was one. It stages nothing new.
func (s *Set[T]) Rewrite(key string, fn func(T) T) bool {
	found := false
	for i, e := range s.Created {
		if s.key(e) == key {
			s.Created[i] = fn(e)
			found = true
		}
	}
	for i, e := range s.Updated {
		if s.key(e) == key {
			s.Updated[i] = fn(e)
			found = true
		}
	}
	return found
}

// Delete stages the removal of key. Pending creates and updates of key are purged.
// The key is recorded in Deleted unless it was only known locally.
func (s *Set[T]) Delete(key string) {
	localOnly := s.indexCreated(key) >= 0
	s.drop(key)
	if localOnly || s.IsDeleted(key) {
		return
	}
	s.Deleted = append(s.Deleted, key)
}

// Discard forgets every pending change of key, including a pending delete.
func (s *Set[T]) Discard(key string) {
	s.drop(key)
	kept := s.Deleted[:0:0]
	for _, k := range s.Deleted {
		if k != key {
			kept = append(kept, k)
		}
	}
	s.Deleted = kept
}

// Settle removes the changes of saved, which the backend has already applied,
// and keeps whatever was staged after saved was copied. A create that was
// edited since becomes an update of the stored entity.
func (s *Set[T]) Settle(saved *Set[T]) {
	for _, e := range saved.Created {
		k := s.key(e)
		i := s.indexCreated(k)
		if i < 0 {
			continue
		}
		cur := s.Created[i]
		s.Created = s.filter(s.Created, k)
		if !reflect.DeepEqual(cur, e) && !s.hasUpdate(k) {
			s.Updated = append(s.Updated, cur)
		}
	}
	for _, e := range saved.Updated {
		k := s.key(e)
		for _, cur := range s.Updated {
			if s.key(cur) == k && reflect.DeepEqual(cur, e) {
				s.Updated = s.filter(s.Updated, k)
				break
			}
		}
	}
	for _, k := range saved.Deleted {
		kept := s.Deleted[:0:0]
		for _, d := range s.Deleted {
			if d != k {
				kept = append(kept, d)
			}
		}
		s.Deleted = kept
	}
}

// IsCreated reports whether key is pending creation.
func (s *Set[T]) IsCreated(key string) bool {
	return s.indexCreated(key) >= 0
}

// IsDeleted reports whether key is pending deletion.
func (s *Set[T]) IsDeleted(key string) bool {
	for _, k := range s.Deleted {
		if k == key {
			return true
		}
	}
	return false
}

// Lookup returns the pending value of key, preferring an update over a create.
func (s *Set[T]) Lookup(key string) (T, bool) {
	for _, e := range s.Updated {
		if s.key(e) == key {
			return e, true
		}
	}
	if i := s.indexCreated(key); i >= 0 {
		return s.Created[i], true
	}
	var zero T
	return zero, false
}

// Empty reports whether nothing is staged.
func (s *Set[T]) Empty() bool {
	return len(s.Created) == 0 && len(s.Updated) == 0 && len(s.Deleted) == 0
}

// Len returns the number of staged calls the set will produce on save.
func (s *Set[T]) Len() int {
	return len(s.Created) + len(s.Updated) + len(s.Deleted)
}

// Clear resets the set.
func (s *Set[T]) Clear() {
	s.Created = nil
	s.Updated = nil
	s.Deleted = nil
}

// Clone returns a copy that shares no slices with s. Elements are copied with
// cp when given, so entities holding slices can be deep copied.
func (s *Set[T]) Clone(cp func(T) T) *Set[T] {
	if cp == nil {
		cp = func(e T) T { return e }
	}
	out := &Set[T]{key: s.key}
	for _, e := range s.Created {
		out.Created = append(out.Created, cp(e))
	}
	for _, e := range s.Updated {
		out.Updated = append(out.Updated, cp(e))
	}
	out.Deleted = append(out.Deleted, s.Deleted...)
	return out
}

// drop forgets pending creates and updates of key without recording a delete.
func (s *Set[T]) drop(key string) {
	s.Created = s.filter(s.Created, key)
	s.Updated = s.filter(s.Updated, key)
}

func (s *Set[T]) hasUpdate(key string) bool {
	for _, e := range s.Updated {
		if s.key(e) == key {
			return true
		}
	}
	return false
}

func (s *Set[T]) indexCreated(key string) int {
	for i, e := range s.Created {
		if s.key(e) == key {
			return i
		}
	}
	return -1
}

func (s *Set[T]) filter(in []T, key string) []T {
	out := in[:0:0]
	for _, e := range in {
		if s.key(e) != key {
			out = append(out, e)
		}
	}
	return out
}

type wireSet[T any] struct {
	Created []T      `json:"created"`
	Updated []T      `json:"updated"`
	Deleted []string `json:"deleted"`
}

// MarshalJSON encodes the set as {created, updated, deleted} with empty arrays, never null.
func (s *Set[T]) MarshalJSON() ([]byte, error) {
	w := wireSet[T]{Created: s.Created, Updated: s.Updated, Deleted: s.Deleted}
	if w.Created == nil {
		w.Created = []T{}
	}
	if w.Updated == nil {
		w.Updated = []T{}
	}
	if w.Deleted == nil {
		w.Deleted = []string{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes {created, updated, deleted}. The key function is kept.
func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var w wireSet[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Created, s.Updated, s.Deleted = w.Created, w.Updated, w.Deleted
	return nil
}
