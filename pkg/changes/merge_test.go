package changes_test

import (
	"testing"

	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func names(states []domain.ProcessState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.ID + ":" + s.NameEN
	}
	return out
}

func TestMerge(t *testing.T) {
	server := []domain.ProcessState{state("A", "a"), state("B", "b"), state("C", "c")}

	s := changes.NewSet(domain.StateKey)
	s.Create(state("D", "d"))
	s.Update(state("B", "b2"))
	s.Delete("C")

	got := changes.Merge(server, s, nil)

	assert.Equal(t, []string{"A:a", "B:b2", "D:d"}, names(got))
	assert.Equal(t, "b", server[1].NameEN, "server list must not be mutated")
	assert.Len(t, server, 3)
}

func TestMerge_UpdateThenDeleteStaysDeleted(t *testing.T) {
	server := []domain.ProcessState{state("A", "a")}

	s := changes.NewSet(domain.StateKey)
	s.Update(state("A", "a2"))
	s.Deleted = append(s.Deleted, "A")

	assert.Empty(t, changes.Merge(server, s, nil))
}

func TestMerge_FiltersCreatedByContext(t *testing.T) {
	s := changes.NewSet(domain.StateKey)
	mine := state("mine", "m")
	theirs := state("theirs", "t")
	theirs.TypeID = "t2"
	s.Create(mine)
	s.Create(theirs)

	got := changes.Merge(nil, s, func(st domain.ProcessState) bool { return st.TypeID == "t1" })

	assert.Equal(t, []string{"mine:m"}, names(got))
}

func TestMerge_EmptyServerAndSet(t *testing.T) {
	got := changes.Merge(nil, changes.NewSet(domain.StateKey), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
