package changes_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSaveAll(t *testing.T) {
	b := changes.NewBuffer()
	b.CreateType(domain.ProcessType{ID: "t1", Code: "T1"})
	b.UpdateType(domain.ProcessType{ID: "t0", Code: "T0"})
	b.CreateState(state("s1", "start"))
	b.CreateOperation(domain.ProcessOperation{ID: "o1", TypeID: "t1", AvailableStateIDs: []string{"s1"}})

	req := changes.BuildSaveAll(b.Snapshot(), "T1")

	require.NotNil(t, req.Type)
	assert.Equal(t, "T1", req.Type.Code)
	require.NotNil(t, req.Types)
	assert.Empty(t, req.Types.Created, "selected type travels as type only")
	assert.Len(t, req.Types.Updated, 1)
	assert.Len(t, req.States.Created, 1)
	assert.Equal(t, map[string][]string{"o1": {"s1"}}, req.OperationStates)
	assert.Len(t, b.Types.Created, 1, "buffer is untouched")
}

func TestBuildSaveAll_OmitsEmptySets(t *testing.T) {
	b := changes.NewBuffer()
	b.DeleteState("s9")

	req := changes.BuildSaveAll(b.Snapshot(), "")
	data, err := json.Marshal(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{"states":{"created":[],"updated":[],"deleted":["s9"]}}`, string(data))
}

func TestSaveAllRequest_Decode(t *testing.T) {
	body := `{"type":{"id":"t1","code":"T1","name_en":"e","name_ru":"r"},
		"operations":{"created":[{"id":"o1","type_id":"t1","code":"O1","name_en":"e","name_ru":"r","cancel":false}]},
		"operation_states":{"o1":["s1"]}}`

	req := changes.NewSaveAllRequest()
	require.NoError(t, json.Unmarshal([]byte(body), req))

	assert.Equal(t, "T1", req.Type.Code)
	assert.Len(t, req.Operations.Created, 1)
	assert.Empty(t, req.Operations.Deleted)
	assert.True(t, req.Types.Empty())
	assert.Equal(t, []string{"s1"}, req.OperationStates["o1"])
}
