package console_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/console"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_CreatesTypeStateAndOperation(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	s := console.New(api, console.WithIDGenerator(sequentialIDs("id")))
	require.NoError(t, s.Refresh(ctx))

	t1, err := s.AddRootType(domain.ProcessType{Code: "T1", NameEN: "Type one", NameRU: "Тип один"})
	require.NoError(t, err)
	s.SelectType(ctx, "T1")

	s1, err := s.CreateState(domain.ProcessState{Code: "S1", TypeID: t1.ID, NameEN: "Start", NameRU: "Старт", Start: true})
	require.NoError(t, err)
	o1, err := s.CreateOperation(domain.ProcessOperation{
		Code: "O1", TypeID: t1.ID, NameEN: "Go", NameRU: "Вперёд",
		AvailableStateIDs: []string{s1.ID},
	})
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx))

	assert.Equal(t, []call{
		{Method: "POST", Path: "/types", Body: domain.ProcessType{ID: "id-1", Code: "T1", NameEN: "Type one", NameRU: "Тип один"}},
		{Method: "POST", Path: "/types/T1/states", Body: domain.ProcessState{ID: "id-2", TypeID: "id-1", Code: "S1", NameEN: "Start", NameRU: "Старт", Start: true}},
		{Method: "POST", Path: "/types/T1/operations", Body: domain.ProcessOperation{ID: "id-3", TypeID: "id-1", Code: "O1", NameEN: "Go", NameRU: "Вперёд", AvailableStateIDs: []string{"id-2"}}},
	}, api.Writes())
	assert.Equal(t, "id-3", o1.ID)
	assert.False(t, s.HasChanges())
	pending := s.Pending()
	assert.True(t, pending.Types.Empty())
	assert.True(t, pending.States.Empty())
	assert.True(t, pending.Operations.Empty())
}

func TestSave_OrderPerKind(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	seed(api)
	s := console.New(api, console.WithIDGenerator(sequentialIDs("n")))
	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.LoadType(ctx, "C"))
	s.SelectType(ctx, "C")

	require.NoError(t, s.DeleteOperation("o1"))
	require.NoError(t, s.DeleteState("s2"))
	updated := api.states["C"][0]
	updated.NameEN = "Fresh"
	require.NoError(t, s.UpdateState(updated))
	_, err := s.CreateState(domain.ProcessState{Code: "HOLD", NameEN: "Hold", NameRU: "Пауза"})
	require.NoError(t, err)
	_, err = s.AddChildType("R", domain.ProcessType{Code: "X", NameEN: "X", NameRU: "Икс"})
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx))

	var got []string
	for _, c := range api.Writes() {
		got = append(got, c.Method+" "+c.Path)
	}
	assert.Equal(t, []string{
		"POST /types",
		"POST /types/C/states",
		"PUT /states/s1",
		"DELETE /states/s2",
		"DELETE /operations/o1",
	}, got)
}

func TestSave_CreatesParentsFirst(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	s := console.New(api, console.WithIDGenerator(sequentialIDs("t")))

	a, err := s.AddRootType(domain.ProcessType{Code: "A", NameEN: "A", NameRU: "А"})
	require.NoError(t, err)
	b, err := s.AddRootType(domain.ProcessType{Code: "B", NameEN: "B", NameRU: "Б"})
	require.NoError(t, err)
	require.NoError(t, s.Reparent(a.ID, b.ID))

	require.NoError(t, s.Save(ctx))

	writes := api.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, "B", writes[0].Body.(domain.ProcessType).Code)
	assert.Equal(t, "A", writes[1].Body.(domain.ProcessType).Code)
	assert.Equal(t, b.ID, writes[1].Body.(domain.ProcessType).ParentID)
}

func TestSave_ValidationBlocksNetwork(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	s := console.New(api)

	_, err := s.AddRootType(domain.ProcessType{Code: "T1", NameEN: "Only English"})
	require.NoError(t, err)

	err = s.Save(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	require.Len(t, domain.ValidationErrors(err), 1)
	assert.Empty(t, api.Writes())
	assert.True(t, s.HasChanges())

	assert.Equal(t, err.Error(), s.Validate().Error())
}

func TestSave_FailureKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	seed(api)
	boom := errors.New("connection reset")
	api.fail["POST /types/C/states"] = boom

	s := console.New(api)
	require.NoError(t, s.Refresh(ctx))
	s.SelectType(ctx, "C")
	_, err := s.CreateState(domain.ProcessState{Code: "HOLD", NameEN: "Hold", NameRU: "Пауза"})
	require.NoError(t, err)

	err = s.Save(ctx)
	require.ErrorIs(t, err, boom)
	assert.True(t, s.HasChanges())
	assert.Len(t, s.Pending().States.Created, 1)

	delete(api.fail, "POST /types/C/states")
	require.NoError(t, s.Save(ctx))
	assert.False(t, s.HasChanges())
}

func TestSave_NothingToSave(t *testing.T) {
	api := newFakeAPI()
	s := console.New(api)
	require.NoError(t, s.Save(context.Background()))
	assert.Empty(t, api.Calls())
}

func TestSave_RejectsConcurrentSave(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	api.block = make(chan struct{})
	s := console.New(api)
	_, err := s.AddRootType(domain.ProcessType{Code: "T1", NameEN: "T", NameRU: "Т"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Save(ctx) }()
	require.Eventually(t, s.Saving, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, s.Save(ctx), domain.ErrSaveInProgress)

	close(api.block)
	require.NoError(t, <-done)
	assert.False(t, s.Saving())
	assert.Len(t, api.Writes(), 1)
}

func TestSave_BatchMode(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	seed(api)
	s := console.New(api,
		console.WithSaveMode(console.SaveBatch),
		console.WithIDGenerator(sequentialIDs("b")),
	)
	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.LoadType(ctx, "C"))
	s.SelectType(ctx, "C")

	child := api.types[1]
	child.NameEN = "Renamed"
	require.NoError(t, s.UpdateType(child))
	st, err := s.CreateState(domain.ProcessState{Code: "HOLD", NameEN: "Hold", NameRU: "Пауза"})
	require.NoError(t, err)
	op, err := s.CreateOperation(domain.ProcessOperation{Code: "PAUSE", NameEN: "Pause", NameRU: "Пауза", AvailableStateIDs: []string{"s1"}})
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx))

	writes := api.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "/save-all", writes[0].Path)
	req := writes[0].Body.(changes.SaveAllRequest)
	require.NotNil(t, req.Type)
	assert.Equal(t, "Renamed", req.Type.NameEN)
	assert.Nil(t, req.Types)
	require.NotNil(t, req.States)
	assert.Equal(t, []domain.ProcessState{st}, req.States.Created)
	assert.Equal(t, map[string][]string{op.ID: {"s1"}}, req.OperationStates)
	assert.False(t, s.HasChanges())
}

func TestParseSaveMode(t *testing.T) {
	assert.Equal(t, console.SaveBatch, console.ParseSaveMode("batch"))
	assert.Equal(t, console.SaveSequential, console.ParseSaveMode("sequential"))
	assert.Equal(t, console.SaveSequential, console.ParseSaveMode(""))
}

func TestSave_CreateThenUpdatesSendsOnePut(t *testing.T) {
	ctx := context.Background()
	s, api := loaded(t, console.WithIDGenerator(sequentialIDs("n")))

	st, err := s.CreateState(domain.ProcessState{Code: "HOLD", NameEN: "Hold", NameRU: "Пауза"})
	require.NoError(t, err)
	st.NameEN = "Wait"
	require.NoError(t, s.UpdateState(st))
	st.NameEN = "Paused"
	require.NoError(t, s.UpdateState(st))

	pending := s.Pending()
	require.Len(t, pending.States.Created, 1)
	assert.Equal(t, "Hold", pending.States.Created[0].NameEN)
	require.Len(t, pending.States.Updated, 1)
	assert.Equal(t, "Paused", pending.States.Updated[0].NameEN)

	require.NoError(t, s.Save(ctx))

	var got []string
	for _, c := range api.Writes() {
		got = append(got, c.Method+" "+c.Path)
	}
	assert.Equal(t, []string{"POST /types/C/states", "PUT /states/n-1"}, got)
	assert.Equal(t, "Hold", api.Writes()[0].Body.(domain.ProcessState).NameEN)
	assert.Equal(t, "Paused", api.Writes()[1].Body.(domain.ProcessState).NameEN)
}

func TestSave_ReleasesLockDuringRequests(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	api.block = make(chan struct{})
	s := console.New(api)
	_, err := s.AddRootType(domain.ProcessType{Code: "T1", NameEN: "T", NameRU: "Т"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Save(ctx) }()
	require.Eventually(t, func() bool { return len(api.Writes()) == 1 }, time.Second, 5*time.Millisecond)

	edited := make(chan struct{})
	go func() {
		defer close(edited)
		assert.Len(t, s.Types(), 1)
		assert.True(t, s.Selection().IsZero())
		t1, err := s.Type("T1")
		assert.NoError(t, err)
		t1.NameEN = "Renamed"
		assert.NoError(t, s.UpdateType(t1))
		_, err = s.AddRootType(domain.ProcessType{Code: "T2", NameEN: "T", NameRU: "Т"})
		assert.NoError(t, err)
	}()
	select {
	case <-edited:
	case <-time.After(time.Second):
		t.Fatal("session stayed locked while the save was in flight")
	}

	close(api.block)
	require.NoError(t, <-done)

	assert.True(t, s.HasChanges())
	pending := s.Pending()
	require.Len(t, pending.Types.Created, 1)
	assert.Equal(t, "T2", pending.Types.Created[0].Code)
	require.Len(t, pending.Types.Updated, 1)
	assert.Equal(t, "Renamed", pending.Types.Updated[0].NameEN)
}
