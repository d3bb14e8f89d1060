package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractType(id, code, parent string) domain.ProcessType {
	return domain.ProcessType{ID: id, Code: code, NameEN: code + " en", NameRU: code + " ru", ParentID: parent}
}

func contractState(id, typeID, code string) domain.ProcessState {
	return domain.ProcessState{ID: id, TypeID: typeID, Code: code, NameEN: code, NameRU: code, AllowEdit: true}
}

// RunCatalogContract runs a suite of tests to verify that a Catalog implementation
// adheres to the defined interface contract. The catalog must start empty.
func RunCatalogContract(t *testing.T, catalog Catalog) {
	ctx := context.Background()

	t.Run("Types CRUD", func(t *testing.T) {
		root, err := catalog.CreateType(ctx, contractType("crud-root", "CRUD_B", ""))
		require.NoError(t, err)
		assert.Equal(t, "crud-root", root.ID)

		child, err := catalog.CreateType(ctx, contractType("", "CRUD_A", root.ID))
		require.NoError(t, err)
		assert.NotEmpty(t, child.ID, "Create should assign an id")

		got, err := catalog.GetType(ctx, "CRUD_A")
		require.NoError(t, err)
		assert.Equal(t, child, got)

		list, err := catalog.ListTypes(ctx)
		require.NoError(t, err)
		var codes []string
		for _, tp := range list {
			codes = append(codes, tp.Code)
		}
		assert.Subset(t, codes, []string{"CRUD_A", "CRUD_B"})
		assert.IsIncreasing(t, codes, "ListTypes should be ordered by code")

		child.NameEN = "renamed"
		child.AttributesTable = "attrs"
		updated, err := catalog.UpdateType(ctx, "CRUD_A", child)
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.NameEN)

		got, err = catalog.GetType(ctx, "CRUD_A")
		require.NoError(t, err)
		assert.Equal(t, "attrs", got.AttributesTable)
		assert.Equal(t, child.ID, got.ID)
	})

	t.Run("Types Errors", func(t *testing.T) {
		_, err := catalog.GetType(ctx, "ERR_MISSING")
		assert.ErrorIs(t, err, domain.ErrTypeNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = catalog.UpdateType(ctx, "ERR_MISSING", contractType("", "ERR_MISSING", ""))
		assert.ErrorIs(t, err, domain.ErrTypeNotFound)

		assert.ErrorIs(t, catalog.DeleteType(ctx, "ERR_MISSING"), domain.ErrTypeNotFound)

		_, err = catalog.CreateType(ctx, contractType("err-1", "ERR_DUP", ""))
		require.NoError(t, err)
		_, err = catalog.CreateType(ctx, contractType("err-2", "ERR_DUP", ""))
		assert.ErrorIs(t, err, domain.ErrDuplicateCode)

		_, err = catalog.CreateType(ctx, contractType("err-3", "ERR_ORPHAN", "no-such-parent"))
		assert.ErrorIs(t, err, domain.ErrTypeNotFound)
	})

	t.Run("Types Cycle Prevention", func(t *testing.T) {
		_, err := catalog.CreateType(ctx, contractType("cyc-r", "CYC_R", ""))
		require.NoError(t, err)
		_, err = catalog.CreateType(ctx, contractType("cyc-c", "CYC_C", "cyc-r"))
		require.NoError(t, err)
		_, err = catalog.CreateType(ctx, contractType("cyc-g", "CYC_G", "cyc-c"))
		require.NoError(t, err)

		_, err = catalog.UpdateType(ctx, "CYC_R", contractType("cyc-r", "CYC_R", "cyc-g"))
		assert.ErrorIs(t, err, domain.ErrCycle)

		_, err = catalog.UpdateType(ctx, "CYC_R", contractType("cyc-r", "CYC_R", "cyc-r"))
		assert.ErrorIs(t, err, domain.ErrSelfParent)

		got, err := catalog.GetType(ctx, "CYC_R")
		require.NoError(t, err)
		assert.Empty(t, got.ParentID, "rejected reparent must not change the parent")
	})

	t.Run("States CRUD", func(t *testing.T) {
		tp, err := catalog.CreateType(ctx, contractType("st-type", "ST_TYPE", ""))
		require.NoError(t, err)

		s2, err := catalog.CreateState(ctx, contractState("st-2", tp.ID, "S2"))
		require.NoError(t, err)
		s1 := contractState("", tp.ID, "S1")
		s1.ColorCode = "#FF0000"
		s1.Start = true
		s1, err = catalog.CreateState(ctx, s1)
		require.NoError(t, err)
		assert.NotEmpty(t, s1.ID)

		list, err := catalog.ListStates(ctx, tp.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "S1", list[0].Code)
		assert.True(t, list[0].Start)
		assert.Equal(t, "#FF0000", list[0].ColorCode)

		s2.NameEN = "second"
		s2.AllowDelete = true
		_, err = catalog.UpdateState(ctx, s2.ID, s2)
		require.NoError(t, err)
		got, err := catalog.GetState(ctx, s2.ID)
		require.NoError(t, err)
		assert.Equal(t, s2, got)

		require.NoError(t, catalog.DeleteState(ctx, s2.ID))
		_, err = catalog.GetState(ctx, s2.ID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)

		_, err = catalog.CreateState(ctx, contractState("", "no-such-type", "SX"))
		assert.ErrorIs(t, err, domain.ErrTypeNotFound)

		_, err = catalog.CreateState(ctx, contractState(s1.ID, tp.ID, "S1_AGAIN"))
		assert.ErrorIs(t, err, domain.ErrDuplicateID)

		_, err = catalog.UpdateState(ctx, "no-such-state", s1)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
		assert.ErrorIs(t, catalog.DeleteState(ctx, "no-such-state"), domain.ErrStateNotFound)
	})

	t.Run("Operations and Links", func(t *testing.T) {
		tp, err := catalog.CreateType(ctx, contractType("op-type", "OP_TYPE", ""))
		require.NoError(t, err)
		sa, err := catalog.CreateState(ctx, contractState("op-sa", tp.ID, "SA"))
		require.NoError(t, err)
		sb, err := catalog.CreateState(ctx, contractState("op-sb", tp.ID, "SB"))
		require.NoError(t, err)

		op, err := catalog.CreateOperation(ctx, domain.ProcessOperation{
			ID: "op-1", TypeID: tp.ID, Code: "APPROVE", NameEN: "Approve", NameRU: "Approve",
			Icon: "check", ResourceURL: "/forms/approve", Cancel: false,
			AvailableStateIDs: []string{sa.ID},
		})
		require.NoError(t, err)

		got, err := catalog.GetOperation(ctx, op.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{sa.ID}, got.AvailableStateIDs)
		assert.Equal(t, "check", got.Icon)

		require.NoError(t, catalog.SetOperationStates(ctx, op.ID, []string{sb.ID, sa.ID}))
		got, err = catalog.GetOperation(ctx, op.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{sa.ID, sb.ID}, got.AvailableStateIDs)

		got.Cancel = true
		got.Workflow = "wf"
		_, err = catalog.UpdateOperation(ctx, op.ID, got)
		require.NoError(t, err)

		list, err := catalog.ListOperations(ctx, tp.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].Cancel)
		assert.Equal(t, "wf", list[0].Workflow)

		require.NoError(t, catalog.DeleteState(ctx, sa.ID))
		got, err = catalog.GetOperation(ctx, op.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{sb.ID}, got.AvailableStateIDs, "deleting a state should unlink it")

		assert.ErrorIs(t, catalog.SetOperationStates(ctx, op.ID, []string{"no-such-state"}), domain.ErrStateNotFound)
		assert.ErrorIs(t, catalog.SetOperationStates(ctx, "no-such-op", nil), domain.ErrOperationNotFound)

		require.NoError(t, catalog.DeleteOperation(ctx, op.ID))
		_, err = catalog.GetOperation(ctx, op.ID)
		assert.ErrorIs(t, err, domain.ErrOperationNotFound)
	})

	t.Run("Delete Type Cascades", func(t *testing.T) {
		parent, err := catalog.CreateType(ctx, contractType("del-p", "DEL_P", ""))
		require.NoError(t, err)
		_, err = catalog.CreateType(ctx, contractType("del-c", "DEL_C", parent.ID))
		require.NoError(t, err)
		st, err := catalog.CreateState(ctx, contractState("del-s", parent.ID, "DS"))
		require.NoError(t, err)
		op, err := catalog.CreateOperation(ctx, domain.ProcessOperation{
			ID: "del-o", TypeID: parent.ID, Code: "DO", NameEN: "do", NameRU: "do",
			AvailableStateIDs: []string{st.ID},
		})
		require.NoError(t, err)

		require.NoError(t, catalog.DeleteType(ctx, "DEL_P"))

		_, err = catalog.GetType(ctx, "DEL_P")
		assert.ErrorIs(t, err, domain.ErrTypeNotFound)
		_, err = catalog.GetState(ctx, st.ID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
		_, err = catalog.GetOperation(ctx, op.ID)
		assert.ErrorIs(t, err, domain.ErrOperationNotFound)

		child, err := catalog.GetType(ctx, "DEL_C")
		require.NoError(t, err)
		assert.Empty(t, child.ParentID, "children of a deleted type become roots")
	})

	t.Run("Atomic", func(t *testing.T) {
		boom := errors.New("boom")
		err := catalog.Atomic(ctx, func(tx Catalog) error {
			if _, err := tx.CreateType(ctx, contractType("atx-1", "ATX_ROLLBACK", "")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		_, err = catalog.GetType(ctx, "ATX_ROLLBACK")
		assert.ErrorIs(t, err, domain.ErrTypeNotFound, "failed batch must leave no trace")

		err = catalog.Atomic(ctx, func(tx Catalog) error {
			tp, err := tx.CreateType(ctx, contractType("atx-2", "ATX_COMMIT", ""))
			if err != nil {
				return err
			}
			_, err = tx.CreateState(ctx, contractState("atx-s", tp.ID, "AS"))
			return err
		})
		require.NoError(t, err)
		_, err = catalog.GetType(ctx, "ATX_COMMIT")
		assert.NoError(t, err)
		_, err = catalog.GetState(ctx, "atx-s")
		assert.NoError(t, err)
	})
}

// RunPreferenceStoreContract runs a suite of tests to verify that a PreferenceStore
// implementation adheres to the defined interface contract.
func RunPreferenceStoreContract(t *testing.T, store PreferenceStore) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "procmeta.theme", []byte(`"dark"`)))

		got, err := store.Get(ctx, "procmeta.theme")
		require.NoError(t, err)
		assert.Equal(t, `"dark"`, string(got))

		require.NoError(t, store.Set(ctx, "procmeta.theme", []byte(`"light"`)))
		got, err = store.Get(ctx, "procmeta.theme")
		require.NoError(t, err)
		assert.Equal(t, `"light"`, string(got), "Set should overwrite")
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent")
		assert.ErrorIs(t, err, domain.ErrPreferenceNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "procmeta.selection", []byte(`{"typeCode":"T1"}`)))
		require.NoError(t, store.Delete(ctx, "procmeta.selection"))

		_, err := store.Get(ctx, "procmeta.selection")
		assert.ErrorIs(t, err, domain.ErrPreferenceNotFound, "Get after Delete should return ErrPreferenceNotFound")

		assert.NoError(t, store.Delete(ctx, "procmeta.selection"), "Delete of unknown key should be a no-op")
	})
}
