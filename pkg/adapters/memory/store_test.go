package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/procmeta/pkg/adapters/memory"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/aretw0/procmeta/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalog_Contract(t *testing.T) {
	ports.RunCatalogContract(t, memory.NewCatalog())
}

func TestMemoryPreferences_Contract(t *testing.T) {
	ports.RunPreferenceStoreContract(t, memory.NewPreferences())
}

func TestMemoryCatalog_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := memory.NewCatalog()
	tp, err := c.CreateType(ctx, domain.ProcessType{Code: "T", NameEN: "t", NameRU: "t"})
	require.NoError(t, err)
	_, err = c.CreateState(ctx, domain.ProcessState{ID: "s1", TypeID: tp.ID, Code: "S"})
	require.NoError(t, err)
	op, err := c.CreateOperation(ctx, domain.ProcessOperation{ID: "o1", TypeID: tp.ID, Code: "O", AvailableStateIDs: []string{"s1"}})
	require.NoError(t, err)

	op.AvailableStateIDs[0] = "mutated"

	got, err := c.GetOperation(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, got.AvailableStateIDs)
}

func TestMemoryCatalog_NestedAtomicSharesTransaction(t *testing.T) {
	ctx := context.Background()
	c := memory.NewCatalog()

	err := c.Atomic(ctx, func(tx ports.Catalog) error {
		return tx.Atomic(ctx, func(inner ports.Catalog) error {
			_, err := inner.CreateType(ctx, domain.ProcessType{Code: "NESTED"})
			return err
		})
	})
	require.NoError(t, err)

	_, err = c.GetType(ctx, "NESTED")
	assert.NoError(t, err)
}
