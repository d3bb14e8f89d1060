package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/procmeta/pkg/adapters/file"
	"github.com/aretw0/procmeta/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunPreferenceStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "procmeta.theme", []byte("dark")))
	require.NoError(t, store.Set(ctx, "procmeta.theme", []byte("light")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "procmeta.theme.pref", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, "procmeta.theme.pref"))
	require.NoError(t, err)
	assert.Equal(t, "light", string(data))
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		assert.Error(t, store.Set(ctx, key, []byte("x")), "key %q", key)
	}
}
