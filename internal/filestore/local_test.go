package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/docvault/docnode/internal/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupLocalStore(t *testing.T) (*filestore.LocalStore, string) {
	basePath := filepath.Join(t.TempDir(), "sections")
	return filestore.NewLocalStore(basePath, zap.NewNop()), basePath
}

func TestLocalStore_StoreAndGet(t *testing.T) {
	store, basePath := setupLocalStore(t)
	ctx := context.Background()

	err := store.Store(ctx, "report_123.pdf", []byte("content"))
	require.NoError(t, err)

	// The base directory is created on first write.
	_, err = os.Stat(filepath.Join(basePath, "report_123.pdf"))
	require.NoError(t, err)

	data, err := store.Get(ctx, "report_123.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), data)
}

func TestLocalStore_GetMissing(t *testing.T) {
	store, _ := setupLocalStore(t)

	_, err := store.Get(context.Background(), "nope_1.pdf")
	require.Error(t, err)
}

func TestLocalStore_DeleteToleratesAbsence(t *testing.T) {
	store, _ := setupLocalStore(t)
	ctx := context.Background()

	// Deleting a file that was never written must succeed, the sweeper
	// re-runs compensations after a crash.
	err := store.Delete(ctx, "never_written_1.pdf")
	require.NoError(t, err)

	require.NoError(t, store.Store(ctx, "doc_1.pdf", []byte("x")))
	require.NoError(t, store.Delete(ctx, "doc_1.pdf"))
	require.NoError(t, store.Delete(ctx, "doc_1.pdf"))
}

func TestLocalStore_DeleteIfPresent(t *testing.T) {
	store, basePath := setupLocalStore(t)
	ctx := context.Background()

	removed, err := store.DeleteIfPresent(ctx, "absent_1.pdf")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, store.Store(ctx, "doc_2.pdf", []byte("x")))
	removed, err = store.DeleteIfPresent(ctx, "doc_2.pdf")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = os.Stat(filepath.Join(basePath, "doc_2.pdf"))
	assert.True(t, os.IsNotExist(err))

	removed, err = store.DeleteIfPresent(ctx, "doc_2.pdf")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLocalStore_KeyTraversalGuard(t *testing.T) {
	store, basePath := setupLocalStore(t)
	ctx := context.Background()

	// Keys are reduced to their base name before hitting the filesystem.
	err := store.Store(ctx, "../escape.pdf", []byte("x"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(basePath, "escape.pdf"))
	require.NoError(t, err)
}
