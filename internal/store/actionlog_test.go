package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/docvault/docnode/internal/model"
	"github.com/docvault/docnode/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupStore opens a throwaway SQLite-backed store.
func setupStore(t *testing.T) *store.Store {
	s, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "docnode.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// backdate rewrites an action record's creation time so staleness can be
// tested without sleeping.
func backdate(t *testing.T, s *store.Store, id uuid.UUID, age time.Duration) {
	_, err := s.DB().Exec(
		"UPDATE action_records SET created_at = ? WHERE id = ?",
		time.Now().UTC().Add(-age), id.String(),
	)
	require.NoError(t, err)
}

func TestAppendAction_Defaults(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	record, err := s.AppendAction(ctx, "report_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.False(t, record.Committed)
	assert.False(t, record.Processed)
	assert.False(t, record.CreatedAt.IsZero())

	stored, err := s.GetAction(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, record.ID, stored.ID)
	assert.Equal(t, "report_1.pdf", stored.StorageLocation)
	assert.Equal(t, model.ActionTypeCreate, stored.ActionType)
	assert.False(t, stored.Committed)
	assert.False(t, stored.Processed)
	assert.False(t, stored.GroupID.Valid)
}

func TestAppendAction_GroupID(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	group := uuid.NullUUID{UUID: uuid.New(), Valid: true}
	record, err := s.AppendAction(ctx, "a_1.pdf", model.ActionTypeDelete, group)
	require.NoError(t, err)

	stored, err := s.GetAction(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.GroupID.Valid)
	assert.Equal(t, group.UUID, stored.GroupID.UUID)
}

func TestGetAction_Missing(t *testing.T) {
	s := setupStore(t)

	record, err := s.GetAction(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestMarkCommitted_Idempotent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	record, err := s.AppendAction(ctx, "doc_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)

	require.NoError(t, s.MarkCommitted(ctx, record.ID))
	require.NoError(t, s.MarkCommitted(ctx, record.ID))

	stored, err := s.GetAction(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, stored.Committed)
	assert.False(t, stored.Processed)
}

func TestFindStaleUnprocessed_GraceBoundary(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	old, err := s.AppendAction(ctx, "old_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)
	backdate(t, s, old.ID, 2*time.Hour)

	fresh, err := s.AppendAction(ctx, "fresh_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)

	cutoff := time.Now().UTC().Add(-time.Hour)
	stale, err := s.FindStaleUnprocessed(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
	assert.NotEqual(t, fresh.ID, stale[0].ID)
}

func TestFindStaleUnprocessed_OrderAndLimit(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	oldest, err := s.AppendAction(ctx, "a_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)
	backdate(t, s, oldest.ID, 3*time.Hour)

	middle, err := s.AppendAction(ctx, "b_1.pdf", model.ActionTypeDelete, uuid.NullUUID{})
	require.NoError(t, err)
	backdate(t, s, middle.ID, 2*time.Hour)

	newest, err := s.AppendAction(ctx, "c_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)
	backdate(t, s, newest.ID, 1*time.Hour)

	cutoff := time.Now().UTC()

	stale, err := s.FindStaleUnprocessed(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, stale, 3)
	assert.Equal(t, oldest.ID, stale[0].ID)
	assert.Equal(t, middle.ID, stale[1].ID)
	assert.Equal(t, newest.ID, stale[2].ID)

	limited, err := s.FindStaleUnprocessed(ctx, cutoff, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, oldest.ID, limited[0].ID)
	assert.Equal(t, middle.ID, limited[1].ID)
}

func TestFindStaleUnprocessed_SkipsProcessed(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	done, err := s.AppendAction(ctx, "done_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)
	backdate(t, s, done.ID, 2*time.Hour)
	require.NoError(t, s.MarkProcessed(ctx, []uuid.UUID{done.ID}))

	pending, err := s.AppendAction(ctx, "pending_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)
	backdate(t, s, pending.ID, 2*time.Hour)

	stale, err := s.FindStaleUnprocessed(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, pending.ID, stale[0].ID)
}

func TestMarkProcessed_Partial(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		record, err := s.AppendAction(ctx, "f_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
		require.NoError(t, err)
		ids = append(ids, record.ID)
	}

	// Only the first two succeeded; the third stays visible to the next
	// sweep.
	require.NoError(t, s.MarkProcessed(ctx, ids[:2]))

	count, err := s.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	third, err := s.GetAction(ctx, ids[2])
	require.NoError(t, err)
	assert.False(t, third.Processed)
}

func TestMarkProcessed_Empty(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.MarkProcessed(context.Background(), nil))
}

func TestPruneProcessed(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	oldDone, err := s.AppendAction(ctx, "a_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)
	backdate(t, s, oldDone.ID, 100*time.Hour)
	require.NoError(t, s.MarkProcessed(ctx, []uuid.UUID{oldDone.ID}))

	oldPending, err := s.AppendAction(ctx, "b_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)
	backdate(t, s, oldPending.ID, 100*time.Hour)

	freshDone, err := s.AppendAction(ctx, "c_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)
	require.NoError(t, s.MarkProcessed(ctx, []uuid.UUID{freshDone.ID}))

	pruned, err := s.PruneProcessed(ctx, time.Now().UTC().Add(-72*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	// The unprocessed record survives regardless of age, it still needs
	// compensation.
	stillThere, err := s.GetAction(ctx, oldPending.ID)
	require.NoError(t, err)
	require.NotNil(t, stillThere)

	gone, err := s.GetAction(ctx, oldDone.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := s.GetAction(ctx, freshDone.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
}

func TestCountUnprocessed(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	count, err := s.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	record, err := s.AppendAction(ctx, "a_1.pdf", model.ActionTypeCreate, uuid.NullUUID{})
	require.NoError(t, err)

	count, err = s.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, s.MarkProcessed(ctx, []uuid.UUID{record.ID}))

	count, err = s.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
