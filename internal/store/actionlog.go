package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/docvault/docnode/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AppendAction inserts a new action record with committed=false and
// processed=false. The insert commits before any file I/O starts, which is
// the write-ahead ordering the whole protocol rests on.
func (s *Store) AppendAction(ctx context.Context, storageLocation string, actionType model.ActionType, groupID uuid.NullUUID) (*model.ActionRecord, error) {
	record := &model.ActionRecord{
		ID:              uuid.New(),
		StorageLocation: storageLocation,
		ActionType:      actionType,
		GroupID:         groupID,
		CreatedAt:       s.now(),
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO action_records (id, storage_location, action_type, committed, processed, group_id, created_at)
		VALUES (?, ?, ?, FALSE, FALSE, ?, ?)
	`), record.ID.String(), record.StorageLocation, string(record.ActionType), record.GroupID, record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append action record: %w", err)
	}

	s.logger.Debug("Appended action record",
		zap.String("action_id", record.ID.String()),
		zap.String("action_type", string(record.ActionType)),
		zap.String("storage_location", record.StorageLocation))
	return record, nil
}

// MarkCommitted sets committed=true on the given action record. Idempotent:
// committing an already-committed record is a no-op.
func (s *Store) MarkCommitted(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE action_records SET committed = TRUE WHERE id = ?
	`), id.String())
	if err != nil {
		return fmt.Errorf("failed to mark action record committed: %w", err)
	}
	return nil
}

// GetAction retrieves a single action record by id, or nil when absent.
func (s *Store) GetAction(ctx context.Context, id uuid.UUID) (*model.ActionRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, storage_location, action_type, committed, processed, group_id, created_at
		FROM action_records
		WHERE id = ?
	`), id.String())

	var r model.ActionRecord
	err := row.Scan(&r.ID, &r.StorageLocation, &r.ActionType, &r.Committed, &r.Processed, &r.GroupID, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action record: %w", err)
	}
	return &r, nil
}

// FindStaleUnprocessed returns unprocessed action records created before
// olderThan, oldest first, capped at limit. The limit bounds per-sweep work
// so the sweeper cannot starve other database clients; the caller loops
// until the result is empty.
func (s *Store) FindStaleUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]model.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, storage_location, action_type, committed, processed, group_id, created_at
		FROM action_records
		WHERE processed = FALSE AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?
	`), olderThan.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale action records: %w", err)
	}
	defer rows.Close()

	var records []model.ActionRecord
	for rows.Next() {
		var r model.ActionRecord
		if err := rows.Scan(&r.ID, &r.StorageLocation, &r.ActionType, &r.Committed, &r.Processed, &r.GroupID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stale action records: %w", err)
	}
	return records, nil
}

// MarkProcessed sets processed=true for the given ids in one statement.
// processed=true is terminal; the caller passes only the ids whose
// compensation succeeded, so a failed compensation stays visible to the
// next sweep.
func (s *Store) MarkProcessed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}

	query := fmt.Sprintf(
		"UPDATE action_records SET processed = TRUE WHERE id IN (%s)",
		strings.Join(placeholders, ", "),
	)
	if _, err := s.db.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("failed to mark action records processed: %w", err)
	}

	s.logger.Debug("Marked action records processed", zap.Int("count", len(ids)))
	return nil
}

// PruneProcessed deletes processed action records created before olderThan,
// at most limit rows per call. Bounded retention keeps the sweep query from
// scanning an ever-growing table.
func (s *Store) PruneProcessed(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.rebind(`
		DELETE FROM action_records
		WHERE id IN (
			SELECT id FROM action_records
			WHERE processed = TRUE AND created_at < ?
			ORDER BY created_at ASC
			LIMIT ?
		)
	`), olderThan.UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to prune processed action records: %w", err)
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned action records: %w", err)
	}
	if pruned > 0 {
		s.logger.Info("Pruned processed action records", zap.Int64("count", pruned))
	}
	return pruned, nil
}

// CountUnprocessed returns the current action log backlog size, used for the
// sweeper backlog gauge.
func (s *Store) CountUnprocessed(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM action_records WHERE processed = FALSE",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unprocessed action records: %w", err)
	}
	return count, nil
}
