package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docvault/docnode/internal/model"
	"go.uber.org/zap"
)

// CreateDataRecord inserts a data record with its initial fields and returns
// the stored aggregate. This is the persist half of the record capability the
// coordinator consumes; it also seeds fixtures in tests.
func (s *Store) CreateDataRecord(ctx context.Context, title, description string, fields []model.Field) (*model.DataRecord, error) {
	now := s.now()
	record := &model.DataRecord{
		Title:       title,
		Description: description,
		CreatedAt:   now,
		ModifiedAt:  now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	record.ID, err = s.insertReturningID(ctx, tx, `
		INSERT INTO data_records (title, description, created_at, modified_at)
		VALUES (?, ?, ?, ?)
	`, title, description, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert data record: %w", err)
	}

	for _, f := range fields {
		f.CreatedAt = now
		f.ID, err = s.insertReturningID(ctx, tx, `
			INSERT INTO fields (data_record_id, name, value, created_at)
			VALUES (?, ?, ?, ?)
		`, record.ID, f.Name, f.Value, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert field: %w", err)
		}
		record.AddField(f)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit data record: %w", err)
	}

	s.logger.Info("Created data record", zap.Int64("record_id", record.ID))
	return record, nil
}

// GetDataRecord loads the full aggregate: the record plus all of its fields
// and sections. Returns nil when the record does not exist.
func (s *Store) GetDataRecord(ctx context.Context, id int64) (*model.DataRecord, error) {
	record, err := s.GetDataRecordSummary(ctx, id)
	if err != nil || record == nil {
		return record, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, name, value, created_at
		FROM fields
		WHERE data_record_id = ?
		ORDER BY id ASC
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query fields: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f model.Field
		if err := rows.Scan(&f.ID, &f.Name, &f.Value, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		record.AddField(f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fields: %w", err)
	}

	sections, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, file_name, content_type, storage_location, created_at
		FROM sections
		WHERE data_record_id = ?
		ORDER BY id ASC
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer sections.Close()
	for sections.Next() {
		var sec model.Section
		if err := sections.Scan(&sec.ID, &sec.FileName, &sec.ContentType, &sec.StorageLocation, &sec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		record.AddSection(sec)
	}
	if err := sections.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sections: %w", err)
	}

	return record, nil
}

// GetDataRecordSummary loads the record row without its fields and sections.
// Returns nil when the record does not exist.
func (s *Store) GetDataRecordSummary(ctx context.Context, id int64) (*model.DataRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, title, description, created_at, modified_at
		FROM data_records
		WHERE id = ?
	`), id)

	var r model.DataRecord
	err := row.Scan(&r.ID, &r.Title, &r.Description, &r.CreatedAt, &r.ModifiedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data record: %w", err)
	}
	return &r, nil
}

// AddSection persists a section row on the given record and bumps the
// record's modified_at. Returns the stored section with its assigned id.
func (s *Store) AddSection(ctx context.Context, recordID int64, section model.Section) (*model.Section, error) {
	now := s.now()
	section.CreatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	section.ID, err = s.insertReturningID(ctx, tx, `
		INSERT INTO sections (data_record_id, file_name, content_type, storage_location, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, recordID, section.FileName, section.ContentType, section.StorageLocation, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert section: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE data_records SET modified_at = ? WHERE id = ?
	`), now, recordID); err != nil {
		return nil, fmt.Errorf("failed to touch data record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit section: %w", err)
	}

	s.logger.Debug("Added section",
		zap.Int64("record_id", recordID),
		zap.Int64("section_id", section.ID))
	return &section, nil
}

// RemoveSection deletes the section row from the record and bumps the
// record's modified_at. Removing a row that is already gone is an error; the
// coordinator resolves the section before calling this.
func (s *Store) RemoveSection(ctx context.Context, recordID, sectionID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, s.rebind(`
		DELETE FROM sections WHERE id = ? AND data_record_id = ?
	`), sectionID, recordID)
	if err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted sections: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("section %d not present on data record %d", sectionID, recordID)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE data_records SET modified_at = ? WHERE id = ?
	`), s.now(), recordID); err != nil {
		return fmt.Errorf("failed to touch data record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit section removal: %w", err)
	}

	s.logger.Debug("Removed section",
		zap.Int64("record_id", recordID),
		zap.Int64("section_id", sectionID))
	return nil
}

// insertReturningID runs an insert and returns the generated id, using
// RETURNING on PostgreSQL and LastInsertId on SQLite.
func (s *Store) insertReturningID(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) (int64, error) {
	if s.driver == DriverPostgres {
		var id int64
		q := s.rebind(query) + " RETURNING id"
		if err := tx.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}
