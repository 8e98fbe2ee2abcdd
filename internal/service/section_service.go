package service

import (
	"context"
	"time"

	"github.com/docvault/docnode/internal/errors"
	"github.com/docvault/docnode/internal/filestore"
	"github.com/docvault/docnode/internal/metrics"
	"github.com/docvault/docnode/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordStore is the record-lookup/persist capability the coordinator
// consumes. *store.Store satisfies it.
type RecordStore interface {
	GetDataRecord(ctx context.Context, id int64) (*model.DataRecord, error)
	GetDataRecordSummary(ctx context.Context, id int64) (*model.DataRecord, error)
	AddSection(ctx context.Context, recordID int64, section model.Section) (*model.Section, error)
	RemoveSection(ctx context.Context, recordID, sectionID int64) error
}

// ActionLog is the write-ahead side of the action log used by the
// coordinator. *store.Store satisfies it.
type ActionLog interface {
	AppendAction(ctx context.Context, storageLocation string, actionType model.ActionType, groupID uuid.NullUUID) (*model.ActionRecord, error)
	MarkCommitted(ctx context.Context, id uuid.UUID) error
}

// SectionData is the payload returned by a section download.
type SectionData struct {
	FileName    string
	ContentType string
	Data        []byte
}

// SectionService coordinates section uploads and deletions across the
// database and the file store. The two resources share no transaction, so
// every risky file operation is preceded by a durable action record; the
// sweeper repairs whatever an interrupted operation leaves behind.
//
// The coordinator never retries inline. A failed operation fails fast, the
// caller retries the business operation, and cleanup is the sweeper's job.
type SectionService struct {
	records RecordStore
	actions ActionLog
	files   filestore.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewSectionService creates a new section transaction coordinator.
func NewSectionService(
	records RecordStore,
	actions ActionLog,
	files filestore.Store,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SectionService {
	return &SectionService{
		records: records,
		actions: actions,
		files:   files,
		metrics: m,
		logger:  logger,
	}
}

// UploadSection attaches an uploaded file to a data record.
//
// Protocol: log a CREATE intent, write the file, insert the section row,
// then mark the intent committed. A failure after the intent is logged
// leaves the record uncommitted; the orphaned file, if any, is removed by
// the sweeper once the grace period passes.
func (s *SectionService) UploadSection(ctx context.Context, recordID int64, fileName, contentType string, data []byte) (*model.DataRecord, error) {
	startTime := time.Now()
	s.metrics.UploadsTotal.Inc()

	if len(data) == 0 {
		return nil, errors.InvalidArgument("section file is empty", nil)
	}

	// Resolve the record before logging anything, so a bad record id fails
	// without leaving an action record behind.
	summary, err := s.records.GetDataRecordSummary(ctx, recordID)
	if err != nil {
		s.metrics.UploadFailuresTotal.Inc()
		return nil, errors.RecordStoreFailed("failed to load data record", err)
	}
	if summary == nil {
		s.logger.Warn("Data record not found for section upload", zap.Int64("record_id", recordID))
		return nil, errors.RecordNotFound(recordID)
	}

	key, err := filestore.GenerateStorageKey(fileName)
	if err != nil {
		return nil, err
	}

	action, err := s.actions.AppendAction(ctx, key, model.ActionTypeCreate, uuid.NullUUID{})
	if err != nil {
		// Nothing was written yet, so there is nothing to compensate.
		s.metrics.UploadFailuresTotal.Inc()
		s.logger.Error("Failed to log upload intent",
			zap.Int64("record_id", recordID),
			zap.Error(err))
		return nil, errors.ActionLogFailed("failed to log upload intent", err)
	}
	s.metrics.ActionAppendsTotal.Inc()

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.files.Store(ctx, key, data); err != nil {
		s.metrics.UploadFailuresTotal.Inc()
		s.logger.Error("Failed to store section file",
			zap.Int64("record_id", recordID),
			zap.String("storage_location", key),
			zap.String("action_id", action.ID.String()),
			zap.Error(err))
		return nil, err
	}

	section, err := s.records.AddSection(ctx, recordID, model.Section{
		FileName:        fileName,
		ContentType:     contentType,
		StorageLocation: key,
	})
	if err != nil {
		// The file may exist with no row referencing it. The uncommitted
		// CREATE record is the durable evidence the sweeper repairs from.
		s.metrics.UploadFailuresTotal.Inc()
		s.logger.Error("Failed to persist section, file left for sweeper",
			zap.Int64("record_id", recordID),
			zap.String("storage_location", key),
			zap.String("action_id", action.ID.String()),
			zap.Error(err))
		return nil, errors.RecordStoreFailed("failed to persist section", err)
	}

	if err := s.actions.MarkCommitted(ctx, action.ID); err != nil {
		s.metrics.UploadFailuresTotal.Inc()
		s.logger.Error("Failed to commit upload action",
			zap.Int64("record_id", recordID),
			zap.String("action_id", action.ID.String()),
			zap.Error(err))
		return nil, errors.ActionLogFailed("failed to commit upload action", err)
	}
	s.metrics.ActionCommitsTotal.Inc()

	record, err := s.records.GetDataRecord(ctx, recordID)
	if err != nil {
		return nil, errors.RecordStoreFailed("failed to reload data record", err)
	}

	s.metrics.UploadBytes.Observe(float64(len(data)))
	s.metrics.UploadDuration.Observe(time.Since(startTime).Seconds())
	s.logger.Info("Uploaded section",
		zap.Int64("record_id", recordID),
		zap.Int64("section_id", section.ID),
		zap.String("storage_location", key))
	return record, nil
}

// DeleteSection detaches a section from a data record.
//
// Protocol: resolve exactly one matching section, log a DELETE intent,
// remove the section row, then mark the intent committed. The physical file
// is removed later by the sweeper, which deletes the blob of every committed
// DELETE action.
func (s *SectionService) DeleteSection(ctx context.Context, recordID, sectionID int64) (*model.DataRecord, error) {
	startTime := time.Now()
	s.metrics.DeletesTotal.Inc()

	record, err := s.records.GetDataRecord(ctx, recordID)
	if err != nil {
		s.metrics.DeleteFailuresTotal.Inc()
		return nil, errors.RecordStoreFailed("failed to load data record", err)
	}
	if record == nil {
		s.logger.Warn("Data record not found for section removal", zap.Int64("record_id", recordID))
		return nil, errors.RecordNotFound(recordID)
	}

	matched := record.SectionsByID(sectionID)
	if len(matched) == 0 {
		s.logger.Warn("Section not found for removal",
			zap.Int64("record_id", recordID),
			zap.Int64("section_id", sectionID))
		return nil, errors.SectionNotFound(recordID, sectionID)
	}
	if len(matched) > 1 {
		// More than one match means a data-integrity violation; deleting a
		// file in that state could destroy a blob another row references.
		s.logger.Error("Multiple sections match id",
			zap.Int64("record_id", recordID),
			zap.Int64("section_id", sectionID),
			zap.Int("matched", len(matched)))
		return nil, errors.AmbiguousSection(recordID, sectionID, len(matched))
	}
	section := matched[0]

	action, err := s.actions.AppendAction(ctx, section.StorageLocation, model.ActionTypeDelete, uuid.NullUUID{})
	if err != nil {
		s.metrics.DeleteFailuresTotal.Inc()
		s.logger.Error("Failed to log delete intent",
			zap.Int64("record_id", recordID),
			zap.Int64("section_id", sectionID),
			zap.Error(err))
		return nil, errors.ActionLogFailed("failed to log delete intent", err)
	}
	s.metrics.ActionAppendsTotal.Inc()

	if err := s.records.RemoveSection(ctx, recordID, sectionID); err != nil {
		// The row still exists and the DELETE action is uncommitted, so the
		// sweeper leaves the still-referenced file alone.
		s.metrics.DeleteFailuresTotal.Inc()
		s.logger.Error("Failed to remove section row",
			zap.Int64("record_id", recordID),
			zap.Int64("section_id", sectionID),
			zap.String("action_id", action.ID.String()),
			zap.Error(err))
		return nil, errors.RecordStoreFailed("failed to remove section", err)
	}

	if err := s.actions.MarkCommitted(ctx, action.ID); err != nil {
		s.metrics.DeleteFailuresTotal.Inc()
		s.logger.Error("Failed to commit delete action",
			zap.Int64("record_id", recordID),
			zap.String("action_id", action.ID.String()),
			zap.Error(err))
		return nil, errors.ActionLogFailed("failed to commit delete action", err)
	}
	s.metrics.ActionCommitsTotal.Inc()

	record.RemoveSection(sectionID)
	s.metrics.DeleteDuration.Observe(time.Since(startTime).Seconds())
	s.logger.Info("Removed section",
		zap.Int64("record_id", recordID),
		zap.Int64("section_id", sectionID),
		zap.String("storage_location", section.StorageLocation))
	return record, nil
}

// DownloadSection reads a section's blob back along with its stored name and
// content type.
func (s *SectionService) DownloadSection(ctx context.Context, recordID, sectionID int64) (*SectionData, error) {
	record, err := s.records.GetDataRecord(ctx, recordID)
	if err != nil {
		return nil, errors.RecordStoreFailed("failed to load data record", err)
	}
	if record == nil {
		s.logger.Warn("Data record not found for section download", zap.Int64("record_id", recordID))
		return nil, errors.RecordNotFound(recordID)
	}

	matched := record.SectionsByID(sectionID)
	if len(matched) != 1 {
		s.logger.Warn("Section not found for download",
			zap.Int64("record_id", recordID),
			zap.Int64("section_id", sectionID),
			zap.Int("matched", len(matched)))
		return nil, errors.SectionNotFound(recordID, sectionID)
	}
	section := matched[0]

	data, err := s.files.Get(ctx, section.StorageLocation)
	if err != nil {
		return nil, err
	}

	s.metrics.DownloadsTotal.Inc()
	s.logger.Info("Downloaded section",
		zap.Int64("record_id", recordID),
		zap.Int64("section_id", sectionID))
	return &SectionData{
		FileName:    section.FileName,
		ContentType: section.ContentType,
		Data:        data,
	}, nil
}
