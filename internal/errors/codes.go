package errors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode represents internal error codes for document storage operations
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Client-input errors (4xx equivalent)
	ErrCodeInvalidArgument  ErrorCode = 1000
	ErrCodeRecordNotFound   ErrorCode = 1001
	ErrCodeSectionNotFound  ErrorCode = 1002
	ErrCodeAmbiguousSection ErrorCode = 1003
	ErrCodeInvalidFileName  ErrorCode = 1004

	// Systemic errors (5xx equivalent)
	ErrCodeInternal          ErrorCode = 2000
	ErrCodeFileStoreFailed   ErrorCode = 2001
	ErrCodeActionLogFailed   ErrorCode = 2002
	ErrCodeRecordStoreFailed ErrorCode = 2003
	ErrCodeStorageDirFailed  ErrorCode = 2004
)

// StorageError represents a structured error with code and context
type StorageError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// IsClientError reports whether the error is caused by client input rather
// than a failing resource. Client errors never leave an action record behind
// and must not trigger compensation.
func (e *StorageError) IsClientError() bool {
	return e.Code >= 1000 && e.Code < 2000
}

// ToGRPCStatus converts StorageError to gRPC status
func (e *StorageError) ToGRPCStatus() *status.Status {
	return status.New(e.toGRPCCode(), e.Error())
}

// toGRPCCode maps internal error codes to gRPC codes
func (e *StorageError) toGRPCCode() codes.Code {
	switch e.Code {
	case ErrCodeOK:
		return codes.OK
	case ErrCodeInvalidArgument, ErrCodeInvalidFileName:
		return codes.InvalidArgument
	case ErrCodeRecordNotFound, ErrCodeSectionNotFound:
		return codes.NotFound
	case ErrCodeAmbiguousSection:
		return codes.FailedPrecondition
	case ErrCodeFileStoreFailed, ErrCodeStorageDirFailed:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// NewStorageError creates a new StorageError
func NewStorageError(code ErrorCode, message string, cause error) *StorageError {
	return &StorageError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *StorageError) WithDetail(key string, value interface{}) *StorageError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common errors

func InvalidArgument(message string, cause error) *StorageError {
	return NewStorageError(ErrCodeInvalidArgument, message, cause)
}

func RecordNotFound(recordID int64) *StorageError {
	return NewStorageError(ErrCodeRecordNotFound, fmt.Sprintf("data record not found: %d", recordID), nil).
		WithDetail("record_id", recordID)
}

func SectionNotFound(recordID, sectionID int64) *StorageError {
	return NewStorageError(ErrCodeSectionNotFound, fmt.Sprintf("section %d not found on data record %d", sectionID, recordID), nil).
		WithDetail("record_id", recordID).
		WithDetail("section_id", sectionID)
}

func AmbiguousSection(recordID, sectionID int64, matched int) *StorageError {
	return NewStorageError(ErrCodeAmbiguousSection, fmt.Sprintf("section id %d matches %d sections on data record %d", sectionID, matched, recordID), nil).
		WithDetail("record_id", recordID).
		WithDetail("section_id", sectionID).
		WithDetail("matched", matched)
}

func InvalidFileName(fileName, reason string) *StorageError {
	return NewStorageError(ErrCodeInvalidFileName, fmt.Sprintf("invalid file name '%s': %s", fileName, reason), nil).
		WithDetail("file_name", fileName).
		WithDetail("reason", reason)
}

func InternalError(message string, cause error) *StorageError {
	return NewStorageError(ErrCodeInternal, message, cause)
}

func FileStoreFailed(message string, cause error) *StorageError {
	return NewStorageError(ErrCodeFileStoreFailed, message, cause)
}

func ActionLogFailed(message string, cause error) *StorageError {
	return NewStorageError(ErrCodeActionLogFailed, message, cause)
}

func RecordStoreFailed(message string, cause error) *StorageError {
	return NewStorageError(ErrCodeRecordStoreFailed, message, cause)
}

func StorageDirFailed(path string, cause error) *StorageError {
	return NewStorageError(ErrCodeStorageDirFailed, fmt.Sprintf("unable to prepare storage directory '%s'", path), cause).
		WithDetail("path", path)
}

// IsStorageError checks if an error is a StorageError
func IsStorageError(err error) bool {
	_, ok := err.(*StorageError)
	return ok
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if se, ok := err.(*StorageError); ok {
		return se.Code
	}
	return ErrCodeInternal
}
