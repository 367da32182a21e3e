package telemetry

import "codeberg.org/mutker/sensoragent/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("telemetry_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("telemetry_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("telemetry_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("telemetry_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitJournal
	ErrStorageClose = errors.ErrCloseJournal

	// Session Errors
	ErrInvalidSession = errors.ErrorCode("telemetry_invalid_session")
	ErrRecordSession  = errors.ErrorCode("telemetry_record_session_failed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
