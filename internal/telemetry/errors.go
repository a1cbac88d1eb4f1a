package telemetry

import "codeberg.org/mutker/radmon/internal/errors"

const (
	// Configuration errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Storage errors
	ErrStorageInit   = errors.ErrorCode("telemetry_storage_init_failed")
	ErrStorageAccess = errors.ErrorCode("telemetry_storage_access_failed")
	ErrStorageClose  = errors.ErrorCode("telemetry_storage_close_failed")

	// Operation errors
	ErrInvalidReading   = errors.ErrorCode("telemetry_invalid_reading")
	ErrOperationTimeout = errors.ErrorCode("telemetry_operation_timeout")
	ErrServiceShutdown  = errors.ErrorCode("telemetry_service_shutdown_failed")
)
