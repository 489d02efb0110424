package settings

import "errors"

var (
	// ErrInvalidMode is returned when a mode name is unknown.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidPixelCellSize is returned when a pixel cell size is out of range.
	ErrInvalidPixelCellSize = errors.New("invalid pixel cell size")

	// ErrInvalidBackup is returned when a backup file is malformed.
	ErrInvalidBackup = errors.New("invalid backup")

	// ErrBackupTooLarge is returned when a backup file exceeds MaxBackupSize.
	ErrBackupTooLarge = errors.New("backup too large")

	// ErrEmptyBackup is returned when a backup holds nothing to import.
	ErrEmptyBackup = errors.New("no valid data to import")
)
