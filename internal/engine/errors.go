package engine

import "errors"

// Sentinel errors the engine returns. Wrapped underlying I/O errors remain
// inspectable via errors.Unwrap; callers should compare against these with
// errors.Is.
var (
	ErrKeyIsEmpty                = errors.New("engine: key is empty")
	ErrKeyNotFound               = errors.New("engine: key not found")
	ErrDirPathIsEmpty            = errors.New("engine: directory path is empty")
	ErrDataFileSizeTooSmall      = errors.New("engine: data file size must be greater than zero")
	ErrFailedToCreateDatabaseDir = errors.New("engine: failed to create database directory")
	ErrFailedToReadDatabaseDir   = errors.New("engine: failed to read database directory")
	ErrDataDirectoryCorrupted    = errors.New("engine: data directory corrupted")
	ErrDatabaseAlreadyInUse      = errors.New("engine: database directory is already in use")
	ErrFailedToOpenDataFile      = errors.New("engine: failed to open data file")
	ErrDataFileNotFound          = errors.New("engine: referenced data file not found")
	ErrIndexUpdateFailed         = errors.New("engine: index update failed")
)
