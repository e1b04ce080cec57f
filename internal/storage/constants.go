package storage

import "errors"

const (
	// Size thresholds
	MaxInlineStorageSize = 10 * 1024 * 1024  // 10MB - store in DB
	MaxStorageSize       = 100 * 1024 * 1024 // 100MB - max total size

	// Change kinds recorded in history
	ChangeInsert = "insert"
	ChangeUpdate = "update"
	ChangeDelete = "delete"

	// Change authors
	AuthorLocal  = "local"
	AuthorMirror = "mirror"
)

// Storage errors
var (
	ErrFileTooLarge = errors.New("content size exceeds maximum allowed size")
	ErrNotFound     = errors.New("record not found")
	ErrNotShared    = errors.New("item is not shared")
	ErrClosed       = errors.New("storage is closed")
)
