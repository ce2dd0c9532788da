package repository

import "errors"

// Sentinel kinds for archive errors.
var (
	ErrArchive      = errors.New("run archive failure")
	ErrNotFound     = errors.New("run not found")
	ErrInvalidLimit = errors.New("invalid run listing limit")
)
