package dao

import "errors"

var (
	// ErrExists is returned by Insert when the key is already taken.
	ErrExists = errors.New("dao: already exists")

	// ErrNilEntity is returned when the caller attempts to persist a nil
	// pointer.
	ErrNilEntity = errors.New("dao: nil entity")
)
