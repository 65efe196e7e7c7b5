package saved

import "errors"

var (
	ErrAlreadySaved = errors.New("item already saved")
	ErrInvalidItem  = errors.New("invalid saved item")
	ErrPersistence  = errors.New("saved items persistence failed")
	// ErrCorruptData means the persisted collection could not be decoded.
	// Callers should reset the store instead of failing hard.
	ErrCorruptData = errors.New("saved items data is corrupt")
)
