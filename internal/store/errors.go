package store

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrSlotTaken       = errors.New("panel slot already populated")
	ErrVersionConflict = errors.New("aggregate version conflict")
	ErrDuplicate       = errors.New("duplicate key")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
