package navgrid

import "errors"

var (
	ErrIndexOutOfRange   = errors.New("navgrid: index out of range")
	ErrTileRemoved       = errors.New("navgrid: tile removed")
	ErrInvalidDimensions = errors.New("navgrid: invalid dimensions")
	ErrSearchLimit       = errors.New("navgrid: search expansion limit reached")
)
