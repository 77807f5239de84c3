package draw

import "errors"

var (
	ErrInvalidClaim    = errors.New("draw claim not available")
	ErrInvalidOffer    = errors.New("draw offer not allowed")
	ErrStaleOffer      = errors.New("no pending draw offer")
	ErrCorruptPosition = errors.New("corrupt position input")
	ErrGameOver        = errors.New("game already ended")
)
