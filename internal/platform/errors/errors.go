package apperrors

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrNoActiveSource    = errors.New("no active source")
	ErrSessionNotActive  = errors.New("playback session is not active")
	ErrNoRenderTarget    = errors.New("no render target attached")
	ErrRepairUnavailable = errors.New("repair is not available for the current error")
)
