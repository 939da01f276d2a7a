package domain

import "errors"

var (
	ErrCameraNotFound         = errors.New("camera not found")
	ErrSessionNotFound        = errors.New("viewer session not found")
	ErrInvalidTimeWindow      = errors.New("invalid time window")
	ErrNoRecordingFound       = errors.New("no recording found")
	ErrUpstreamUnavailable    = errors.New("upstream unavailable")
	ErrBusy                   = errors.New("extraction queue is full")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)
