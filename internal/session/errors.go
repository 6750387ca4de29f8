package session

import "errors"

// ErrDeviceNotConnected is returned when a recording is requested without
// an active, subscribed device session.
var ErrDeviceNotConnected = errors.New("device not connected")

// ErrAlreadyRecording is returned when a recording is requested while one
// is in progress.
var ErrAlreadyRecording = errors.New("a recording is already in progress")
