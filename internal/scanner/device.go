// Package scanner acquires QR payloads from a capture device and drives
// check-in attempts from them.
//
// A Session owns the device while it runs and always releases it. A
// Station layers the operator-facing state machine on top of a Session:
//
//	Idle -> Scanning -> Success -> (cool-down) -> Idle
//	                 -> Error   -> (Start)     -> Scanning
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Facing selects a camera on devices that have more than one.
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Frame is one unit of captured input handed to a Decoder.
type Frame []byte

// Device is a capture source that can be opened one stream at a time.
type Device interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is an open capture. Ready is closed once frames are flowing and
// Frames is closed when the capture ends on its own.
type Stream interface {
	Ready() <-chan struct{}
	Frames() <-chan Frame
	Close() error
}

// Decoder extracts a payload from a frame. Frames without a code return an error.
type Decoder interface {
	Decode(Frame) (string, error)
}

// Device errors. Implementations return these, optionally wrapped, so
// start failures can be classified.
var (
	ErrPermissionDenied = errors.New("device permission denied")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrDeviceBusy       = errors.New("device busy")
	ErrNoCode           = errors.New("no code in frame")
)

// ErrStartCancelled is returned by Start when Stop, another Start or the
// caller's context ends the start before the device goes live.
var ErrStartCancelled = errors.New("scanner start cancelled")

// ErrorKind classifies why a session failed to start.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission_denied"
	KindDeviceNotFound   ErrorKind = "device_not_found"
	KindDeviceBusy       ErrorKind = "device_busy"
	KindStartTimeout     ErrorKind = "start_timeout"
	KindUnknown          ErrorKind = "unknown"
)

// StartError is returned by Session.Start.
type StartError struct {
	Kind ErrorKind
	Err  error
}

func (e *StartError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("scanner start failed: %s", e.Kind)
	}
	return fmt.Sprintf("scanner start failed: %s: %v", e.Kind, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// Message is the operator-facing text for a start failure.
func (e *StartError) Message() string {
	switch e.Kind {
	case KindPermissionDenied:
		return "Camera permission is required. Allow access and try again."
	case KindDeviceNotFound:
		return "No camera was found."
	case KindDeviceBusy:
		return "The camera is in use by another application."
	case KindStartTimeout:
		return "The camera did not start in time. Try again."
	default:
		return "The camera could not be started."
	}
}

// Classify maps a device error onto a StartError.
func Classify(err error) *StartError {
	var se *StartError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &se):
		return se
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, fs.ErrPermission):
		return &StartError{Kind: KindPermissionDenied, Err: err}
	case errors.Is(err, ErrDeviceNotFound), errors.Is(err, fs.ErrNotExist):
		return &StartError{Kind: KindDeviceNotFound, Err: err}
	case errors.Is(err, ErrDeviceBusy), errors.Is(err, syscall.EBUSY):
		return &StartError{Kind: KindDeviceBusy, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &StartError{Kind: KindStartTimeout, Err: err}
	default:
		return &StartError{Kind: KindUnknown, Err: err}
	}
}
