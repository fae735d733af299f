package form

import "errors"

var (
	// ErrValidation reports an empty or unknown asset/group name.
	ErrValidation = errors.New("invalid argument")
	// ErrNotFound reports an operation on a form or group that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState reports an operation on a released form.
	ErrInvalidState = errors.New("invalid state")
	// ErrLoad reports an asset pipeline failure.
	ErrLoad = errors.New("asset load failed")
	// ErrShutdown reports an operation after the manager was torn down.
	ErrShutdown = errors.New("manager shut down")
)
