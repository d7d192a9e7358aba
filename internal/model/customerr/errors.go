package customerr

import "github.com/pkg/errors"

// InvalidRecordError rejects bad user input before any store mutation.
type InvalidRecordError struct {
	Err string
}

func (e *InvalidRecordError) Error() string {
	return e.Err
}

// RemoteUnavailableError wraps transport failures talking to the remote store.
type RemoteUnavailableError struct {
	Cause error
}

func (e *RemoteUnavailableError) Error() string {
	return "remote unavailable: " + e.Cause.Error()
}

func (e *RemoteUnavailableError) Unwrap() error {
	return e.Cause
}

// UnauthorizedError means the remote store rejected the supplied identity.
type UnauthorizedError struct {
	Identity string
}

func (e *UnauthorizedError) Error() string {
	return "identity rejected by remote store"
}

func IsInvalidRecord(err error) bool {
	var target *InvalidRecordError
	return errors.As(err, &target)
}

func IsRemoteUnavailable(err error) bool {
	var target *RemoteUnavailableError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}
