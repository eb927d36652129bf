package checker

import "fmt"

// NetworkError indicates the external IP could not be fetched. The run aborts
// before any state write or notification.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to fetch external IP: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResolutionError indicates the reference domain could not be resolved.
type ResolutionError struct {
	Domain string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %s: %v", e.Domain, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// StorageError indicates an unexpected saved-IP store failure. An absent
// previous value is not a StorageError; it is the normal first-run state.
type StorageError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("saved-IP %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NotificationError indicates one or more channels failed to deliver. It is
// logged but never fails the run: the comparison result stands.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed: %v", e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
