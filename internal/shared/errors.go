package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Storage errors
	ErrNotFound     = fmt.Errorf("not found")
	ErrLocalRead    = fmt.Errorf("local store read failed")
	ErrLocalWrite   = fmt.Errorf("local store write failed")
	ErrRemoteWrite  = fmt.Errorf("remote store write failed")
	ErrRemoteRead   = fmt.Errorf("remote store read failed")
	ErrSubscription = fmt.Errorf("subscription failed")

	// Migration errors
	ErrMigrationPartial     = fmt.Errorf("migration partially failed")
	ErrMigrationInterrupted = fmt.Errorf("previous migration was interrupted")

	// API and service errors
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound    = fmt.Errorf("playlist not found")
	ErrVideoNotFound       = fmt.Errorf("video not found")
	ErrUnsupportedPlaylist = fmt.Errorf("unsupported playlist")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrAlreadyExists   = fmt.Errorf("already exists")
)

// RemoteWriteError reports a failed insert, patch, or remove against the remote document store.
//
// It matches [ErrRemoteWrite] and whatever caused it, so callers can test for [ErrNotFound].
type RemoteWriteError struct {
	Op         string // "insert", "patch", "remove"
	Collection string
	ID         string
	Err        error
}

func (e *RemoteWriteError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("remote %s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *RemoteWriteError) Unwrap() []error { return []error{ErrRemoteWrite, e.Err} }

// LocalReadError reports unparsable data in the on-device store.
//
// It is logged and recovered from; callers never see it through the local adapter.
type LocalReadError struct {
	Key string
	Err error
}

func (e *LocalReadError) Error() string {
	return fmt.Sprintf("local read %s: %v", e.Key, e.Err)
}

func (e *LocalReadError) Unwrap() []error { return []error{ErrLocalRead, e.Err} }

// SubscriptionError reports that a live collection subscription stopped.
type SubscriptionError struct {
	Owner string
	Err   error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription for %s: %v", e.Owner, e.Err)
}

func (e *SubscriptionError) Unwrap() []error { return []error{ErrSubscription, e.Err} }
