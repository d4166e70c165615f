package console

import "fmt"

// AuthError means the login flow never reached a stable authenticated
// state. No lookups are possible without it, so the caller aborts the
// lookup phase.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("console: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// BulkUpdateError means one step of the bulk-upload sequence failed. It is
// fatal to the upload step only; the caller treats it as a warning because
// the payload has already reached the document store.
type BulkUpdateError struct {
	Step string
	Err  error
}

func (e *BulkUpdateError) Error() string {
	return fmt.Sprintf("console: bulk update failed at step %q: %v", e.Step, e.Err)
}

func (e *BulkUpdateError) Unwrap() error { return e.Err }
