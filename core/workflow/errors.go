package workflow

import (
	"errors"

	"kestrel-qhse/core/store"
)

var (
	ErrInvalidInput      = errors.New("workflow: invalid input")
	ErrNotFound          = errors.New("workflow: not found")
	ErrTemplateNotFound  = errors.New("workflow: template not found")
	ErrDuplicateWorkflow = errors.New("workflow: incident already has an open workflow")
	ErrPermissionDenied  = errors.New("workflow: permission denied")
	ErrInvalidTransition = errors.New("workflow: step is not active")
	ErrStoreUnavailable  = errors.New("workflow: store unavailable")
)

// ErrConflict marks a lost concurrency race. Retryable after re-reading
// current state.
var ErrConflict = store.ErrConflict
