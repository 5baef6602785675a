package domain

import "errors"

// ErrJobNotFound indicates an unknown job id on the registry.
var ErrJobNotFound = errors.New("job not found")

// ErrNoPendingUpload indicates there is no stored resume context for the
// item; the session may have expired or was already consumed.
var ErrNoPendingUpload = errors.New("no pending upload context for this item")

// ErrUnsupportedFileType indicates an uploaded file with an extension
// outside the audio allow-list.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// ErrCancelled is the fixed failure used for cooperative cancellation.
var ErrCancelled = errors.New("cancelled")
