// Package apperr defines the failure kinds surfaced to callers. Components
// wrap low-level errors with one of these sentinels and transports map them
// with errors.Is.
package apperr

import "errors"

var (
	// ErrExtraction means the uploaded file was unreadable or yielded too little text.
	ErrExtraction = errors.New("could not extract text from document")
	// ErrIndexBuild means chunking or embedding failed while building an index.
	ErrIndexBuild = errors.New("could not build document index")
	// ErrNoCredential means the user has no active API key.
	ErrNoCredential = errors.New("please add and activate an API key")
	// ErrModelInvocation means the LLM backend returned an error.
	ErrModelInvocation = errors.New("model invocation failed")
	// ErrModelTimeout means the LLM backend did not answer in time.
	ErrModelTimeout = errors.New("model call timed out")
	// ErrBadRequest means the input was missing or malformed.
	ErrBadRequest = errors.New("bad request")
	// ErrBusy means an earlier request of the same user still holds its
	// session and this one stopped waiting.
	ErrBusy = errors.New("another request is still in progress")
	// ErrRateLimited means the user's model request budget is used up.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrNotFound means the referenced record does not exist for this user.
	ErrNotFound = errors.New("not found")
)
