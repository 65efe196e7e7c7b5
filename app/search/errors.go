package search

import "errors"

var (
	ErrEmptyQuery      = errors.New("search query is empty")
	ErrProviderFailure = errors.New("search provider failed")
	// ErrSuperseded is returned by an execution that finished after a newer
	// query was issued. Its results were discarded.
	ErrSuperseded     = errors.New("search superseded by a newer query")
	ErrSearchNotFound = errors.New("saved search not found")
	ErrNoRepository   = errors.New("saved searches are not configured")
)
