package client

import (
	"errors"
)

// Common errors returned by the client.
var (
	// ErrNotFound is returned by Fetch when the API reports the resource
	// does not exist. Not a failure; callers treat it as a terminal state.
	ErrNotFound = errors.New("not found")

	// ErrAttemptsExhausted is returned when every attempt of a logical
	// fetch failed without a success or a not-found.
	ErrAttemptsExhausted = errors.New("attempts exhausted")

	// ErrNotList is returned by FetchPaginated when a page is not a JSON
	// list.
	ErrNotList = errors.New("paginated endpoint did not return a list")

	// ErrCancelled is returned when the context is cancelled during a
	// rate-limit or backoff pause.
	ErrCancelled = errors.New("cancelled")
)

// ErrorClass categorizes a failed attempt for logging and metrics.
type ErrorClass string

const (
	// ErrorClassNetwork covers transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassServer covers non-success HTTP statuses other than 404,
	// 403 and 429.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit covers 403 and 429 quota responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassDecode covers response bodies that fail to parse as JSON.
	ErrorClassDecode ErrorClass = "decode"
)
