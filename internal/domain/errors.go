package domain

import "errors"

var (
	// ErrQuestionSource is returned when the trivia API cannot produce a question set.
	ErrQuestionSource = errors.New("question source failed")
	// ErrRoundNotFound is returned when a client has no rendered round.
	ErrRoundNotFound = errors.New("round not found")
	// ErrStaleRound is returned when a submission names a round that is no
	// longer the client's current one.
	ErrStaleRound = errors.New("stale round")
	// ErrUnknownBackend indicates a ledger backend name that has no adapter.
	ErrUnknownBackend = errors.New("unknown ledger backend")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
)
