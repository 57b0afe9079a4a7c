package spool

import "errors"

// Sentinel errors for spool operations.
var (
	// ErrNotFound indicates no spooled entry has the given ID.
	ErrNotFound = errors.New("spool: entry not found")

	// ErrEmptyPayload indicates an attempt to spool nothing.
	ErrEmptyPayload = errors.New("spool: empty payload")
)
