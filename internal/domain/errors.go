package domain

import "errors"

var (
	// ErrNotFound covers any record that is absent or belongs to a
	// different user. Ownership failures are deliberately indistinguishable
	// from true absence.
	ErrNotFound = errors.New("not found")

	ErrSessionNotFound = errors.New("session not found")

	// ErrMissingIdentity is returned when a request arrives without a
	// session or user id. These are contract errors and fail the request
	// rather than falling back to a default identity.
	ErrMissingIdentity = errors.New("missing session or user id")
)
