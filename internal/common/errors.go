// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Identity integrity errors. These indicate either a client presenting
	// an identifier it was never issued, or store corruption, and must be
	// logged distinctly from an ordinary "not found".
	ErrDuplicateCard = errors.New("card id already registered")
	ErrIntegrity     = errors.New("identity integrity violation")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")
)
