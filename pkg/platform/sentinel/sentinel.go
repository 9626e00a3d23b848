package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the blob store return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store
// - ErrAlreadyUsed: a unique value (slug, external ref) is taken
// - ErrConflict: an optimistic precondition did not hold
// - ErrUnavailable: the backing store is temporarily unreachable
//
// For validation failures use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
