package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the object-store gateway
// and the graph layer return these (optionally wrapped) so the orchestrator
// can translate them into retry decisions and terminal record states.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity or object does not exist in the backing store
// - ErrConflict: write lost to a concurrent mutation
// - ErrInvalidState: entity in wrong state for the requested transition
//   (e.g. finalizing a record that is already terminal)
// - ErrUnavailable: store temporarily unreachable; safe to retry
//
// For validation failures (bad input, missing fields) use pkg/domainerrors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
