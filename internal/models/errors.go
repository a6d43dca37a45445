package models

import "errors"

// Error taxonomy for the ledger core. Callers classify failures with
// errors.Is; every error returned by storage and the services wraps exactly
// one of these sentinels.
var (
	// ErrNotFound means a referenced account, flow, or transfer does not
	// exist or does not belong to the requesting user. Nothing was written.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument means the request was rejected before any write:
	// same from/to account, non-positive amount, unknown loan type, or a
	// loan transfer without a counterparty.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAmbiguousState means a transfer's two halves could not both be
	// located, or a duplicate group had no unambiguous canonical record.
	// The operation fails, but any account it touched has already been
	// repaired from the ledger rather than left on fast-path deltas.
	ErrAmbiguousState = errors.New("ambiguous ledger state")

	// ErrStorage wraps an underlying transaction failure. The store's
	// rollback guarantees no partial write occurred.
	ErrStorage = errors.New("storage failure")
)
