// Package models defines the core domain records of the bookkeep ledger.
//
// # Records
//
//   - Account: a monetary bucket with a cached balance
//   - Flow: one ledger entry (single-sided money event)
//   - Transfer: the paired construct owning exactly two flows
//
// # The balance invariant
//
// Account.Balance is a cache. The authoritative value is the sum of
// Flow.SignedAmount over every flow referencing the account, eliminate flag
// ignored (elimination affects reporting aggregates, not balance; the money
// still moved). The reconciler package computes that sum; every mutating
// path either applies the exact matching delta or defers to the reconciler.
//
// # The pairing invariant
//
// A Transfer owns exactly two flows: one expense on the source account, one
// income on the destination, equal amounts, both marked eliminate. Flows
// carrying a TransferID are never touched individually; any operation on
// one half goes through the whole aggregate.
//
// # Design principles
//
// 1. **IDs over pointers**: records reference each other by UUID strings,
// never by embedded pointers, to keep storage round-trips trivial.
// 2. **Signs are derived**: Flow.Amount is always a non-negative magnitude;
// direction lives in Kind alone.
// 3. **Money is decimal**: amounts use shopspring/decimal end to end; no
// float arithmetic anywhere near a balance.
package models
