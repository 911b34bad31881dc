// Package store defines the persistence interfaces consumed by the
// scheduler and the sync engine, the shared error taxonomy, and the
// transaction helper. Implementations live under internal/platform.
//
// Every mutating scheduler operation runs inside a single transaction via
// RunInTransaction; the WithTx variants on each interface bind a store to
// that transaction. "No such row" is always reported as ErrNotFound (or an
// entity-specific wrapper), distinct from genuine store errors.
package store
