// Package docstore provides the realtime document store used to relay
// orders between terminals.
//
// The package has two halves:
//
//   - Client: the contract every consumer programs against. It mirrors the
//     hosted realtime store the terminals talk to in production: identity,
//     subscription with full-snapshot delivery, create, merge-patch, query
//     and delete.
//   - Store: a SQLite-backed implementation of Client. Documents are stored
//     as JSON and queried with the JSON1 extension, so sort-by-field and
//     query-by-field work without secondary tables.
//
// # Usage contract
//
// Subscribe delivers an initial snapshot promptly and a fresh full snapshot
// after every successful write to the collection. Snapshots replace prior
// state entirely; consumers must not merge them. A slow consumer observes
// the newest snapshot (latest wins) - snapshots are never queued behind it
// and writers are never blocked by it.
//
// MergePatch applies only the fields present in the patch. There is no full
// overwrite operation.
//
// EnsureIdentity must resolve before any other call on a cold path. Calls
// made without an identity fail with a TransportError carrying
// CodeNotAuthenticated.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package docstore
