// Package credstore abstracts session credential persistence behind one
// logical store with interchangeable adapters.
//
// The dashboard persisted the same tokens in browser localStorage and in
// cookies; here that becomes a single [Store] interface with in-memory,
// file, and Redis backings. The client owns the write policy (tokens and
// user are saved and cleared together); adapters own only the medium.
//
// # What this package must NOT do
//
//   - Inspect or validate tokens; the serialized user blob is opaque.
//   - Import the root sessionkit package.
package credstore
