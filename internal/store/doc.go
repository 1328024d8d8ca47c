// Package store holds the playlist storage adapters and the facade the rest of the application uses.
//
// [LocalStore] keeps a guest's playlists as one JSON blob in the on-device
// key-value store. [RemoteStore] keeps a signed-in user's playlists as
// documents in the remote collection and streams full snapshots on change.
// Both are exposed as a [Backend]; the [Facade] routes every call to exactly
// one of them and switches between them atomically.
//
// Read-modify-write operations (toggles, renames, bulk marks) carry no version
// check. Two processes toggling the same playlist concurrently can lose one
// write; the last write wins.
package store
