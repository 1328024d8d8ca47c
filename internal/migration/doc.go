// Package migration moves a guest's on-device playlists into the signed-in user's remote collection, once.
//
// A per-user [Marker] in the on-device store records progress:
//
//	absent -> in_progress -> completed
//
// in_progress is written before the first remote insert. Finding it on a later
// evaluation means a run was interrupted; the coordinator does not retry on its
// own and [Coordinator.Recover] is the explicit way out. Every migrated document
// carries the local id in migratedFrom, and every run skips local playlists
// already present remotely, so retries and recovery never insert twice.
//
// [SessionMigrationState] is the in-memory half of the guard: overlapping calls
// for one user share a single run, and a failed outcome is remembered until
// sign-out so repeated evaluations do not hammer the remote store.
package migration
