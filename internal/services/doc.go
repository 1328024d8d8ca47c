// Package services fetches playlist metadata for import.
//
// # Fetcher Interface
//
// [Fetcher] resolves a source playlist id into a title and an ordered list of videos.
// Everything that imports playlists goes through it, so implementations can be stacked.
//
// # Proxy Client
//
// [FetchClient] talks to the metadata proxy, which pages through the YouTube Data API
// on the server side. It POSTs {"playlistId"} to /api/youtube/playlist and is rate
// limited per client. YouTube Mix and Radio playlists (ids starting with "RD") are
// rejected before any request is made.
//
// # Cache
//
// [CachedFetcher] keeps successful results in Redis under playlist_meta:<id> for a
// fixed TTL and collapses concurrent fetches for the same id.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrUnsupportedPlaylist] : mix or radio playlist ids
//   - [shared.ErrAPIRequest] : transport failure or non-2xx status (see [FetchError])
//   - [shared.ErrPlaylistNotFound] : the proxy answered 404
package services
