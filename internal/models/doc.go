// Package models defines the playlist-tracking domain entities shared by the on-device and remote stores.
//
// The package contains three groups of types:
//
// 1. Playlist data: the documents both stores hold
//   - [Playlist] : a named ordered collection of videos with derived duration totals
//   - [Video] : one entry of a playlist with its completion flag
//   - [PlaylistDraft] : create input with totals computed from its videos
//   - [PlaylistPatch] : a partial update applied in memory or sent as remote fields
//
// 2. Users: identity from the sign-in provider and the public profile kept remotely
//   - [Identity] : stable user id plus profile fields
//   - [UserProfile] : the userProfiles document with aggregated [UserStats]
//
// 3. Helpers: duration parsing/formatting and [CalculateStats].
//
// JSON tags mirror the on-device blob layout; BSON tags name the remote document fields.
package models
