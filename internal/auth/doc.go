// Package auth tracks who is signed in.
//
// [SessionProvider] persists the signed-in [models.Identity] in the on-device
// store so a restart resumes the session, and notifies watchers on every change.
// [GoogleLogin] runs the browser authorization code flow (with PKCE) against a
// local callback server and resolves the Google account into an identity.
package auth
