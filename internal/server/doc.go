// Package server provides the local HTTP callback server used by browser sign-in.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] logs each request through a charmbracelet logger.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback. It validates the state parameter,
// exchanges the code (with an optional PKCE verifier) and sends exactly one result through a channel.
// Later callbacks are rejected to prevent replay.
//
// # Callback Server
//
// [CallbackServer] binds a listener before the browser is opened, so the redirect URI can be derived
// from the bound address, and shuts down once the flow finishes.
package server
