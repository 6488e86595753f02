// Package server runs the loopback HTTP server that receives the OAuth redirect.
//
// # Router
//
// [NewRouter] builds a chi router with panic recovery and request logging, then lets each
// [Handler] mount its routes.
//
// # Callback Handler
//
// [CallbackHandler] serves the redirect URI. It forwards the query to the session manager and
// publishes exactly one [CallbackResult]. Requests carrying an unknown state are rejected without
// consuming the handler, so a stray request cannot end a login that is still waiting.
//
// # Lifecycle
//
// The CLI starts a [Server] for the duration of one login and shuts it down afterwards. The TUI
// keeps it running so a login can be started at any time.
package server
