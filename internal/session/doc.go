// Package session owns the authentication lifecycle.
//
// [Manager] is the only writer of [models.Session]. It restores a persisted token at startup,
// runs the PKCE login flow, and clears the session on logout or when the API reports the token
// has expired. Subscribers receive an [Event] after every transition.
//
// State machine:
//
//	Uninitialized ──Restore──▶ Restoring ──ok──▶ Authenticated
//	                              │                   │
//	                              └──fail──▶ Unauthenticated ◀──Logout/Expire──┘
//	Unauthenticated ──Login/CompleteLogin──▶ Restoring
//
// Every transition takes a generation number. A slow restore or exchange that finishes after a
// newer transition has begun is discarded instead of overwriting the newer state.
package session
