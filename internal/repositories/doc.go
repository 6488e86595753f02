// Package repositories persists the single durable value encore owns: the Spotify access token.
//
// Implementations of [CredentialStore]:
//   - [CredentialRepository] : a row in the SQLite credentials table, keyed by slot
//   - [FileCredentialStore] : a 0600 JSON file for machines without a writable database
//   - [MemoryCredentialStore] : process-local storage for tests and ephemeral sessions
//
// Every implementation reports an empty slot as ("", nil) and treats deleting an empty slot as success.
package repositories
