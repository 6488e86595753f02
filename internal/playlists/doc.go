// Package playlists manages the user's playlists: remote ones owned by the service and local
// ones that exist only in this process.
//
// Remote mutations call the API and then re-fetch, so the collection mirrors the service rather
// than a locally patched copy. Local mutations apply synchronously. Playlists are addressed by
// [models.PlaylistKey], so a local and a remote playlist may share an id.
package playlists
