// Package tasks runs long playlist operations in the background with progress reporting.
//
// # Bulk export
//
// [Exporter.Export] writes many playlists to one directory. A producer resolves each
// playlist's tracks through a [PlaylistSource] under a rate limiter and hands the result
// to a small worker pool that renders files with the formatter package. Failures are
// recorded per playlist and never abort the batch. A manifest summarizing every playlist
// is written last.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends use select with default,
// so a slow reader misses updates instead of blocking the export.
package tasks
