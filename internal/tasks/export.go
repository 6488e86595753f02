package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 5.0
	manifestName     = "export_manifest.json"
)

// PlaylistSource resolves playlists and their tracks. [playlists.Manager] satisfies it.
type PlaylistSource interface {
	Get(key models.PlaylistKey) (models.Playlist, bool)
	Tracks(ctx context.Context, key models.PlaylistKey) ([]models.Track, error)
}

// ExportOpts contains configuration for bulk playlist exports.
type ExportOpts struct {
	Format    formatter.Format // Output format (default: json)
	OutputDir string           // Base output directory (default: encore_export_{epoch})
	Workers   int              // Concurrent file writers (default: 4, max: 10)
	RateLimit float64          // Track fetches per second (default: 5)
}

// ExportResult is the outcome for one playlist.
type ExportResult struct {
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	File         string `json:"file,omitempty"`
	Tracks       int    `json:"tracks"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	err          error
}

// Err returns the failure, if any.
func (r ExportResult) Err() error {
	return r.err
}

// BulkExportResult summarizes a whole export.
type BulkExportResult struct {
	TotalPlaylists    int            `json:"total_playlists"`
	SuccessfulExports int            `json:"successful_exports"`
	FailedExports     int            `json:"failed_exports"`
	OutputDirectory   string         `json:"output_directory"`
	ManifestPath      string         `json:"-"`
	Format            string         `json:"format"`
	ExportedAt        time.Time      `json:"exported_at"`
	Results           []ExportResult `json:"results"`
}

type exportJob struct {
	playlist models.Playlist
	tracks   []models.Track
}

// Exporter writes playlists to disk concurrently.
type Exporter struct {
	source PlaylistSource
	logger *log.Logger
}

func NewExporter(source PlaylistSource, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Exporter{source: source, logger: logger}
}

func (o ExportOpts) withDefaults() ExportOpts {
	if o.Format == "" {
		o.Format = formatter.JSON
	}
	if o.OutputDir == "" {
		o.OutputDir = fmt.Sprintf("encore_export_%d", time.Now().Unix())
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.Workers > maxWorkers {
		o.Workers = maxWorkers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = defaultRateLimit
	}
	return o
}

// Export writes one file per playlist plus a manifest into opts.OutputDir.
//
// Per-playlist failures are reported in the result. The returned error is non-nil only when
// the directory or manifest cannot be written, or ctx ends before every playlist was handled.
func (e *Exporter) Export(ctx context.Context, prog chan<- ProgressUpdate, keys []models.PlaylistKey, opts ExportOpts) (*BulkExportResult, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no playlists to export", shared.ErrMissingArgument)
	}
	opts = opts.withDefaults()

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(keys),
		OutputDirectory: opts.OutputDir,
		Format:          string(opts.Format),
		ExportedAt:      time.Now().UTC(),
		Results:         make([]ExportResult, 0, len(keys)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, len(keys))
	results := make(chan ExportResult, len(keys))

	var wg sync.WaitGroup
	for range opts.Workers {
		wg.Add(1)
		go e.worker(&wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, key := range keys {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			p, ok := e.source.Get(key)
			if !ok {
				results <- failed(key.ID, key.ID, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, key))
				continue
			}
			sendProgress(prog, fetchTracksUpdate(i+1, len(keys), p.Name))

			tracks, err := e.source.Tracks(ctx, key)
			if err != nil {
				results <- failed(p.ID, p.Name, fmt.Errorf("failed to fetch tracks: %w", err))
				continue
			}
			jobs <- exportJob{playlist: p, tracks: tracks}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(keys), res))
		} else {
			result.FailedExports++
			e.logger.Warn("playlist export failed", "playlist", res.PlaylistID, "error", res.err)
			sendProgress(prog, exportFailedUpdate(completed, len(keys), res))
		}
	}

	// The producer stops early on cancellation; the workers drain what it queued.
	if completed < len(keys) {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("export interrupted after %d of %d playlists: %w", completed, len(keys), err)
		}
	}

	path := filepath.Join(opts.OutputDir, manifestName)
	if err := writeManifest(path, result); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = path
	sendProgress(prog, manifestUpdate(path))
	return result, nil
}

func (e *Exporter) worker(wg *sync.WaitGroup, jobs <-chan exportJob, results chan<- ExportResult, opts ExportOpts) {
	defer wg.Done()
	for job := range jobs {
		results <- e.exportOne(job, opts)
	}
}

func (e *Exporter) exportOne(job exportJob, opts ExportOpts) ExportResult {
	p := job.playlist
	path := filepath.Join(opts.OutputDir, p.ID+"."+Extension(opts.Format))

	f, err := os.Create(path)
	if err != nil {
		return failed(p.ID, p.Name, fmt.Errorf("failed to create file: %w", err))
	}
	werr := formatter.WriteTracks(f, opts.Format, p.Name, job.tracks)
	cerr := f.Close()
	if werr != nil {
		return failed(p.ID, p.Name, werr)
	}
	if cerr != nil {
		return failed(p.ID, p.Name, fmt.Errorf("failed to close file: %w", cerr))
	}

	e.logger.Debug("playlist exported", "playlist", p.ID, "path", path, "tracks", len(job.tracks))
	return ExportResult{PlaylistID: p.ID, PlaylistName: p.Name, File: path, Tracks: len(job.tracks), Success: true}
}

func failed(id, name string, err error) ExportResult {
	return ExportResult{PlaylistID: id, PlaylistName: name, Error: err.Error(), err: err}
}

// Extension is the file extension used for f.
func Extension(f formatter.Format) string {
	switch f {
	case formatter.Text:
		return "txt"
	case formatter.Markdown:
		return "md"
	case formatter.CSV:
		return "csv"
	default:
		return "json"
	}
}

func writeManifest(path string, result *BulkExportResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
