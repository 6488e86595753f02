package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// stubSource serves fixed playlists; ids listed in failing return an error from Tracks.
type stubSource struct {
	mu        sync.Mutex
	playlists map[string]models.Playlist
	failing   map[string]bool
	calls     int
}

func newStubSource(n int) *stubSource {
	s := &stubSource{playlists: map[string]models.Playlist{}, failing: map[string]bool{}}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("playlist%d", i)
		s.playlists[id] = models.Playlist{
			ID:   id,
			Name: fmt.Sprintf("Playlist %d", i),
			Tracks: []models.Track{
				{ID: id + "-a", Name: "Song A", DurationMS: 180000, Artists: []models.ArtistRef{{Name: "Artist"}}},
				{ID: id + "-b", Name: "Song B", DurationMS: 200000, Artists: []models.ArtistRef{{Name: "Artist"}}},
			},
		}
	}
	return s
}

func (s *stubSource) Get(key models.PlaylistKey) (models.Playlist, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.playlists[key.ID]
	return p, ok
}

func (s *stubSource) Tracks(ctx context.Context, key models.PlaylistKey) ([]models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failing[key.ID] {
		return nil, errors.New("boom")
	}
	return s.playlists[key.ID].Tracks, nil
}

func keys(ids ...string) []models.PlaylistKey {
	out := make([]models.PlaylistKey, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.PlaylistKey{ID: id})
	}
	return out
}

func TestExport(t *testing.T) {
	tests := []struct {
		name        string
		format      formatter.Format
		ids         []string
		failing     []string
		wantSuccess int
		wantFailed  int
		validate    func(t *testing.T, dir string)
	}{
		{
			name:        "single playlist json export",
			format:      formatter.JSON,
			ids:         []string{"playlist1"},
			wantSuccess: 1,
			validate: func(t *testing.T, dir string) {
				data, err := os.ReadFile(filepath.Join(dir, "playlist1.json"))
				if err != nil {
					t.Fatalf("JSON file not created: %v", err)
				}
				var tracks []models.Track
				if err := json.Unmarshal(data, &tracks); err != nil || len(tracks) != 2 {
					t.Errorf("expected 2 tracks, got %d (%v)", len(tracks), err)
				}
			},
		},
		{
			name:        "multiple playlists csv export",
			format:      formatter.CSV,
			ids:         []string{"playlist1", "playlist2", "playlist3"},
			wantSuccess: 3,
			validate: func(t *testing.T, dir string) {
				for _, id := range []string{"playlist1", "playlist2", "playlist3"} {
					if _, err := os.Stat(filepath.Join(dir, id+".csv")); err != nil {
						t.Errorf("CSV file for %s not created: %v", id, err)
					}
				}
			},
		},
		{
			name:        "markdown export",
			format:      formatter.Markdown,
			ids:         []string{"playlist2"},
			wantSuccess: 1,
			validate: func(t *testing.T, dir string) {
				data, err := os.ReadFile(filepath.Join(dir, "playlist2.md"))
				if err != nil {
					t.Fatalf("markdown file not created: %v", err)
				}
				if !strings.HasPrefix(string(data), "# Playlist 2") {
					t.Errorf("unexpected markdown: %q", data)
				}
			},
		},
		{
			name:        "partial failure",
			format:      formatter.Text,
			ids:         []string{"playlist1", "playlist2", "missing"},
			failing:     []string{"playlist2"},
			wantSuccess: 1,
			wantFailed:  2,
			validate: func(t *testing.T, dir string) {
				if _, err := os.Stat(filepath.Join(dir, "playlist1.txt")); err != nil {
					t.Errorf("expected playlist1.txt: %v", err)
				}
				if _, err := os.Stat(filepath.Join(dir, "playlist2.txt")); !os.IsNotExist(err) {
					t.Error("failed playlist should not produce a file")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newStubSource(3)
			for _, id := range tt.failing {
				src.failing[id] = true
			}
			dir := t.TempDir()

			result, err := NewExporter(src, nil).Export(context.Background(), nil, keys(tt.ids...), ExportOpts{
				Format:    tt.format,
				OutputDir: dir,
				Workers:   2,
				RateLimit: 1000,
			})
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			if result.TotalPlaylists != len(tt.ids) {
				t.Errorf("TotalPlaylists = %d, want %d", result.TotalPlaylists, len(tt.ids))
			}
			if result.SuccessfulExports != tt.wantSuccess || result.FailedExports != tt.wantFailed {
				t.Errorf("success=%d failed=%d, want %d/%d", result.SuccessfulExports, result.FailedExports, tt.wantSuccess, tt.wantFailed)
			}
			if len(result.Results) != len(tt.ids) {
				t.Errorf("expected %d results, got %d", len(tt.ids), len(result.Results))
			}
			for _, res := range result.Results {
				if !res.Success && res.Err() == nil {
					t.Errorf("failed result %s has no error", res.PlaylistID)
				}
			}
			tt.validate(t, dir)
		})
	}
}

func TestExportManifest(t *testing.T) {
	src := newStubSource(2)
	src.failing["playlist2"] = true
	dir := t.TempDir()

	result, err := NewExporter(src, nil).Export(context.Background(), nil, keys("playlist1", "playlist2"), ExportOpts{
		Format:    formatter.CSV,
		OutputDir: dir,
		RateLimit: 1000,
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.ManifestPath != filepath.Join(dir, manifestName) {
		t.Errorf("ManifestPath = %q", result.ManifestPath)
	}

	data, err := os.ReadFile(result.ManifestPath)
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	var manifest BulkExportResult
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("invalid manifest: %v", err)
	}
	if manifest.Format != "csv" || manifest.SuccessfulExports != 1 || manifest.FailedExports != 1 {
		t.Errorf("manifest = %+v", manifest)
	}
	for _, res := range manifest.Results {
		if res.PlaylistID == "playlist2" && !strings.Contains(res.Error, "boom") {
			t.Errorf("manifest error = %q", res.Error)
		}
	}
}

func TestExportProgress(t *testing.T) {
	src := newStubSource(2)
	prog := make(chan ProgressUpdate, 16)

	if _, err := NewExporter(src, nil).Export(context.Background(), prog, keys("playlist1", "playlist2"), ExportOpts{
		OutputDir: t.TempDir(),
		RateLimit: 1000,
	}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	close(prog)

	phases := map[Phase]int{}
	var last ProgressUpdate
	for u := range prog {
		phases[u.Phase]++
		last = u
	}
	if phases[FetchTracks] != 2 || phases[ExportPlaylist] != 2 || phases[WriteManifest] != 1 {
		t.Errorf("phases = %v", phases)
	}
	if last.Phase != WriteManifest {
		t.Errorf("last update = %v, want manifest", last.Phase)
	}
}

func TestExportErrors(t *testing.T) {
	t.Run("no playlists", func(t *testing.T) {
		_, err := NewExporter(newStubSource(0), nil).Export(context.Background(), nil, nil, ExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("output dir is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := NewExporter(newStubSource(1), nil).Export(context.Background(), nil, keys("playlist1"), ExportOpts{OutputDir: filepath.Join(file, "sub")})
		if err == nil || !strings.Contains(err.Error(), "failed to create output directory") {
			t.Errorf("expected directory error, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		dir := t.TempDir()
		result, err := NewExporter(newStubSource(3), shared.NewLogger(io.Discard)).Export(ctx, nil, keys("playlist1", "playlist2", "playlist3"), ExportOpts{OutputDir: dir})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result == nil || result.ManifestPath != "" {
			t.Errorf("interrupted export should not write a manifest: %+v", result)
		}
	})
}

func TestOptsDefaults(t *testing.T) {
	tests := []struct {
		name        string
		in          ExportOpts
		wantWorkers int
		wantFormat  formatter.Format
	}{
		{name: "zero value", in: ExportOpts{}, wantWorkers: defaultWorkers, wantFormat: formatter.JSON},
		{name: "caps workers", in: ExportOpts{Workers: 50, Format: formatter.CSV}, wantWorkers: maxWorkers, wantFormat: formatter.CSV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.withDefaults()
			if got.Workers != tt.wantWorkers || got.Format != tt.wantFormat {
				t.Errorf("withDefaults() = %+v", got)
			}
			if got.RateLimit != defaultRateLimit && tt.in.RateLimit == 0 {
				t.Errorf("RateLimit = %v", got.RateLimit)
			}
			if !strings.HasPrefix(got.OutputDir, "encore_export_") {
				t.Errorf("OutputDir = %q", got.OutputDir)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	for f, want := range map[formatter.Format]string{
		formatter.Text:     "txt",
		formatter.Markdown: "md",
		formatter.CSV:      "csv",
		formatter.JSON:     "json",
	} {
		if got := Extension(f); got != want {
			t.Errorf("Extension(%s) = %q, want %q", f, got, want)
		}
	}
}
