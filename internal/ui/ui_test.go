package ui

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/app"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/playback"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
)

func newTestModel(t *testing.T) (*Model, *app.App, *tu.FakeSpotify) {
	t.Helper()
	ctx := context.Background()

	fake := tu.NewFakeSpotify(t, "tok")
	fake.SetLiked(tu.FakeTrack{ID: "t1", Name: "One", Artist: "Band", PreviewURL: "https://p.example/t1.mp3"})
	fake.AddPlaylist(tu.FakePlaylist{ID: "pl-1", Name: "Mix", Tracks: []tu.FakeTrack{{ID: "t2", Name: "Two"}, {ID: "t3", Name: "Three"}}})
	fake.SetSearch([]tu.FakeTrack{{ID: "t4", Name: "Four"}}, nil)

	cfg := shared.DefaultConfig()
	cfg.Spotify.ClientID = "client"
	cfg.API.BaseURL = fake.APIBase()
	cfg.API.RequestsPerSecond = 0
	cfg.Search.DebounceMS = 10
	cfg.Store.Backend = shared.BackendMemory
	cfg.Log.Level = "error"

	a, err := app.New(app.Opts{
		Config:   cfg,
		Logger:   shared.NewLogger(io.Discard),
		Store:    repositories.NewMemoryCredentialStore("tok"),
		Endpoint: fake.Endpoint(),
		Engine:   playback.NewMemoryEngine(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	if err := a.StartPlayback(ctx); err != nil {
		t.Fatal(err)
	}

	m := NewModel(ctx, a)
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, a, fake
}

// signIn restores the stored session and loads the library the way Init's commands would.
func signIn(t *testing.T, m *Model) {
	t.Helper()
	m.Update(m.restore()())
	if !m.session.Authenticated() {
		t.Fatalf("session = %+v", m.session)
	}
	if !m.libraryBusy {
		t.Error("sign-in should start a library fetch")
	}
	m.Update(m.fetchLibrary()())
	if m.libraryBusy || m.err != nil {
		t.Fatalf("library busy=%v err=%v", m.libraryBusy, m.err)
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLibraryView(t *testing.T) {
	m, a, _ := newTestModel(t)

	if !strings.Contains(m.View(), "Restoring session") {
		t.Errorf("initial view:\n%s", m.View())
	}

	signIn(t, m)
	items := m.library.Items()
	if len(items) != len(a.Library.Items()) || len(items) < 2 {
		t.Fatalf("library list has %d items", len(items))
	}
	if it := items[0].(libraryItem).item; it.ID != models.LikedSongsID {
		t.Errorf("first item = %+v", it)
	}
	if !strings.Contains(m.View(), "Signed in as Test User") {
		t.Errorf("view missing sign-in status:\n%s", m.View())
	}

	t.Run("kind filter cycles", func(t *testing.T) {
		m.Update(keyRunes("f"))
		if m.kind != models.KindLikedSongs || len(m.library.Items()) != 1 {
			t.Errorf("kind %q shows %d items", m.kind, len(m.library.Items()))
		}
		m.Update(keyRunes("f"))
		if m.kind != models.KindPlaylist || len(m.library.Items()) != 2 {
			t.Errorf("kind %q shows %d items", m.kind, len(m.library.Items()))
		}
		for range len(kindCycle) - 2 {
			m.Update(keyRunes("f"))
		}
		if m.kind != "" || len(m.library.Items()) != len(items) {
			t.Errorf("filter did not wrap around: kind %q", m.kind)
		}
	})
}

func TestTracksView(t *testing.T) {
	m, a, _ := newTestModel(t)
	signIn(t, m)

	liked := m.library.Items()[0].(libraryItem).item
	m.open(liked)
	if m.view != TracksView || m.detailID != models.LikedSongsID {
		t.Fatalf("view %d detail %q", m.view, m.detailID)
	}

	tracks, err := m.loadTracks(liked)
	if err != nil {
		t.Fatal(err)
	}
	m.Update(tracksMsg{id: "stale", tracks: []models.Track{{ID: "x"}}})
	if len(m.tracks.Items()) != 0 {
		t.Error("stale tracks were applied")
	}
	m.Update(tracksMsg{id: liked.ID, tracks: tracks})
	if len(m.tracks.Items()) != 1 {
		t.Fatalf("tracks list has %d items", len(m.tracks.Items()))
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter on a track returned no command")
	}
	m.Update(cmd())
	if ps := a.Playback.State(); ps.CurrentTrack == nil || ps.CurrentTrack.ID != "t1" || !ps.IsPlaying {
		t.Errorf("playback state = %+v", ps)
	}
	m.Update(changedMsg{})
	if !strings.Contains(m.View(), "Now playing: One · Band") {
		t.Errorf("footer missing now playing:\n%s", m.View())
	}

	_, cmd = m.Update(keyRunes(" "))
	m.Update(cmd())
	if a.Playback.State().IsPlaying {
		t.Error("space should pause")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.view != LibraryView || m.detailID != "" {
		t.Errorf("esc left view %d detail %q", m.view, m.detailID)
	}
}

func TestLoadTracks(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m)

	tests := []struct {
		name string
		item models.LibraryItem
		want int
	}{
		{"remote playlist", models.LibraryItem{ID: "pl-1", Kind: models.KindPlaylist}, 2},
		{"album", models.LibraryItem{ID: "al-1", Kind: models.KindAlbum}, 1},
		{"podcast episodes", models.LibraryItem{ID: "show-1", Kind: models.KindPodcast}, 1},
		{"artist top tracks", models.LibraryItem{ID: "ar-1", Kind: models.KindArtist}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.loadTracks(tt.item)
			if err != nil {
				t.Fatalf("loadTracks() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("loadTracks() returned %d tracks", len(got))
			}
		})
	}
}

func TestSearchView(t *testing.T) {
	m, a, _ := newTestModel(t)
	signIn(t, m)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.view != SearchView {
		t.Fatalf("tab left view %d", m.view)
	}
	m.Update(keyRunes("/"))
	if !m.input.Focused() {
		t.Fatal("/ should focus the input")
	}
	for _, r := range "fo" {
		m.Update(keyRunes(string(r)))
	}
	if got := a.Search.Query(); got != "fo" {
		t.Errorf("coordinator query = %q", got)
	}

	if _, err := a.Search.SearchNow(context.Background(), "fo"); err != nil {
		t.Fatal(err)
	}
	m.Update(changedMsg{})
	if len(m.results.Items()) != 1 {
		t.Errorf("results list has %d items", len(m.results.Items()))
	}

	m.Update(keyRunes("q"))
	if m.input.Value() != "foq" {
		t.Errorf("q while typing should edit the query, got %q", m.input.Value())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.input.Focused() {
		t.Error("esc should blur the input")
	}
	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, quit := cmd().(tea.QuitMsg); !quit {
		t.Error("q should quit when not typing")
	}
}

func TestSignOut(t *testing.T) {
	m, a, _ := newTestModel(t)
	signIn(t, m)

	_, cmd := m.Update(keyRunes("L"))
	if cmd == nil {
		t.Fatal("L returned no command")
	}
	m.Update(cmd())
	m.Update(changedMsg{})

	if m.session.Authenticated() || len(m.library.Items()) != 0 {
		t.Errorf("session %+v, %d library items", m.session, len(m.library.Items()))
	}
	if len(a.Library.Items()) != 0 {
		t.Error("aggregator kept items after sign-out")
	}
	if !strings.Contains(m.View(), "Press l to sign in") {
		t.Errorf("signed-out view:\n%s", m.View())
	}
	if _, cmd := m.Update(keyRunes("L")); cmd != nil {
		t.Error("sign out while signed out should do nothing")
	}
}

func TestNextKind(t *testing.T) {
	tests := []struct {
		in   models.ItemKind
		want models.ItemKind
	}{
		{"", models.KindLikedSongs},
		{models.KindLikedSongs, models.KindPlaylist},
		{models.KindArtist, ""},
		{"bogus", ""},
	}
	for _, tt := range tests {
		if got := nextKind(tt.in); got != tt.want {
			t.Errorf("nextKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
