package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/app"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/playback"
	"github.com/desertthunder/encore/internal/search"
	"github.com/desertthunder/encore/internal/session"
	"github.com/desertthunder/encore/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LibraryView ViewState = iota
	SearchView
	TracksView
)

// kindCycle is the order the filter key walks through; "" shows everything.
var kindCycle = append([]models.ItemKind{""}, models.Kinds...)

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	app  *app.App
	view ViewState
	back ViewState

	width  int
	height int

	library list.Model
	results list.Model
	tracks  list.Model
	input   textinput.Model

	kind        models.ItemKind
	detailID    string
	session     models.Session
	playing     models.PlaybackState
	loggingIn   bool
	libraryBusy bool
	status      string
	err         error

	changes     chan struct{}
	unsubscribe []func()
	help        help.Model
	keys        keyMap
}

// NewModel creates a TUI model over a and subscribes to its providers. Call [Model.Close] when the program exits.
func NewModel(ctx context.Context, a *app.App) *Model {
	input := textinput.New()
	input.Placeholder = "Search tracks and artists"
	input.CharLimit = 200

	m := &Model{
		ctx:     ctx,
		app:     a,
		view:    LibraryView,
		library: newList("Your Library"),
		results: newList("Search"),
		tracks:  newList(""),
		input:   input,
		changes: make(chan struct{}, 1),
		help:    help.New(),
		keys:    newKeyMap(),
	}

	m.unsubscribe = []func(){
		a.Session.Subscribe(func(session.Event) { m.signal() }),
		a.Library.Subscribe(func([]models.LibraryItem) { m.signal() }),
		a.Playlists.Subscribe(func([]models.Playlist) { m.signal() }),
		a.Search.Subscribe(func(search.State) { m.signal() }),
		a.Playback.Subscribe(func(models.PlaybackState) { m.signal() }),
	}
	return m
}

// signal never blocks: a pending changedMsg already makes the next sync see this change.
func (m *Model) signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// Close removes the provider subscriptions.
func (m *Model) Close() {
	for _, fn := range m.unsubscribe {
		fn()
	}
	m.unsubscribe = nil
}

// Init restores the stored session and starts listening for provider changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForChange(), m.restore())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range []*list.Model{&m.library, &m.results, &m.tracks} {
			l.SetSize(msg.Width-4, msg.Height-8)
		}
		m.input.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case changedMsg:
		return m, tea.Batch(m.sync(), m.waitForChange())

	case sessionMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, m.sync()

	case libraryMsg:
		m.libraryBusy = false
		if msg.err != nil && !errors.Is(msg.err, shared.ErrSuperseded) {
			m.setError(msg.err)
		}
		return m, m.sync()

	case tracksMsg:
		if msg.id != m.detailID {
			return m, nil
		}
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		return m, m.tracks.SetItems(trackItems(msg.tracks))

	case statusMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else if msg.text != "" {
			m.status, m.err = msg.text, nil
		}
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) setError(err error) {
	m.err = err
	m.status = ""
}

// sync re-reads every provider snapshot. A sign-in seen here for the first time starts the library fetch.
func (m *Model) sync() tea.Cmd {
	prev := m.session
	m.session = m.app.Session.Session()
	m.playing = m.app.Playback.State()

	var cmds []tea.Cmd
	if m.kind == "" {
		cmds = append(cmds, m.library.SetItems(libraryItems(m.app.Library.Items())))
	} else {
		cmds = append(cmds, m.library.SetItems(libraryItems(m.app.Library.Filter(m.kind))))
	}

	st := m.app.Search.State()
	cmds = append(cmds, m.results.SetItems(resultItems(st.Results)))
	if st.Err != nil && !errors.Is(st.Err, shared.ErrSuperseded) {
		m.setError(st.Err)
	}

	switch {
	case m.session.Authenticated() && !prev.Authenticated():
		m.status, m.err = "Signed in as "+m.session.User.Name(), nil
		cmds = append(cmds, m.fetchLibrary())
	case prev.Authenticated() && !m.session.Authenticated():
		m.status = "Signed out"
		if m.view == TracksView {
			m.view = LibraryView
		}
		m.detailID = ""
		cmds = append(cmds, m.tracks.SetItems(nil))
	}
	return tea.Batch(cmds...)
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-m.changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.input.Focused() {
		return m.handleInputKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		m.switchView()
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		return m, m.playbackCmd(m.app.Playback.Toggle)
	case key.Matches(msg, m.keys.next):
		return m, m.playbackCmd(m.app.Playback.Next)
	case key.Matches(msg, m.keys.prev):
		return m, m.playbackCmd(m.app.Playback.Previous)
	case key.Matches(msg, m.keys.stop):
		return m, m.playbackCmd(func(ctx context.Context) error {
			m.app.Playback.Stop(ctx)
			return nil
		})
	case key.Matches(msg, m.keys.login):
		return m, m.login()
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}

	switch m.view {
	case LibraryView:
		return m.handleLibraryKeys(msg)
	case SearchView:
		return m.handleSearchKeys(msg)
	case TracksView:
		return m.handleTracksKeys(msg)
	}
	return m, nil
}

func (m *Model) switchView() {
	switch m.view {
	case LibraryView:
		m.view = SearchView
	default:
		m.view = LibraryView
	}
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		if it, ok := m.library.SelectedItem().(libraryItem); ok {
			return m, m.open(it.item)
		}
		return m, nil
	case key.Matches(msg, m.keys.kind):
		m.kind = nextKind(m.kind)
		m.library.Title = "Your Library • " + kindLabel(m.kind)
		m.library.ResetSelected()
		return m, m.sync()
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchLibrary()
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.library, cmd = m.library.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.search):
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.back):
		m.view = LibraryView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		it, ok := m.results.SelectedItem().(resultItem)
		if !ok {
			return m, nil
		}
		if it.result.Track != nil {
			return m, m.play(*it.result.Track)
		}
		if a := it.result.Artist; a != nil {
			return m, m.open(models.LibraryItem{ID: a.ID, Name: a.Name, Kind: models.KindArtist})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

// handleInputKeys feeds the text input and forwards every edit to the search coordinator.
func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.input.Blur()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.app.Search.SetQuery(v)
	}
	return m, cmd
}

func (m *Model) handleTracksKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = m.back
		m.detailID = ""
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if it, ok := m.tracks.SelectedItem().(trackItem); ok {
			return m, m.play(it.track)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.tracks, cmd = m.tracks.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case LibraryView:
		m.library, cmd = m.library.Update(msg)
	case SearchView:
		if m.input.Focused() {
			m.input, cmd = m.input.Update(msg)
		} else {
			m.results, cmd = m.results.Update(msg)
		}
	case TracksView:
		m.tracks, cmd = m.tracks.Update(msg)
	}
	return m, cmd
}

func nextKind(k models.ItemKind) models.ItemKind {
	for i, c := range kindCycle {
		if c == k {
			return kindCycle[(i+1)%len(kindCycle)]
		}
	}
	return ""
}

func (m *Model) restore() tea.Cmd {
	return func() tea.Msg {
		return sessionMsg{session: m.app.Restore(m.ctx)}
	}
}

func (m *Model) login() tea.Cmd {
	if m.loggingIn || m.session.Authenticated() {
		return nil
	}
	m.loggingIn = true
	m.status, m.err = "Waiting for authorization in your browser...", nil
	return func() tea.Msg {
		s, err := m.app.Login(m.ctx, app.LoginOpts{})
		return sessionMsg{session: s, err: err}
	}
}

func (m *Model) logout() tea.Cmd {
	if !m.session.Authenticated() {
		return nil
	}
	return func() tea.Msg {
		m.app.Logout(m.ctx)
		return statusMsg{text: "Signed out"}
	}
}

func (m *Model) fetchLibrary() tea.Cmd {
	if !m.session.Authenticated() {
		return nil
	}
	m.libraryBusy = true
	return func() tea.Msg {
		_, err := m.app.Library.Fetch(m.ctx, nil)
		return libraryMsg{err: err}
	}
}

// open shows the tracks of it in the tracks view. Results for a previously opened item are dropped.
func (m *Model) open(it models.LibraryItem) tea.Cmd {
	if m.view != TracksView {
		m.back = m.view
	}
	m.view = TracksView
	m.detailID = it.ID
	m.tracks.Title = it.Name
	m.tracks.ResetSelected()

	id := it.ID
	return tea.Batch(m.tracks.SetItems(nil), func() tea.Msg {
		tracks, err := m.loadTracks(it)
		return tracksMsg{id: id, tracks: tracks, err: err}
	})
}

func (m *Model) loadTracks(it models.LibraryItem) ([]models.Track, error) {
	switch it.Kind {
	case models.KindLikedSongs:
		return m.app.Library.LikedTracks(), nil
	case models.KindPlaylist:
		pk := models.PlaylistKey{ID: it.ID, Origin: models.OriginRemote}
		if _, ok := m.app.Playlists.Get(pk); !ok {
			if _, err := m.app.Playlists.Fetch(m.ctx); err != nil {
				return nil, err
			}
		}
		return m.app.Playlists.Tracks(m.ctx, pk)
	case models.KindArtist:
		d, err := m.app.Browse.Artist(m.ctx, it.ID)
		if err != nil {
			return nil, err
		}
		return d.TopTracks, nil
	case models.KindAlbum, models.KindPodcast:
		media, err := m.app.Browse.Media(m.ctx, it.ID)
		if err != nil {
			return nil, err
		}
		return media.Tracks(), nil
	default:
		return nil, fmt.Errorf("%w: library kind %q", shared.ErrInvalidInput, it.Kind)
	}
}

func (m *Model) play(t models.Track) tea.Cmd {
	return func() tea.Msg {
		if err := m.app.Playback.Play(m.ctx, t); err != nil {
			if errors.Is(err, playback.ErrPlaybackUnavailable) {
				return statusMsg{text: "No preview available for " + t.Name}
			}
			return statusMsg{err: err}
		}
		return statusMsg{text: "Playing " + t.Name}
	}
}

func (m *Model) playbackCmd(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{err: fn(m.ctx)}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch {
	case !m.session.Authenticated():
		body = m.renderSignedOut()
	case m.view == SearchView:
		body = m.renderSearch()
	case m.view == TracksView:
		body = m.tracks.View()
	default:
		body = m.library.View()
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s", m.renderTabs(), body, m.renderFooter(), m.renderHelp())
}

func (m *Model) renderTabs() string {
	tabs := []struct {
		name string
		view ViewState
	}{{"Library", LibraryView}, {"Search", SearchView}}

	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if m.view == t.view || (m.view == TracksView && m.back == t.view) {
			parts = append(parts, styles.active.Render(t.name))
		} else {
			parts = append(parts, styles.tab.Render(t.name))
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) renderSignedOut() string {
	title := styles.title.Render("encore")
	switch {
	case m.loggingIn:
		return fmt.Sprintf("%s\n%s", title, "Waiting for authorization in your browser...")
	case m.session.Status == models.StatusRestoring || m.session.Status == models.StatusUninitialized:
		return fmt.Sprintf("%s\n%s", title, "Restoring session...")
	default:
		return fmt.Sprintf("%s\n%s", title, "You are signed out. Press l to sign in with Spotify.")
	}
}

func (m *Model) renderSearch() string {
	st := m.app.Search.State()
	lines := []string{m.input.View()}
	switch {
	case st.Loading:
		lines = append(lines, styles.help.Render("Searching..."))
	case st.Query == "" && len(st.Recent) > 0:
		lines = append(lines, styles.help.Render("Recent: "+strings.Join(st.Recent, ", ")))
	}
	lines = append(lines, m.results.View())
	return strings.Join(lines, "\n")
}

// renderFooter is the now-playing bar plus the latest status or error.
func (m *Model) renderFooter() string {
	now := "Nothing playing"
	if t := m.playing.CurrentTrack; t != nil {
		icon := "⏸"
		if m.playing.IsPlaying {
			icon = "▶"
		}
		now = fmt.Sprintf("%s Now playing: %s · %s", icon, t.Name, t.ArtistNames())
	}

	var line string
	switch {
	case m.err != nil:
		line = styles.err.Render("Error: " + m.err.Error())
	case m.libraryBusy:
		line = styles.warn.Render("Loading library...")
	case m.status != "":
		line = styles.ok.Render(m.status)
	}
	if line == "" {
		return styles.footer.Render(now)
	}
	return styles.footer.Render(now + "\n" + line)
}

func (m *Model) renderHelp() string {
	var keys []key.Binding
	switch m.view {
	case LibraryView:
		keys = []key.Binding{m.keys.enter, m.keys.kind, m.keys.refresh, m.keys.tab}
	case SearchView:
		keys = []key.Binding{m.keys.search, m.keys.enter, m.keys.back, m.keys.tab}
	case TracksView:
		keys = []key.Binding{m.keys.enter, m.keys.back}
	}
	keys = append(keys, m.keys.toggle, m.keys.next, m.keys.prev)
	if m.session.Authenticated() {
		keys = append(keys, m.keys.logout)
	} else {
		keys = append(keys, m.keys.login)
	}
	keys = append(keys, m.keys.quit)
	return m.help.ShortHelpView(keys)
}
