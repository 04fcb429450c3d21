package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/router"
	"github.com/desertthunder/tunemeld/internal/services"
	"github.com/desertthunder/tunemeld/internal/shared"
	"github.com/desertthunder/tunemeld/internal/state"
	"github.com/desertthunder/tunemeld/internal/tasks"
)

// players is the cycle order for the player key.
var players = []string{models.ServiceSpotify, models.ServiceAppleMusic, models.ServiceSoundcloud, models.ServiceYouTube}

// Options holds the [Model] dependencies. Router, Store and Bridge are required.
type Options struct {
	Router  *router.Router
	Store   *state.Store
	Gateway services.DataGateway
	Bridge  *Bridge
	Logger  *log.Logger
	// Now is used for the time-based default theme.
	Now func() time.Time
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	router  *router.Router
	store   *state.Store
	gateway services.DataGateway
	bridge  *Bridge
	logger  *log.Logger
	now     func() time.Time

	page    tasks.Page
	chart   list.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	theme  state.Theme
	player string
	labels []models.ButtonLabel
	retry  *router.InitRetryable
	err    error
	status string
	width  int
	height int
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	chart := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	chart.SetShowHelp(false)
	chart.DisableQuitKeybindings()

	return &Model{
		ctx:     ctx,
		router:  opts.Router,
		store:   opts.Store,
		gateway: opts.Gateway,
		bridge:  opts.Bridge,
		logger:  shared.WithLogger(logger, "component", "ui"),
		now:     now,
		chart:   chart,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    newKeyMap(),
		theme:   opts.Store.Theme(),
		player:  models.ServiceSpotify,
	}
}

// Init restores the theme, initializes the router and fetches button labels.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadTheme(), m.initialize(), m.fetchLabels())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.SetSize(msg.Width-4, max(msg.Height-14, 5))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.chart.FilterState() == list.Filtering {
			break
		}
		if model, cmd, ok := m.handleKeys(msg); ok {
			return model, cmd
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.chart, cmd = m.chart.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPageRendered:
		page := msg.data.(tasks.Page)
		if page.RenderCount != m.page.RenderCount || page.Genre != m.page.Genre {
			cmd := m.chart.SetItems(trackItems(page.Main))
			if page.Main != nil {
				m.chart.Title = page.Main.PlaylistName
			}
			m.page = page
			m.keys.applyLabels(m.labels, string(m.theme), page.ActiveRank)
			return m, cmd
		}
		m.page = page
		m.keys.applyLabels(m.labels, string(m.theme), page.ActiveRank)

	case MsgNavigated:
		err, _ := msg.data.(error)
		m.err = err
		if err != nil {
			m.logger.Warn("navigation failed", "error", err)
		}
		if m.router.Status() == router.Ready {
			m.retry = nil
			m.keys.retry.SetEnabled(false)
		}

	case MsgInitFailed:
		m.retry = msg.data.(*router.InitRetryable)
		m.err = m.retry.Err()
		m.keys.retry.SetEnabled(true)

	case MsgThemeApplied:
		m.theme = msg.data.(state.Theme)
		m.keys.applyLabels(m.labels, string(m.theme), m.page.ActiveRank)

	case MsgLabelsFetched:
		data := msg.data.(struct {
			labels []models.ButtonLabel
			err    error
		})
		if data.err != nil {
			m.logger.Warn("failed to fetch button labels", "error", data.err)
			break
		}
		m.labels = data.labels
		m.keys.applyLabels(m.labels, string(m.theme), m.page.ActiveRank)

	case MsgTrackOpened:
		data := msg.data.(struct {
			player string
			track  models.Track
		})
		m.status = fmt.Sprintf("Opened %s - %s in %s", data.track.TrackName, data.track.ArtistName, serviceName(data.player))
	}
	return m, nil
}

// handleKeys reports false for keys the chart list should handle.
func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit, true
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil, true
	case key.Matches(msg, m.keys.retry):
		return m, m.retryInit(), true
	case key.Matches(msg, m.keys.theme):
		return m, m.toggleTheme(), true
	case key.Matches(msg, m.keys.player):
		i := slices.Index(players, m.player)
		m.player = players[(i+1)%len(players)]
		m.status = "Player: " + serviceName(m.player)
		return m, nil, true
	}

	if m.router.Status() != router.Ready {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.nextGenre):
		return m, m.stepGenre(1), true
	case key.Matches(msg, m.keys.prevGenre):
		return m, m.stepGenre(-1), true
	case key.Matches(msg, m.keys.nextRank):
		return m, m.stepRank(), true
	case key.Matches(msg, m.keys.pickRank):
		i := int(msg.String()[0] - '1')
		ranks := m.router.AvailableRanks()
		if i >= len(ranks) {
			return m, nil, true
		}
		return m, m.navigateToRank(ranks[i].SortField), true
	case key.Matches(msg, m.keys.back):
		return m, m.navigate(func(ctx context.Context) error {
			_, err := m.router.Back(ctx)
			return err
		}), true
	case key.Matches(msg, m.keys.forward):
		return m, m.navigate(func(ctx context.Context) error {
			_, err := m.router.Forward(ctx)
			return err
		}), true
	case key.Matches(msg, m.keys.open):
		item, ok := m.chart.SelectedItem().(trackItem)
		if !ok {
			return m, nil, true
		}
		return m, m.openTrack(item.track), true
	}
	return m, nil, false
}

func (m *Model) navigate(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return navigatedMsg(fn(m.ctx))
	}
}

func (m *Model) initialize() tea.Cmd {
	return m.navigate(m.router.Initialize)
}

func (m *Model) retryInit() tea.Cmd {
	r := m.retry
	if r == nil {
		return nil
	}
	return m.navigate(func(ctx context.Context) error {
		_, err := r.Retry(ctx)
		if err != nil {
			// Retry bypasses the router's failure hook.
			m.bridge.InitFailed(r)
		}
		return err
	})
}

// stepGenre moves delta genres from the current one, wrapping around.
func (m *Model) stepGenre(delta int) tea.Cmd {
	genres := m.router.AvailableGenres()
	if len(genres) == 0 {
		return nil
	}
	i := slices.IndexFunc(genres, func(g models.Genre) bool { return g.Name == m.store.CurrentGenre() })
	next := genres[((i+delta)%len(genres)+len(genres))%len(genres)].Name

	rank := ""
	if !m.store.IsSortingByDefaultRank() {
		rank = m.store.CurrentColumn()
	}
	return m.navigate(func(ctx context.Context) error {
		return m.router.NavigateToGenre(ctx, next, rank)
	})
}

func (m *Model) stepRank() tea.Cmd {
	ranks := m.router.AvailableRanks()
	if len(ranks) == 0 {
		return nil
	}
	i := slices.IndexFunc(ranks, func(r models.Rank) bool { return m.store.IsRankActive(r.SortField) })
	return m.navigateToRank(ranks[(i+1)%len(ranks)].SortField)
}

func (m *Model) navigateToRank(sortField string) tea.Cmd {
	if m.store.IsRankActive(sortField) {
		return nil
	}
	return m.navigate(func(ctx context.Context) error {
		return m.router.NavigateToRank(ctx, sortField)
	})
}

func (m *Model) openTrack(t models.Track) tea.Cmd {
	genre, rank := m.store.CurrentGenre(), ""
	if !m.store.IsSortingByDefaultRank() {
		rank = m.store.CurrentColumn()
	}
	player := m.player
	return m.navigate(func(ctx context.Context) error {
		return m.router.NavigateToTrack(ctx, genre, rank, player, t.ISRC)
	})
}

func (m *Model) loadTheme() tea.Cmd {
	return func() tea.Msg {
		return themeAppliedMsg(m.store.LoadTheme(m.ctx, m.now()))
	}
}

func (m *Model) toggleTheme() tea.Cmd {
	return func() tea.Msg {
		t, err := m.store.ToggleTheme(m.ctx)
		if err != nil {
			m.logger.Warn("failed to persist theme", "error", err)
		}
		return themeAppliedMsg(t)
	}
}

func (m *Model) fetchLabels() tea.Cmd {
	if m.gateway == nil {
		return nil
	}
	return func() tea.Msg {
		var labels []models.ButtonLabel
		for _, kind := range []string{"theme_toggle", "rank_button"} {
			ls, err := m.gateway.MiscButtonLabels(m.ctx, kind, "")
			if err != nil {
				return labelsFetchedMsg(nil, err)
			}
			labels = append(labels, ls...)
		}
		return labelsFetchedMsg(labels, nil)
	}
}

// View renders the chart page.
func (m *Model) View() string {
	styles := paletteFor(m.theme)
	var b strings.Builder

	title := m.page.Title
	if title == "" {
		title = "tunemeld"
	}
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")

	b.WriteString(m.renderGenres(styles))
	b.WriteString("\n")
	b.WriteString(m.renderRanks(styles))
	b.WriteString("\n\n")

	if banner := m.renderBanner(styles); banner != "" {
		b.WriteString(banner + "\n\n")
	}

	if m.page.Loading != state.LoadingNone {
		b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), loadingText(m.page.Loading)))
	}

	if summary := m.renderServices(styles); summary != "" {
		b.WriteString(summary + "\n")
	}

	if _, ok := m.store.Element(anchorMainPlaylist); ok {
		b.WriteString(m.chart.View())
	} else {
		b.WriteString(styles.help.Render("No chart loaded"))
	}
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(styles.ok.Render(m.status) + "\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderGenres(styles *Palette) string {
	genres := m.router.AvailableGenres()
	parts := make([]string, len(genres))
	for i, g := range genres {
		if g.Name == m.page.ActiveGenre {
			parts[i] = styles.active.Render(g.DisplayName)
		} else {
			parts[i] = styles.text.Render(g.DisplayName)
		}
	}
	return strings.Join(parts, " │ ")
}

func (m *Model) renderRanks(styles *Palette) string {
	parts := make([]string, len(m.page.Ranks))
	for i, r := range m.page.Ranks {
		label := fmt.Sprintf("[%d] %s", i+1, r.DisplayName)
		if r.SortField == m.page.ActiveRank {
			parts[i] = styles.active.Render(label)
		} else {
			parts[i] = styles.text.Render(label)
		}
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderBanner(styles *Palette) string {
	switch {
	case m.retry != nil:
		return styles.err.Render(fmt.Sprintf("Could not load genres: %v\nPress R to retry", m.retry.Err()))
	case m.err != nil && !errors.Is(m.err, shared.ErrInFlight):
		return styles.warn.Render(fmt.Sprintf("Error: %v", m.err))
	default:
		return ""
	}
}

func (m *Model) renderServices(styles *Palette) string {
	var lines []string
	for i, slot := range m.page.Slots {
		if slot == nil {
			name := ""
			if m.page.Metadata != nil && i < len(m.page.Metadata.ServiceOrder) {
				name = serviceName(m.page.Metadata.ServiceOrder[i])
			}
			lines = append(lines, styles.warn.Render(name+" unavailable"))
			continue
		}
		line := fmt.Sprintf("%s · %d tracks", slot.Descriptor.PlaylistName, len(slot.Playlist.Tracks))
		if len(slot.Playlist.Tracks) > 0 {
			top := slot.Playlist.Tracks[0]
			line += fmt.Sprintf(" · #1 %s - %s", top.TrackName, top.ArtistName)
		}
		lines = append(lines, styles.help.Render(line))
	}
	return strings.Join(lines, "\n")
}

func loadingText(kind state.LoadingKind) string {
	switch kind {
	case state.LoadingInitial:
		return "Loading charts..."
	case state.LoadingGenre:
		return "Switching genre..."
	case state.LoadingRank:
		return "Re-ranking..."
	default:
		return "Loading..."
	}
}

func serviceName(service string) string {
	switch service {
	case models.ServiceSpotify:
		return "Spotify"
	case models.ServiceAppleMusic:
		return "Apple Music"
	case models.ServiceSoundcloud:
		return "SoundCloud"
	case models.ServiceYouTube:
		return "YouTube"
	case models.ServiceTunemeld:
		return "tunemeld"
	default:
		return service
	}
}
