package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/router"
	"github.com/desertthunder/tunemeld/internal/shared"
	"github.com/desertthunder/tunemeld/internal/state"
	"github.com/desertthunder/tunemeld/internal/tasks"
)

// Anchor ids resolvable through [Bridge.Resolve].
const (
	anchorMainPlaylist = "main-playlist"
	anchorRankPrefix   = "rank:"
	anchorSlotPrefix   = "service:"
)

var (
	_ tasks.Renderer       = (*Bridge)(nil)
	_ router.Document      = (*Bridge)(nil)
	_ router.TrackOpener   = (*Bridge)(nil)
	_ state.Surface        = (*Bridge)(nil)
	_ state.AnchorResolver = (*Bridge)(nil)
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

type anchor string

func (a anchor) AnchorID() string { return string(a) }

// Bridge records renders into a [tasks.PageRecorder] and forwards each resulting page to the program.
//
// Messages are dropped until [Bridge.Attach] is called.
type Bridge struct {
	page *tasks.PageRecorder
	open func(url string) error

	mu     sync.RWMutex
	sender Sender
}

// NewBridge creates a detached bridge that opens tracks with [shared.OpenBrowser].
func NewBridge() *Bridge {
	return &Bridge{page: tasks.NewPageRecorder(), open: shared.OpenBrowser}
}

// Attach starts forwarding messages to s.
func (b *Bridge) Attach(s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sender = s
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.RLock()
	s := b.sender
	b.mu.RUnlock()
	if s != nil {
		s.Send(msg)
	}
}

// Page returns the latest page snapshot.
func (b *Bridge) Page() tasks.Page { return b.page.Page() }

func (b *Bridge) rendered() { b.send(pageRenderedMsg(b.page.Page())) }

func (b *Bridge) ShowLoading(kind state.LoadingKind) {
	b.page.ShowLoading(kind)
	b.rendered()
}

func (b *Bridge) HideLoading() {
	b.page.HideLoading()
	b.rendered()
}

func (b *Bridge) RenderHeaders(genre string, meta *models.PlaylistMetadata) {
	b.page.RenderHeaders(genre, meta)
	b.rendered()
}

func (b *Bridge) RenderServicePlaylist(slot tasks.ServiceSlot) {
	b.page.RenderServicePlaylist(slot)
	b.rendered()
}

func (b *Bridge) RenderMainPlaylist(genre string, p *models.Playlist) {
	b.page.RenderMainPlaylist(genre, p)
	b.rendered()
}

func (b *Bridge) RenderRankButtons(ranks []models.Rank, active string) {
	b.page.RenderRankButtons(ranks, active)
	b.rendered()
}

// ResetCollapse and AttachListeners only bump counters, so they skip the round trip.
func (b *Bridge) ResetCollapse()   { b.page.ResetCollapse() }
func (b *Bridge) AttachListeners() { b.page.AttachListeners() }

func (b *Bridge) SetTitle(title string) {
	b.page.SetTitle(title)
	b.rendered()
}

func (b *Bridge) SetActiveGenre(genre string) {
	b.page.SetActiveGenre(genre)
	b.rendered()
}

// ApplyTheme forwards the theme so the model can swap palettes.
func (b *Bridge) ApplyTheme(t state.Theme) {
	b.send(themeAppliedMsg(t))
}

// OpenTrack opens the track's link for player in the system browser.
func (b *Bridge) OpenTrack(_ context.Context, player string, track models.Track) error {
	link := track.ServiceURL(player)
	if link == "" {
		return fmt.Errorf("%w: no %s link for %s", shared.ErrInvalidArgument, player, track.ISRC)
	}
	if err := b.open(link); err != nil {
		return err
	}
	b.send(trackOpenedMsg(player, track))
	return nil
}

// InitFailed hands the router's retry handle to the program. Pass it as the router's OnInitError.
func (b *Bridge) InitFailed(r *router.InitRetryable) {
	b.send(initFailedMsg(r))
}

// Resolve finds anchors in the current page: the main playlist, rank buttons and service slots.
func (b *Bridge) Resolve(id string) (state.Anchor, bool) {
	p := b.page.Page()
	if id == anchorMainPlaylist {
		return anchor(id), p.Main != nil
	}
	if field, ok := strings.CutPrefix(id, anchorRankPrefix); ok {
		found := slices.ContainsFunc(p.Ranks, func(r models.Rank) bool { return r.SortField == field })
		return anchor(id), found
	}
	if service, ok := strings.CutPrefix(id, anchorSlotPrefix); ok {
		found := slices.ContainsFunc(p.Slots, func(s *tasks.ServiceSlot) bool { return s != nil && s.Service == service })
		return anchor(id), found
	}
	return nil, false
}
