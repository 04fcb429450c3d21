package tasks

import (
	"sync"

	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/state"
)

// Page is a headless snapshot of everything rendered so far.
type Page struct {
	Title       string
	ActiveGenre string
	Genre       string
	Metadata    *models.PlaylistMetadata
	// Slots is sized by the metadata's service order; unrendered services stay nil.
	Slots       []*ServiceSlot
	Main        *models.Playlist
	Ranks       []models.Rank
	ActiveRank  string
	Loading     state.LoadingKind
	Collapsed   int
	Listeners   int
	RenderCount int
}

// PageRecorder is a [Renderer] that keeps the latest page in memory.
//
// It also records the title and active genre so it can stand in for the document in headless use.
type PageRecorder struct {
	mu     sync.Mutex
	page   Page
	events []string
}

// NewPageRecorder creates an empty recorder.
func NewPageRecorder() *PageRecorder {
	return &PageRecorder{}
}

func (r *PageRecorder) record(event string, fn func(p *Page)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.page)
	r.events = append(r.events, event)
}

func (r *PageRecorder) ShowLoading(kind state.LoadingKind) {
	r.record("show_loading", func(p *Page) { p.Loading = kind })
}

func (r *PageRecorder) HideLoading() {
	r.record("hide_loading", func(p *Page) { p.Loading = state.LoadingNone })
}

func (r *PageRecorder) RenderHeaders(genre string, meta *models.PlaylistMetadata) {
	r.record("headers", func(p *Page) {
		p.Genre = genre
		p.Metadata = meta
		p.Slots = make([]*ServiceSlot, len(meta.ServiceOrder))
	})
}

func (r *PageRecorder) RenderServicePlaylist(slot ServiceSlot) {
	r.record("service:"+slot.Service, func(p *Page) {
		if slot.Index >= len(p.Slots) {
			grown := make([]*ServiceSlot, slot.Index+1)
			copy(grown, p.Slots)
			p.Slots = grown
		}
		p.Slots[slot.Index] = &slot
	})
}

func (r *PageRecorder) RenderMainPlaylist(genre string, pl *models.Playlist) {
	r.record("main", func(p *Page) {
		p.Genre = genre
		p.Main = pl
		p.RenderCount++
	})
}

func (r *PageRecorder) RenderRankButtons(ranks []models.Rank, active string) {
	r.record("rank_buttons", func(p *Page) {
		p.Ranks = ranks
		p.ActiveRank = active
	})
}

func (r *PageRecorder) ResetCollapse() {
	r.record("reset_collapse", func(p *Page) { p.Collapsed++ })
}

func (r *PageRecorder) AttachListeners() {
	r.record("attach_listeners", func(p *Page) { p.Listeners++ })
}

// SetTitle records the document title.
func (r *PageRecorder) SetTitle(title string) {
	r.record("title", func(p *Page) { p.Title = title })
}

// SetActiveGenre records which genre control is marked active.
func (r *PageRecorder) SetActiveGenre(genre string) {
	r.record("active_genre", func(p *Page) { p.ActiveGenre = genre })
}

// Page returns a copy of the current page.
func (r *PageRecorder) Page() Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.page
	p.Slots = append([]*ServiceSlot(nil), r.page.Slots...)
	return p
}

// Events returns the render calls in order.
func (r *PageRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Reset forgets everything recorded.
func (r *PageRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.page = Page{}
	r.events = nil
}
