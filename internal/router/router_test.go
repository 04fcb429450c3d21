package router

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/shared"
	"github.com/desertthunder/tunemeld/internal/state"
	"github.com/desertthunder/tunemeld/internal/tasks"
	tu "github.com/desertthunder/tunemeld/internal/testing"
)

type activationSpy struct {
	tasks.Activator

	mu   sync.Mutex
	runs []tasks.Activation
}

func (s *activationSpy) Run(ctx context.Context, a tasks.Activation) (*tasks.ActivationResult, error) {
	s.mu.Lock()
	s.runs = append(s.runs, a)
	s.mu.Unlock()
	return s.Activator.Run(ctx, a)
}

func (s *activationSpy) Runs() []tasks.Activation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tasks.Activation(nil), s.runs...)
}

type openerSpy struct {
	player string
	track  models.Track
	calls  int
}

func (o *openerSpy) OpenTrack(_ context.Context, player string, track models.Track) error {
	o.player, o.track = player, track
	o.calls++
	return nil
}

type visitSpy struct{ visits []string }

func (v *visitSpy) RecordVisit(_ context.Context, loc string) error {
	v.visits = append(v.visits, loc)
	return nil
}

type harness struct {
	router   *Router
	gateway  *tu.MockGateway
	page     *tasks.PageRecorder
	history  *MemoryHistory
	store    *state.Store
	spy      *activationSpy
	opener   *openerSpy
	visits   *visitSpy
	retries  []*InitRetryable
	pipeline *tasks.Pipeline
}

// newHarness builds a router over the fixture gateway. configure runs before the router exists.
func newHarness(t *testing.T, start string, configure func(gw *tu.MockGateway)) *harness {
	t.Helper()
	h := &harness{
		gateway: tu.NewMockGateway(),
		page:    tasks.NewPageRecorder(),
		history: NewMemoryHistory(start),
		store:   state.NewStore(state.Options{}),
		opener:  &openerSpy{},
		visits:  &visitSpy{},
	}
	if configure != nil {
		configure(h.gateway)
	}
	h.pipeline = tasks.NewPipeline(tasks.PipelineOptions{Gateway: h.gateway, Store: h.store, Renderer: h.page})
	h.spy = &activationSpy{Activator: h.pipeline}
	h.router = New(Options{
		Gateway:     h.gateway,
		Store:       h.store,
		Activator:   h.spy,
		History:     h.history,
		Document:    h.page,
		Opener:      h.opener,
		Visits:      h.visits,
		OnInitError: func(r *InitRetryable) { h.retries = append(h.retries, r) },
	})
	return h
}

// popRapChart reduces the fixture to two genres and two ranks keyed by data field.
func popRapChart(gw *tu.MockGateway) {
	gw.Chart.Genres = slices.DeleteFunc(gw.Chart.Genres, func(g models.Genre) bool {
		return g.Name != "pop" && g.Name != "rap"
	})
	gw.Chart.DefaultGenre = "pop"
	gw.Chart.Ranks = []models.Rank{
		{Name: "tunemeld", DisplayName: "tunemeld Rank", SortField: "tunemeldRank", DataField: "tunemeldRank", SortOrder: "asc", IsDefault: true},
		{Name: "spotify", DisplayName: "Spotify Rank", SortField: "spotifyRank", DataField: "spotifyRank", SortOrder: "asc"},
	}
}

func (h *harness) location() string {
	return h.history.Location().String()
}

func TestInitialResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("Root Redirects To Default Genre And Rank", func(t *testing.T) {
		h := newHarness(t, "/", popRapChart)
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}

		if got := h.location(); got != "/?genre=pop&rank=tunemeldRank" {
			t.Errorf("expected redirect to default, got %q", got)
		}
		if h.history.Len() != 1 {
			t.Errorf("expected replace without new entry, got %d entries", h.history.Len())
		}
		if h.store.CurrentColumn() != "tunemeldRank" {
			t.Errorf("expected tunemeldRank column, got %q", h.store.CurrentColumn())
		}
		if h.router.Status() != Ready {
			t.Errorf("expected Ready, got %s", h.router.Status())
		}
		page := h.page.Page()
		if page.ActiveGenre != "pop" || page.Title != "tunemeld - Pop" {
			t.Errorf("unexpected page %q %q", page.ActiveGenre, page.Title)
		}
	})

	t.Run("Genre Without Rank Keeps URL", func(t *testing.T) {
		h := newHarness(t, "/?genre=rap", popRapChart)
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}

		if got := h.location(); got != "/?genre=rap" {
			t.Errorf("expected URL untouched, got %q", got)
		}
		if h.store.CurrentGenre() != "rap" || h.store.CurrentColumn() != "tunemeldRank" {
			t.Errorf("unexpected state %+v", h.store.Snapshot())
		}
		if runs := h.spy.Runs(); len(runs) != 1 || runs[0].Genre != "rap" || !runs[0].FullUpdate {
			t.Errorf("expected one full rap activation, got %+v", runs)
		}
	})

	t.Run("Unknown Genre Redirects Without New Entry", func(t *testing.T) {
		h := newHarness(t, "/?genre=doesnotexist", popRapChart)
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}

		if got := h.location(); got != "/?genre=pop&rank=tunemeldRank" {
			t.Errorf("expected default redirect, got %q", got)
		}
		if h.history.Len() != 1 {
			t.Errorf("expected no extra back entry, got %d", h.history.Len())
		}
		if ok, _ := h.router.Back(ctx); ok {
			t.Error("expected nothing to go back to")
		}
	})

	t.Run("Redirect Is Idempotent", func(t *testing.T) {
		h := newHarness(t, "/?genre=", popRapChart)
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		first := h.location()

		if err := h.router.Resolve(ctx); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if err := h.router.Resolve(ctx); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if h.location() != first || h.history.Len() != 1 {
			t.Errorf("expected %q to be stable, got %q with %d entries", first, h.location(), h.history.Len())
		}
	})

	t.Run("Unmatched Path Redirects", func(t *testing.T) {
		h := newHarness(t, "/charts/pop?genre=rap", popRapChart)
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if got := h.location(); got != "/?genre=pop&rank=tunemeldRank" {
			t.Errorf("expected default redirect, got %q", got)
		}
	})

	t.Run("Invalid Rank Falls Back Silently", func(t *testing.T) {
		h := newHarness(t, "/?genre=rap&rank=vinyl", popRapChart)
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if h.location() != "/?genre=rap&rank=vinyl" {
			t.Errorf("expected URL untouched, got %q", h.location())
		}
		if h.store.CurrentColumn() != "tunemeldRank" {
			t.Errorf("expected default column, got %q", h.store.CurrentColumn())
		}
	})

	t.Run("Every Valid Genre Activates Exactly That Genre", func(t *testing.T) {
		for _, g := range tu.Fixtures().Genres {
			h := newHarness(t, "/?genre="+g.Name, nil)
			if err := h.router.Initialize(ctx); err != nil {
				t.Fatalf("%s: Initialize() error = %v", g.Name, err)
			}
			page := h.page.Page()
			if page.ActiveGenre != g.Name || page.Genre != g.Name || h.store.CurrentGenre() != g.Name {
				t.Errorf("%s: unexpected active genre %q rendered %q", g.Name, page.ActiveGenre, page.Genre)
			}
			if runs := h.spy.Runs(); len(runs) != 1 || runs[0].Genre != g.Name {
				t.Errorf("%s: expected a single activation, got %+v", g.Name, runs)
			}
		}
	})
}

func TestInitializationFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("genres unavailable")

	h := newHarness(t, "/", popRapChart)
	h.gateway.FailWith("AvailableGenres", boom)

	err := h.router.Initialize(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("expected genres error, got %v", err)
	}

	t.Run("Stays Not Ready", func(t *testing.T) {
		if h.router.Status() != Uninitialized {
			t.Errorf("expected Uninitialized, got %s", h.router.Status())
		}
		if h.router.HasValidData() {
			t.Error("expected no reference data")
		}
		if len(h.spy.Runs()) != 0 {
			t.Error("expected no activation")
		}
	})

	t.Run("Hands Retry Handle To Caller", func(t *testing.T) {
		if len(h.retries) != 1 {
			t.Fatalf("expected one retry callback, got %d", len(h.retries))
		}
		if !h.retries[0].Failed() || h.retries[0].Attempts() != 1 {
			t.Error("expected failed handle with one attempt")
		}
	})

	t.Run("Retry Succeeds Without Duplicate Routes", func(t *testing.T) {
		h.gateway.FailWith("AvailableGenres", nil)
		if _, err := h.retries[0].Retry(ctx); err != nil {
			t.Fatalf("Retry() error = %v", err)
		}
		if h.router.Status() != Ready || h.location() != "/?genre=pop&rank=tunemeldRank" {
			t.Errorf("expected ready at default, got %s %q", h.router.Status(), h.location())
		}

		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("second Initialize() error = %v", err)
		}
		if h.router.RouteRegistrations() != 1 {
			t.Errorf("expected routes registered once, got %d", h.router.RouteRegistrations())
		}
		if h.gateway.Calls("AvailableGenres") != 3 {
			t.Errorf("expected reference data re-fetched, got %d calls", h.gateway.Calls("AvailableGenres"))
		}
	})

	t.Run("Rank Failure Also Aborts", func(t *testing.T) {
		h := newHarness(t, "/", popRapChart)
		h.gateway.FailWith("PlaylistRanks", errors.New("ranks unavailable"))
		if err := h.router.Initialize(ctx); err == nil {
			t.Fatal("expected error")
		}
		if h.router.Status() == Ready {
			t.Error("expected not ready")
		}
	})
}

func TestActivation(t *testing.T) {
	ctx := context.Background()

	t.Run("Same Genre Twice Is A Partial Update", func(t *testing.T) {
		h := newHarness(t, "/?genre=pop", nil)
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if err := h.router.ActivateGenre(ctx, "pop", ""); err != nil {
			t.Fatalf("ActivateGenre() error = %v", err)
		}

		runs := h.spy.Runs()
		if len(runs) != 2 || !runs[0].FullUpdate || runs[1].FullUpdate {
			t.Errorf("expected full then partial, got %+v", runs)
		}
		if h.gateway.Calls("PlaylistMetadata") != 1 {
			t.Errorf("expected metadata fetched once, got %d", h.gateway.Calls("PlaylistMetadata"))
		}
	})

	t.Run("Genre Change Is A Full Update", func(t *testing.T) {
		h := newHarness(t, "/?genre=pop", nil)
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if err := h.router.NavigateToGenre(ctx, "rap", ""); err != nil {
			t.Fatalf("NavigateToGenre() error = %v", err)
		}
		runs := h.spy.Runs()
		if !runs[len(runs)-1].FullUpdate {
			t.Error("expected full update on genre change")
		}
		if h.page.Page().Title != "tunemeld - Hip-Hop/Rap" {
			t.Errorf("unexpected title %q", h.page.Page().Title)
		}
	})

	t.Run("Rank Navigation Syncs Column And Order", func(t *testing.T) {
		h := newHarness(t, "/?genre=pop", nil)
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if err := h.router.NavigateToRank(ctx, "spotify-views"); err != nil {
			t.Fatalf("NavigateToRank() error = %v", err)
		}

		if h.location() != "/?genre=pop&rank=spotify-views" {
			t.Errorf("unexpected location %q", h.location())
		}
		if h.store.CurrentColumn() != "spotify-views" || h.store.CurrentOrder() != "desc" {
			t.Errorf("unexpected sort %q %q", h.store.CurrentColumn(), h.store.CurrentOrder())
		}
		if h.store.DefaultRankField() != "tunemeld-rank" {
			t.Errorf("expected default rank untouched, got %q", h.store.DefaultRankField())
		}
		main := h.page.Page().Main
		if main == nil || main.Tracks[0].ISRC != "USRC102400002" {
			t.Error("expected chart re-sorted by spotify views")
		}
		if h.page.Page().ActiveRank != "spotify-views" {
			t.Errorf("expected spotify-views highlighted, got %q", h.page.Page().ActiveRank)
		}
	})

	t.Run("Rank Navigation Without Genre Is A No-op", func(t *testing.T) {
		h := newHarness(t, "/", nil)
		if err := h.router.NavigateToRank(ctx, "spotify-views"); err != nil {
			t.Fatalf("NavigateToRank() error = %v", err)
		}
		if h.history.Len() != 1 || len(h.spy.Runs()) != 0 {
			t.Error("expected nothing to happen")
		}
	})

	t.Run("Navigation Before Initialization Is Safe", func(t *testing.T) {
		h := newHarness(t, "/", nil)
		if err := h.router.NavigateToGenre(ctx, "pop", ""); err != nil {
			t.Fatalf("NavigateToGenre() error = %v", err)
		}
		if len(h.spy.Runs()) != 0 {
			t.Error("expected no activation without reference data")
		}
		if h.router.RouteRegistrations() != 1 {
			t.Error("expected routes registered lazily")
		}
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if h.router.RouteRegistrations() != 1 {
			t.Error("expected no duplicate registration")
		}
		if h.store.CurrentGenre() != "pop" {
			t.Errorf("expected pop after initialization, got %q", h.store.CurrentGenre())
		}
	})

	t.Run("Invalid Genre Is Rejected Directly", func(t *testing.T) {
		h := newHarness(t, "/", nil)
		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if err := h.router.ActivateGenre(ctx, "polka", ""); !errors.Is(err, shared.ErrInvalidGenre) {
			t.Errorf("expected ErrInvalidGenre, got %v", err)
		}
	})

	t.Run("Pipeline Failure Leaves Router Usable", func(t *testing.T) {
		h := newHarness(t, "/?genre=pop", nil)
		h.gateway.FailWith("PlaylistMetadata", errors.New("down"))

		if err := h.router.Initialize(ctx); err != nil {
			t.Fatalf("expected initialization to succeed, got %v", err)
		}
		if h.store.Loading() != state.LoadingNone {
			t.Error("expected loaders hidden")
		}

		h.gateway.FailWith("PlaylistMetadata", nil)
		if err := h.router.NavigateToGenre(ctx, "rap", ""); err != nil {
			t.Fatalf("NavigateToGenre() error = %v", err)
		}
		if h.page.Page().Genre != "rap" {
			t.Error("expected rap to render")
		}
	})
}

func TestHistoryNavigation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "/?genre=pop", nil)
	if err := h.router.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := h.router.NavigateToGenre(ctx, "rap", "youtube-views"); err != nil {
		t.Fatalf("NavigateToGenre() error = %v", err)
	}

	t.Run("Back Resolves Previous Entry", func(t *testing.T) {
		ok, err := h.router.Back(ctx)
		if !ok || err != nil {
			t.Fatalf("Back() = %v, %v", ok, err)
		}
		if h.store.CurrentGenre() != "pop" || h.store.CurrentColumn() != "tunemeld-rank" {
			t.Errorf("unexpected state %+v", h.store.Snapshot())
		}
	})

	t.Run("Forward Resolves Next Entry", func(t *testing.T) {
		ok, err := h.router.Forward(ctx)
		if !ok || err != nil {
			t.Fatalf("Forward() = %v, %v", ok, err)
		}
		if h.store.CurrentGenre() != "rap" || h.store.CurrentColumn() != "youtube-views" {
			t.Errorf("unexpected state %+v", h.store.Snapshot())
		}
		if ok, _ := h.router.Forward(ctx); ok {
			t.Error("expected no forward entry")
		}
	})

	t.Run("UpdateURLOnly Does Not Resolve", func(t *testing.T) {
		runs := len(h.spy.Runs())
		entries := h.history.Len()
		h.router.UpdateURLOnly("rap", "youtube-views", "spotify", "QMRC122400000")

		if len(h.spy.Runs()) != runs || h.history.Len() != entries {
			t.Error("expected replace without activation")
		}
		if h.location() != "/?genre=rap&rank=youtube-views&player=spotify&isrc=QMRC122400000" {
			t.Errorf("unexpected location %q", h.location())
		}
	})

	t.Run("Visits Are Recorded", func(t *testing.T) {
		if len(h.visits.visits) != len(h.spy.Runs()) {
			t.Errorf("expected a visit per activation, got %d for %d", len(h.visits.visits), len(h.spy.Runs()))
		}
		if h.visits.visits[0] != "/?genre=pop" {
			t.Errorf("unexpected first visit %q", h.visits.visits[0])
		}
	})
}

func TestTrackDeepLink(t *testing.T) {
	ctx := context.Background()
	isrc := "USRC102400002"

	h := newHarness(t, "/?genre=pop&player=spotify&isrc="+isrc, nil)
	if err := h.router.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	want, _ := tu.Fixtures().Playlist("pop", "tunemeld")
	track, _ := want.Track(isrc)

	if h.opener.calls != 1 || h.opener.player != "spotify" || h.opener.track.ISRC != isrc {
		t.Errorf("unexpected open %+v", h.opener)
	}
	if got := h.page.Page().Title; got != track.TrackName+" - "+track.ArtistName {
		t.Errorf("unexpected title %q", got)
	}
	if gotISRC, player := h.store.CurrentTrack(); gotISRC != isrc || player != "spotify" {
		t.Errorf("unexpected track state %q %q", gotISRC, player)
	}

	t.Run("Navigating Away Clears Track", func(t *testing.T) {
		if err := h.router.NavigateToGenre(ctx, "pop", ""); err != nil {
			t.Fatalf("NavigateToGenre() error = %v", err)
		}
		if gotISRC, _ := h.store.CurrentTrack(); gotISRC != "" {
			t.Errorf("expected cleared track, got %q", gotISRC)
		}
	})

	t.Run("NavigateToTrack Pushes Deep Link", func(t *testing.T) {
		if err := h.router.NavigateToTrack(ctx, "pop", "", "youtube", "USRC102400000"); err != nil {
			t.Fatalf("NavigateToTrack() error = %v", err)
		}
		if h.opener.calls != 2 || h.opener.player != "youtube" {
			t.Errorf("unexpected open %+v", h.opener)
		}
	})

	t.Run("Unknown Track Is Ignored", func(t *testing.T) {
		if err := h.router.NavigateToTrack(ctx, "pop", "", "spotify", "XX0000000000"); err != nil {
			t.Fatalf("NavigateToTrack() error = %v", err)
		}
		if h.opener.calls != 2 {
			t.Error("expected no open for unknown track")
		}
	})
}

func TestLookups(t *testing.T) {
	h := newHarness(t, "/", nil)

	t.Run("Before Initialization", func(t *testing.T) {
		if h.router.HasValidData() || h.router.DefaultGenre() != "" || h.router.DefaultRank() != "" {
			t.Error("expected empty lookups")
		}
		if h.router.GenreDisplayName("pop") != "pop" {
			t.Error("expected raw id fallback")
		}
	})

	if err := h.router.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	t.Run("Display Names", func(t *testing.T) {
		if h.router.GenreDisplayName("dance") != "Dance/Electronic" {
			t.Errorf("unexpected genre name %q", h.router.GenreDisplayName("dance"))
		}
		if h.router.GenreDisplayName("polka") != "polka" {
			t.Error("expected raw id fallback")
		}
		if h.router.RankDisplayName("spotify-views") != "Spotify Views" {
			t.Errorf("unexpected rank name %q", h.router.RankDisplayName("spotify-views"))
		}
		if h.router.RankDisplayName("vinyl") != "vinyl" {
			t.Error("expected raw id fallback")
		}
	})

	t.Run("Validity", func(t *testing.T) {
		if !h.router.IsValidGenre("country") || h.router.IsValidGenre("") || h.router.IsValidGenre("Pop") {
			t.Error("unexpected genre validity")
		}
		if !h.router.IsValidRank("youtube-views") || h.router.IsValidRank("tunemeldRank") {
			t.Error("unexpected rank validity")
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		if h.router.DefaultGenre() != "pop" || h.router.DefaultRank() != "tunemeld-rank" {
			t.Errorf("unexpected defaults %q %q", h.router.DefaultGenre(), h.router.DefaultRank())
		}
		if len(h.router.AvailableGenres()) != 4 || len(h.router.AvailableRanks()) != 3 {
			t.Error("unexpected reference data")
		}
	})

	t.Run("Default Genre Falls Back To First", func(t *testing.T) {
		h := newHarness(t, "/", func(gw *tu.MockGateway) { gw.Chart.DefaultGenre = "polka" })
		if err := h.router.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if h.router.DefaultGenre() != tu.Fixtures().Genres[0].Name {
			t.Errorf("unexpected default %q", h.router.DefaultGenre())
		}
	})

	t.Run("Generation Guard", func(t *testing.T) {
		gen := h.router.Generation()
		if h.router.IsStale(gen) || !h.router.IsStale(gen-1) {
			t.Error("unexpected stale result")
		}
	})
}
