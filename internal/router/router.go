package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/services"
	"github.com/desertthunder/tunemeld/internal/shared"
	"github.com/desertthunder/tunemeld/internal/state"
	"github.com/desertthunder/tunemeld/internal/tasks"
)

// Status is the router lifecycle state.
type Status int

const (
	Uninitialized Status = iota
	Initializing
	Ready
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Document is the page chrome the router updates on activation.
type Document interface {
	SetTitle(title string)
	SetActiveGenre(genre string)
}

// TrackOpener opens a deep-linked track in a player.
type TrackOpener interface {
	OpenTrack(ctx context.Context, player string, track models.Track) error
}

// VisitRecorder records every resolved location.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, location string) error
}

// InitRetryable is the retry handle passed to [Options.OnInitError].
type InitRetryable = shared.Retryable[*ReferenceData]

// ReferenceData is the genre and rank lists loaded during initialization.
type ReferenceData struct {
	Genres       []models.Genre
	DefaultGenre string
	Ranks        []models.Rank
}

// Options configures a [Router]. Gateway, Store and Activator are required.
type Options struct {
	Gateway   services.DataGateway
	Store     *state.Store
	Activator tasks.Activator
	History   History
	Document  Document
	Opener    TrackOpener
	Visits    VisitRecorder
	Logger    *log.Logger
	// OnInitError is called when initialization fails. The router never retries on its own.
	OnInitError func(r *InitRetryable)
}

type routeHandler func(ctx context.Context, query url.Values) error

// Router maps locations to genre activations. Construct one per process with [New].
type Router struct {
	gateway     services.DataGateway
	store       *state.Store
	activator   tasks.Activator
	history     History
	doc         Document
	opener      TrackOpener
	visits      VisitRecorder
	logger      *log.Logger
	onInitError func(*InitRetryable)

	init       *InitRetryable
	generation atomic.Uint64

	mu            sync.RWMutex
	status        Status
	ref           *ReferenceData
	routes        map[string]routeHandler
	registrations int
	activated     bool
}

// New creates a [Router] and wires the activator's stale check to the router's navigation generation.
func New(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	history := opts.History
	if history == nil {
		history = NewMemoryHistory("/")
	}
	doc := opts.Document
	if doc == nil {
		doc = nopDocument{}
	}

	r := &Router{
		gateway:     opts.Gateway,
		store:       opts.Store,
		activator:   opts.Activator,
		history:     history,
		doc:         doc,
		opener:      opts.Opener,
		visits:      opts.Visits,
		logger:      shared.WithLogger(logger, "component", "router"),
		onInitError: opts.OnInitError,
		routes:      make(map[string]routeHandler),
	}
	r.init = shared.NewRetryable("router.initialize", r.initialize)
	if r.activator != nil {
		r.activator.SetStaleCheck(r.IsStale)
	}
	return r
}

// Status returns the lifecycle state.
func (r *Router) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Router) setStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

// Generation returns the number of activations started so far.
func (r *Router) Generation() uint64 {
	return r.generation.Load()
}

// IsStale reports whether a newer activation than gen has started.
func (r *Router) IsStale(gen uint64) bool {
	return gen != r.generation.Load()
}

// History exposes the router's navigation history.
func (r *Router) History() History {
	return r.history
}

// InitRetryable returns the handle that re-runs initialization.
func (r *Router) InitRetryable() *InitRetryable {
	return r.init
}

// Initialize loads reference data, registers routes and resolves the current location.
//
// On failure the error is logged, handed to OnInitError through the retry handle and returned;
// the router stays not Ready. Calling it again re-fetches and re-resolves.
func (r *Router) Initialize(ctx context.Context) error {
	if _, err := r.init.Run(ctx); err != nil {
		if r.onInitError != nil && !errors.Is(err, shared.ErrInFlight) {
			r.onInitError(r.init)
		}
		return err
	}
	return nil
}

func (r *Router) initialize(ctx context.Context) (*ReferenceData, error) {
	r.logger.Debug("initialize: start")
	if r.Status() != Ready {
		r.setStatus(Initializing)
		r.store.ShowLoading(state.LoadingInitial, true)
	}

	ref, err := r.fetchReference(ctx)
	if err != nil {
		r.logger.Error("router initialization failed", "error", err)
		r.mu.Lock()
		if r.status == Initializing {
			r.status = Uninitialized
		}
		r.mu.Unlock()
		return nil, err
	}

	r.mu.Lock()
	r.ref = ref
	r.mu.Unlock()

	if rank, ok := ref.defaultRank(); ok {
		r.store.SeedDefaultRank(rank.SortField)
	} else {
		r.logger.Warn("no default rank declared", "ranks", len(ref.Ranks))
	}

	// Show the requested genre while the first activation loads.
	if genre := r.history.Location().Query().Get(ParamGenre); r.IsValidGenre(genre) && r.store.CurrentGenre() == "" {
		r.store.SetCurrentGenre(genre)
	}

	r.registerRoutes()
	r.setStatus(Ready)

	if err := r.Resolve(ctx); err != nil {
		r.logger.Warn("initial route resolution failed", "error", err)
	}
	r.logger.Debug("initialize: end", "genres", len(ref.Genres), "ranks", len(ref.Ranks))
	return ref, nil
}

// fetchReference loads genres and ranks concurrently. Either failing aborts both.
func (r *Router) fetchReference(ctx context.Context) (*ReferenceData, error) {
	var (
		genres *services.GenresResult
		ranks  []models.Rank
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.gateway.AvailableGenres(gctx)
		if err != nil {
			return fmt.Errorf("available genres: %w", err)
		}
		genres = res
		return nil
	})
	g.Go(func() error {
		res, err := r.gateway.PlaylistRanks(gctx)
		if err != nil {
			return fmt.Errorf("playlist ranks: %w", err)
		}
		ranks = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ReferenceData{Genres: genres.Genres, DefaultGenre: genres.DefaultGenre, Ranks: ranks}, nil
}

// registerRoutes installs the route table unless it already exists.
func (r *Router) registerRoutes() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) > 0 {
		return
	}
	r.routes["/"] = r.handleGenreRoute
	r.registrations++
}

// RouteRegistrations returns how many times the route table was installed.
func (r *Router) RouteRegistrations() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registrations
}

// Resolve dispatches the current location. Unmatched paths redirect to the default genre and rank.
func (r *Router) Resolve(ctx context.Context) error {
	loc := r.history.Location()

	r.mu.RLock()
	handler, ok := r.routes[loc.Path]
	r.mu.RUnlock()

	r.logger.Debug("resolve", "location", loc.String(), "matched", ok)
	if !ok {
		return r.redirectToDefault(ctx)
	}
	return handler(ctx, loc.Query())
}

func (r *Router) handleGenreRoute(ctx context.Context, q url.Values) error {
	if !r.HasValidData() {
		r.logger.Debug("ignoring route before reference data loaded")
		return nil
	}

	genre := q.Get(ParamGenre)
	if genre == "" || !r.IsValidGenre(genre) {
		if genre != "" {
			r.logger.Debug("invalid genre in location", "genre", genre)
		}
		return r.redirectToDefault(ctx)
	}

	rank := q.Get(ParamRank)
	if rank != "" && !r.IsValidRank(rank) {
		r.logger.Debug("invalid rank in location", "rank", rank)
		rank = ""
	}

	return r.activate(ctx, genre, rank, q.Get(ParamPlayer), q.Get(ParamISRC))
}

// redirectToDefault replaces the current entry with the default genre and rank and activates them.
func (r *Router) redirectToDefault(ctx context.Context) error {
	if !r.HasValidData() {
		return nil
	}
	genre, rank := r.DefaultGenre(), r.DefaultRank()
	if genre == "" {
		return shared.ErrNoReferenceData
	}
	r.history.Replace(BuildURL(genre, rank, "", ""))
	return r.activate(ctx, genre, rank, "", "")
}

// ActivateGenre makes genre current, sorted by rank (the default rank when empty), and runs the pipeline.
func (r *Router) ActivateGenre(ctx context.Context, genre, rank string) error {
	return r.activate(ctx, genre, rank, "", "")
}

func (r *Router) activate(ctx context.Context, genre, rank, player, isrc string) error {
	if !r.IsValidGenre(genre) {
		return fmt.Errorf("%w: %q", shared.ErrInvalidGenre, genre)
	}

	r.mu.Lock()
	first := !r.activated
	r.activated = true
	r.mu.Unlock()

	needsFullUpdate := first || r.store.CurrentGenre() != genre

	r.store.SetCurrentGenre(genre)
	r.doc.SetTitle("tunemeld - " + r.GenreDisplayName(genre))
	r.doc.SetActiveGenre(genre)
	r.syncRank(rank)
	if player != "" && isrc != "" {
		r.store.SetCurrentTrack(isrc, player)
	} else {
		r.store.ClearCurrentTrack()
	}

	gen := r.generation.Add(1)
	r.logger.Debug("activate", "genre", genre, "rank", r.store.CurrentColumn(), "full", needsFullUpdate, "generation", gen)

	res, err := r.activator.Run(ctx, tasks.Activation{Genre: genre, FullUpdate: needsFullUpdate, Generation: gen})
	r.store.MarkInitialLoadComplete()
	r.recordVisit(ctx)
	if err != nil {
		return err
	}
	if res.Stale {
		return nil
	}

	if player != "" && isrc != "" {
		r.openTrack(ctx, res, player, isrc)
	}
	return nil
}

// syncRank sets the sort column to rank, or the default rank, and the order from that rank's definition.
func (r *Router) syncRank(rank string) {
	if rank == "" {
		rank = r.DefaultRank()
	}
	if rank != "" {
		r.store.SetCurrentColumn(rank)
	}
	if def, ok := r.rank(rank); ok {
		r.store.SetCurrentOrder(def.SortOrder)
	}
}

func (r *Router) openTrack(ctx context.Context, res *tasks.ActivationResult, player, isrc string) {
	track, ok := findTrack(res, isrc)
	if !ok {
		r.logger.Warn("deep-linked track not in chart", "isrc", isrc, "error", shared.ErrTrackNotFound)
		return
	}

	r.doc.SetTitle(track.TrackName + " - " + track.ArtistName)
	if r.opener == nil {
		return
	}
	if err := r.opener.OpenTrack(ctx, player, track); err != nil {
		r.logger.Warn("failed to open track", "isrc", isrc, "player", player, "error", err)
	}
}

func findTrack(res *tasks.ActivationResult, isrc string) (models.Track, bool) {
	if res.Main != nil {
		if t, ok := res.Main.Track(isrc); ok {
			return *t, true
		}
	}
	for _, p := range res.Services {
		if p == nil {
			continue
		}
		if t, ok := p.Track(isrc); ok {
			return *t, true
		}
	}
	return models.Track{}, false
}

func (r *Router) recordVisit(ctx context.Context) {
	if r.visits == nil {
		return
	}
	if err := r.visits.RecordVisit(ctx, r.history.Location().String()); err != nil {
		r.logger.Warn("failed to record visit", "error", err)
	}
}

// NavigateToGenre pushes a new location for genre and rank and resolves it.
func (r *Router) NavigateToGenre(ctx context.Context, genre, rank string) error {
	r.registerRoutes()
	r.history.Push(BuildURL(genre, rank, "", ""))
	return r.Resolve(ctx)
}

// NavigateToRank re-navigates the current genre with a new rank. It does nothing before a genre is active.
func (r *Router) NavigateToRank(ctx context.Context, sortField string) error {
	genre := r.CurrentGenre()
	if genre == "" {
		return nil
	}
	return r.NavigateToGenre(ctx, genre, sortField)
}

// NavigateToTrack pushes a deep link to a track and resolves it.
func (r *Router) NavigateToTrack(ctx context.Context, genre, rank, player, isrc string) error {
	r.registerRoutes()
	r.history.Push(BuildURL(genre, rank, player, isrc))
	return r.Resolve(ctx)
}

// UpdateURLOnly replaces the current location without resolving it.
func (r *Router) UpdateURLOnly(genre, rank, player, isrc string) {
	r.history.Replace(BuildURL(genre, rank, player, isrc))
}

// Back moves one entry back and resolves it. It reports false when there is nothing to go back to.
func (r *Router) Back(ctx context.Context) (bool, error) {
	if !r.history.Back() {
		return false, nil
	}
	return true, r.Resolve(ctx)
}

// Forward moves one entry forward and resolves it.
func (r *Router) Forward(ctx context.Context) (bool, error) {
	if !r.history.Forward() {
		return false, nil
	}
	return true, r.Resolve(ctx)
}

type nopDocument struct{}

func (nopDocument) SetTitle(string) {}
func (nopDocument) SetActiveGenre(string) {}
