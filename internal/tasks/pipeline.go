package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/services"
	"github.com/desertthunder/tunemeld/internal/shared"
	"github.com/desertthunder/tunemeld/internal/state"
)

// Renderer receives the pipeline's output. Implementations must be safe to call from any goroutine;
// the pipeline itself only calls them from the goroutine running [Pipeline.Run].
type Renderer interface {
	ShowLoading(kind state.LoadingKind)
	HideLoading()
	RenderHeaders(genre string, meta *models.PlaylistMetadata)
	RenderServicePlaylist(slot ServiceSlot)
	RenderMainPlaylist(genre string, p *models.Playlist)
	RenderRankButtons(ranks []models.Rank, active string)
	ResetCollapse()
	AttachListeners()
}

// ServiceSlot is one service's playlist positioned by the metadata's service order.
type ServiceSlot struct {
	Index      int
	Service    string
	Descriptor models.PlaylistDescriptor
	Playlist   *models.Playlist
}

// Activation requests one genre activation.
type Activation struct {
	Genre      string
	FullUpdate bool
	Generation uint64
}

// ActivationResult describes what an activation fetched and rendered.
type ActivationResult struct {
	Genre      string
	FullUpdate bool
	Generation uint64
	Metadata   *models.PlaylistMetadata
	Main       *models.Playlist
	Ranks      []models.Rank
	// Services is indexed by the metadata's service order; failed services are nil.
	Services       []*models.Playlist
	FailedServices []string
	Enriched       int
	Sorted         bool
	Stale          bool
	Duration       time.Duration
}

// PipelineOptions configures a [Pipeline]. Gateway and Store are required.
type PipelineOptions struct {
	Gateway  services.DataGateway
	Store    *state.Store
	Renderer Renderer
	Logger   *log.Logger
	// Progress receives non-blocking updates; full channels drop them.
	Progress chan<- ProgressUpdate
	// Stale reports whether a generation has been superseded. Nil means never.
	Stale func(generation uint64) bool
}

// Pipeline loads and renders a genre's charts.
type Pipeline struct {
	gateway  services.DataGateway
	store    *state.Store
	renderer Renderer
	logger   *log.Logger
	progress chan<- ProgressUpdate
	stale    func(uint64) bool

	mu    sync.Mutex
	ranks []models.Rank
}

// NewPipeline creates a [Pipeline]. A nil renderer discards output.
func NewPipeline(opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = NopRenderer{}
	}
	return &Pipeline{
		gateway:  opts.Gateway,
		store:    opts.Store,
		renderer: renderer,
		logger:   shared.WithLogger(logger, "component", "pipeline"),
		progress: opts.Progress,
		stale:    opts.Stale,
	}
}

// SetStaleCheck replaces the generation guard.
func (p *Pipeline) SetStaleCheck(fn func(generation uint64) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stale = fn
}

// Ranks returns the rank definitions from the last full activation.
func (p *Pipeline) Ranks() []models.Rank {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Rank(nil), p.ranks...)
}

func (p *Pipeline) isStale(gen uint64) bool {
	p.mu.Lock()
	fn := p.stale
	p.mu.Unlock()
	return fn != nil && fn(gen)
}

// Run activates a genre.
//
// Top-level fetch failures are logged, loading indicators are hidden and the error is returned
// with whatever was rendered before the failure left in place. A run whose generation goes stale
// stops without rendering and returns a result with Stale set and a nil error, even when its fetches failed;
// the newer activation owns the loading indicator.
func (p *Pipeline) Run(ctx context.Context, a Activation) (*ActivationResult, error) {
	start := time.Now()
	logger := p.logger.With("genre", a.Genre, "generation", a.Generation, "full", a.FullUpdate)
	res := &ActivationResult{Genre: a.Genre, FullUpdate: a.FullUpdate, Generation: a.Generation}

	kind := state.LoadingRank
	if a.FullUpdate {
		kind = state.LoadingGenre
		if p.store.Snapshot().InitialLoad {
			kind = state.LoadingInitial
		}
	}
	p.store.ShowLoading(kind, false)
	p.renderer.ShowLoading(kind)

	var err error
	if a.FullUpdate {
		err = p.full(ctx, a, res, logger)
	} else {
		err = p.partial(ctx, a, res, logger)
	}
	res.Duration = time.Since(start)

	if err != nil && p.isStale(a.Generation) {
		logger.Debug("dropping failed stale activation", "error", err, "duration", res.Duration)
		res.Stale = true
		return res, nil
	}
	if err != nil {
		logger.Error("genre activation failed", "error", err, "duration", res.Duration)
		p.store.HideLoading()
		p.renderer.HideLoading()
		p.sendProgress(failedUpdate(a.Generation, a.Genre, err))
		return res, fmt.Errorf("activate %s: %w", a.Genre, err)
	}
	if res.Stale {
		logger.Debug("dropping stale activation", "duration", res.Duration)
		return res, nil
	}

	p.finish(res)
	logger.Info("genre activated", "tracks", len(res.Main.Tracks), "failed_services", len(res.FailedServices), "duration", res.Duration)
	p.sendProgress(completeUpdate(a.Generation, res))
	return res, nil
}

// full fetches metadata, the main playlist and ranks together and then every service's playlist.
// Per-service failures leave nil slots; anything else aborts.
func (p *Pipeline) full(ctx context.Context, a Activation, res *ActivationResult, logger *log.Logger) error {
	p.sendProgress(fetchReferenceUpdate(a.Generation, a.Genre))

	var (
		meta  *models.PlaylistMetadata
		main  *models.Playlist
		ranks []models.Rank
		slots []ServiceSlot
		svcs  errgroup.Group
	)

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := p.gateway.PlaylistMetadata(gctx, a.Genre)
		if err != nil {
			return fmt.Errorf("playlist metadata: %w", err)
		}
		meta = m
		slots = p.fetchServices(sctx, &svcs, a, m, logger)
		return nil
	})
	g.Go(func() error {
		pl, err := p.gateway.PlaylistTracks(gctx, a.Genre, models.ServiceTunemeld)
		if err != nil {
			return fmt.Errorf("main playlist: %w", err)
		}
		main = pl
		return nil
	})
	g.Go(func() error {
		r, err := p.gateway.PlaylistRanks(gctx)
		if err != nil {
			return fmt.Errorf("playlist ranks: %w", err)
		}
		ranks = r
		return nil
	})

	err := g.Wait()
	if err != nil {
		cancel()
	}
	// Service fetches never fail but must not outlive the run.
	_ = svcs.Wait()
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.ranks = ranks
	p.mu.Unlock()

	res.Metadata, res.Main, res.Ranks = meta, main, ranks
	res.Services = make([]*models.Playlist, len(slots))
	for _, s := range slots {
		res.Services[s.Index] = s.Playlist
		if s.Playlist == nil {
			res.FailedServices = append(res.FailedServices, s.Service)
		}
	}

	res.Enriched = p.enrich(ctx, a, main, logger)
	res.Sorted = p.order(main, ranks)

	if p.isStale(a.Generation) {
		res.Stale = true
		return nil
	}

	p.store.ClearElementCache()
	p.sendProgress(renderUpdate(a.Generation, main))
	p.renderer.RenderHeaders(a.Genre, meta)
	for _, s := range slots {
		if s.Playlist != nil {
			p.renderer.RenderServicePlaylist(s)
		}
	}
	p.renderer.RenderMainPlaylist(a.Genre, main)
	return nil
}

// fetchServices starts one fetch per service in metadata order on group and returns slots that are
// filled once the group is waited on.
func (p *Pipeline) fetchServices(ctx context.Context, group *errgroup.Group, a Activation, meta *models.PlaylistMetadata, logger *log.Logger) []ServiceSlot {
	slots := make([]ServiceSlot, len(meta.ServiceOrder))
	total := len(meta.ServiceOrder)

	var (
		mu   sync.Mutex
		done int
	)
	for i, service := range meta.ServiceOrder {
		desc, _ := meta.Descriptor(service)
		slots[i] = ServiceSlot{Index: i, Service: service, Descriptor: desc}

		group.Go(func() error {
			pl, err := p.gateway.PlaylistTracks(ctx, a.Genre, service)
			if err != nil {
				logger.Warn("service playlist unavailable", "service", service, "error", err)
				pl = nil
			}
			slots[i].Playlist = pl

			mu.Lock()
			done++
			step := done
			mu.Unlock()
			p.sendProgress(serviceFetchedUpdate(a.Generation, step, total, service, err))
			return nil
		})
	}
	return slots
}

// partial refetches only the main playlist and reapplies the current sort.
func (p *Pipeline) partial(ctx context.Context, a Activation, res *ActivationResult, logger *log.Logger) error {
	p.sendProgress(fetchMainUpdate(a.Generation, a.Genre))

	main, err := p.gateway.PlaylistTracks(ctx, a.Genre, models.ServiceTunemeld)
	if err != nil {
		return fmt.Errorf("main playlist: %w", err)
	}

	ranks := p.Ranks()
	if len(ranks) == 0 {
		r, err := p.gateway.PlaylistRanks(ctx)
		if err != nil {
			return fmt.Errorf("playlist ranks: %w", err)
		}
		ranks = r
		p.mu.Lock()
		p.ranks = ranks
		p.mu.Unlock()
	}

	res.Main, res.Ranks = main, ranks
	res.Enriched = p.enrich(ctx, a, main, logger)
	res.Sorted = p.order(main, ranks)

	if p.isStale(a.Generation) {
		res.Stale = true
		return nil
	}

	p.sendProgress(renderUpdate(a.Generation, main))
	p.renderer.RenderMainPlaylist(a.Genre, main)
	return nil
}

// enrich attaches play counts to the main playlist. Failures are logged and leave the tracks as fetched.
func (p *Pipeline) enrich(ctx context.Context, a Activation, main *models.Playlist, logger *log.Logger) int {
	isrcs := main.ISRCs()
	if len(isrcs) == 0 {
		return 0
	}
	p.sendProgress(enrichUpdate(a.Generation, len(isrcs)))

	counts, err := p.gateway.PlayCounts(ctx, isrcs)
	if err != nil {
		logger.Warn("play count enrichment failed", "isrcs", len(isrcs), "error", err)
		return 0
	}

	byISRC := make(map[string]models.PlayCount, len(counts))
	for _, pc := range counts {
		byISRC[pc.ISRC] = pc
	}
	return Enrich(main, byISRC)
}

func (p *Pipeline) order(main *models.Playlist, ranks []models.Rank) bool {
	defaultField := p.store.DefaultRankField()
	if defaultField == "" {
		if r, ok := (services.RanksResult{Ranks: ranks}).Default(); ok {
			defaultField = r.SortField
		}
	}
	return ApplySort(main, ranks, p.store.CurrentColumn(), p.store.CurrentOrder(), defaultField)
}

// finish runs the steps every successful activation ends with.
func (p *Pipeline) finish(res *ActivationResult) {
	p.renderer.RenderRankButtons(res.Ranks, p.store.CurrentColumn())
	p.store.HideLoading()
	p.renderer.HideLoading()
	p.renderer.ResetCollapse()
	p.renderer.AttachListeners()
}

func (p *Pipeline) sendProgress(update ProgressUpdate) {
	sendProgress(p.progress, update)
}

// NopRenderer discards all output.
type NopRenderer struct{}

func (NopRenderer) ShowLoading(state.LoadingKind) {}
func (NopRenderer) HideLoading() {}
func (NopRenderer) RenderHeaders(string, *models.PlaylistMetadata) {}
func (NopRenderer) RenderServicePlaylist(ServiceSlot) {}
func (NopRenderer) RenderMainPlaylist(string, *models.Playlist) {}
func (NopRenderer) RenderRankButtons([]models.Rank, string) {}
func (NopRenderer) ResetCollapse() {}
func (NopRenderer) AttachListeners() {}
