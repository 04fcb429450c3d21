package tasks

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tunemeld/internal/formatter"
	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/services"
	"github.com/desertthunder/tunemeld/internal/shared"
)

// ExportOptions contains configuration for multi-chart exports.
type ExportOptions struct {
	Format     string   // Export format: json, csv, markdown, txt
	OutputDir  string   // Base output directory (default: tunemeld_export_{epoch})
	NumWorkers int      // Concurrent writers (default: 4, max: 10)
	RateLimit  float64  // Gateway requests per second (default: 5)
	Genres     []string // Genre names to export; empty means all
	Services   []string // Services to export; empty means tunemeld plus every service in the metadata
	Rank       string   // Sort field applied to the tunemeld chart; empty keeps backend order
	Covers     bool     // Download playlist covers for Markdown exports
}

// ExportJob is one chart queued for writing.
type ExportJob struct {
	Genre      models.Genre
	Service    string
	Descriptor models.PlaylistDescriptor
	Playlist   *models.Playlist
	Rank       models.Rank
}

// ChartExportResult is the outcome of one chart export.
type ChartExportResult struct {
	Genre   string
	Service string
	Name    string
	Success bool
	Error   error
	Files   []string
}

// ExportResult summarises a multi-chart export.
type ExportResult struct {
	TotalCharts       int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []ChartExportResult
}

// Exporter writes charts fetched through a [services.DataGateway] to disk.
type Exporter struct {
	gateway services.DataGateway
	logger  *log.Logger
	now     func() time.Time
}

// NewExporter creates an [Exporter].
func NewExporter(gateway services.DataGateway, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Exporter{
		gateway: gateway,
		logger:  shared.WithLogger(logger, "component", "export"),
		now:     time.Now,
	}
}

type exportTarget struct {
	genre models.Genre
	meta  *models.PlaylistMetadata
	svc   string
}

// Export exports every selected genre/service chart concurrently with rate limiting and progress tracking.
//
// Reference data and metadata are resolved up front so the total is known. Chart fetches are rate limited and fed to
// a pool of writers; failed charts are recorded without stopping the others and a manifest summarises the run.
func (e *Exporter) Export(ctx context.Context, prog chan<- ProgressUpdate, opts ExportOptions) (*ExportResult, error) {
	if e.gateway == nil {
		return nil, fmt.Errorf("%w: gateway not initialized", shared.ErrServiceUnavailable)
	}

	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("tunemeld_export_%d", e.now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	targets, rank, err := e.plan(ctx, limiter, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		TotalCharts:     len(targets),
		OutputDirectory: opts.OutputDir,
		Results:         make([]ChartExportResult, 0, len(targets)),
	}

	jobs := make(chan ExportJob, len(targets))
	results := make(chan ChartExportResult, len(targets))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		enriched := make(map[string]map[string]models.PlayCount)

		for i, t := range targets {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			job := ExportJob{Genre: t.genre, Service: t.svc, Rank: rank}
			job.Descriptor, _ = t.meta.Descriptor(t.svc)

			pl, err := e.gateway.PlaylistTracks(ctx, t.genre.Name, t.svc)
			if err != nil {
				results <- ChartExportResult{
					Genre:   t.genre.Name,
					Service: t.svc,
					Name:    fmt.Sprintf("%s/%s", t.genre.Name, t.svc),
					Error:   fmt.Errorf("failed to fetch chart: %w", err),
				}
				continue
			}

			counts, ok := enriched[t.genre.Name]
			if !ok {
				counts = e.playCounts(ctx, pl)
				enriched[t.genre.Name] = counts
			}
			Enrich(pl, counts)
			if t.svc == models.ServiceTunemeld && rank.SortField != "" {
				ApplySort(pl, []models.Rank{rank}, rank.SortField, rank.SortOrder, "")
			}
			job.Playlist = pl

			jobs <- job
			sendProgress(prog, exportingChartUpdate(i+1, len(targets), job))
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
			sendProgress(prog, exportCompletedUpdate(completed, len(targets), res.Name, len(res.Files)))
		} else {
			result.FailedExports++
			e.logger.Warn("chart export failed", "genre", res.Genre, "service", res.Service, "error", res.Error)
			sendProgress(prog, exportFailedUpdate(completed, len(targets), res.Name, res.Error))
		}
	}

	slices.SortFunc(result.Results, func(a, b ChartExportResult) int {
		return cmp.Or(cmp.Compare(a.Genre, b.Genre), cmp.Compare(a.Service, b.Service))
	})

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(e.manifest(result, opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// plan resolves the selected genres, their metadata and the export rank into a list of charts.
func (e *Exporter) plan(ctx context.Context, limiter *rate.Limiter, opts ExportOptions) ([]exportTarget, models.Rank, error) {
	list, err := e.gateway.AvailableGenres(ctx)
	if err != nil {
		return nil, models.Rank{}, fmt.Errorf("failed to fetch genres: %w", err)
	}

	var rank models.Rank
	if opts.Rank != "" {
		ranks, err := e.gateway.PlaylistRanks(ctx)
		if err != nil {
			return nil, models.Rank{}, fmt.Errorf("failed to fetch ranks: %w", err)
		}
		r, ok := FindRank(ranks, opts.Rank)
		if !ok {
			return nil, models.Rank{}, fmt.Errorf("%w: %q", shared.ErrInvalidRank, opts.Rank)
		}
		if !r.IsDefault {
			rank = r
		}
	}

	genres := list.Genres
	if len(opts.Genres) > 0 {
		byName := lo.KeyBy(list.Genres, func(g models.Genre) string { return g.Name })
		genres = make([]models.Genre, 0, len(opts.Genres))
		for _, name := range lo.Uniq(opts.Genres) {
			g, ok := byName[name]
			if !ok {
				return nil, models.Rank{}, fmt.Errorf("%w: %q", shared.ErrInvalidGenre, name)
			}
			genres = append(genres, g)
		}
	}

	var targets []exportTarget
	for _, g := range genres {
		if err := limiter.Wait(ctx); err != nil {
			return nil, models.Rank{}, err
		}
		meta, err := e.gateway.PlaylistMetadata(ctx, g.Name)
		if err != nil {
			return nil, models.Rank{}, fmt.Errorf("failed to fetch %s metadata: %w", g.Name, err)
		}

		svcs := append([]string{models.ServiceTunemeld}, meta.ServiceOrder...)
		if len(opts.Services) > 0 {
			svcs = lo.Filter(svcs, func(s string, _ int) bool { return lo.Contains(opts.Services, s) })
		}
		for _, s := range lo.Uniq(svcs) {
			targets = append(targets, exportTarget{genre: g, meta: meta, svc: s})
		}
	}
	return targets, rank, nil
}

// playCounts fetches enrichment for a playlist. Failures are logged and yield no counts.
func (e *Exporter) playCounts(ctx context.Context, pl *models.Playlist) map[string]models.PlayCount {
	counts, err := e.gateway.PlayCounts(ctx, pl.ISRCs())
	if err != nil {
		e.logger.Warn("play count enrichment failed", "genre", pl.GenreName, "error", err)
		return nil
	}
	return lo.KeyBy(counts, func(pc models.PlayCount) string { return pc.ISRC })
}

// exportWorker is a worker goroutine that writes charts from the jobs channel.
func (e *Exporter) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan ExportJob,
	results chan<- ChartExportResult,
	opts ExportOptions,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.exportChart(job, opts)
	}
}

// exportChart writes a single chart to {output}/{genre}/ in the requested format.
func (e *Exporter) exportChart(j ExportJob, opts ExportOptions) ChartExportResult {
	export := &formatter.ChartExport{
		Genre:      j.Genre,
		Service:    j.Service,
		Descriptor: j.Descriptor,
		Rank:       j.Rank,
		Playlist:   j.Playlist,
		ExportedAt: e.now().UTC(),
	}
	result := ChartExportResult{
		Genre:   j.Genre.Name,
		Service: j.Service,
		Name:    export.Name(),
		Files:   []string{},
	}

	dir := filepath.Join(opts.OutputDir, j.Genre.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		result.Error = fmt.Errorf("failed to create genre directory: %w", err)
		return result
	}

	var cover string
	if opts.Covers {
		cover = j.Descriptor.PlaylistCoverURL
	}

	files, err := formatter.WriteExport(opts.Format, export, dir, cover)
	if err != nil {
		result.Error = err
		return result
	}
	result.Files = files
	result.Success = true
	return result
}

func (e *Exporter) manifest(r *ExportResult, format string) *formatter.Manifest {
	return &formatter.Manifest{
		Format:            format,
		OutputDirectory:   r.OutputDirectory,
		TotalCharts:       r.TotalCharts,
		SuccessfulExports: r.SuccessfulExports,
		FailedExports:     r.FailedExports,
		ExportedAt:        e.now().UTC(),
		Charts: lo.Map(r.Results, func(c ChartExportResult, _ int) formatter.ManifestEntry {
			entry := formatter.ManifestEntry{
				Genre:   c.Genre,
				Service: c.Service,
				Name:    c.Name,
				Success: c.Success,
				Files:   c.Files,
			}
			if c.Error != nil {
				entry.Error = c.Error.Error()
			}
			return entry
		}),
	}
}

// sendProgress sends a progress update without blocking.
//
// If the channel is full or nil, the update is dropped.
func sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}
