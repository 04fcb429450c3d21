package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunemeld/internal/formatter"
	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/router"
	"github.com/desertthunder/tunemeld/internal/shared"
	"github.com/desertthunder/tunemeld/internal/state"
	"github.com/desertthunder/tunemeld/internal/tasks"
)

// Genres lists the available genres.
func (r *Runner) Genres(ctx context.Context, cmd *cli.Command) error {
	gateway := r.client()
	defer r.close()

	list, err := gateway.AvailableGenres(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch genres: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Genres (%d)", len(list.Genres)))
	for _, g := range list.Genres {
		marker := " "
		if g.Name == list.DefaultGenre {
			marker = "*"
		}
		r.writePlain("%s %-10s %s\n", marker, g.Name, g.DisplayName)
	}
	return nil
}

// Ranks lists the rank definitions.
func (r *Runner) Ranks(ctx context.Context, cmd *cli.Command) error {
	gateway := r.client()
	defer r.close()

	ranks, err := gateway.PlaylistRanks(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch ranks: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(ranks, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Ranks (%d)", len(ranks)))
	for _, rk := range ranks {
		marker := " "
		if rk.IsDefault {
			marker = "*"
		}
		r.writePlain("%s %-16s %-16s %s\n", marker, rk.SortField, rk.DisplayName, rk.SortOrder)
	}
	return nil
}

// chartView is the JSON shape of a resolved chart.
type chartView struct {
	Location string                   `json:"location"`
	Title    string                   `json:"title"`
	Genre    string                   `json:"genre"`
	Rank     string                   `json:"rank"`
	Order    string                   `json:"order"`
	Main     *models.Playlist         `json:"main"`
	Metadata *models.PlaylistMetadata `json:"metadata,omitempty"`
	Services []*models.Playlist       `json:"services,omitempty"`
}

// Chart resolves a location through the router headlessly and prints what was rendered.
func (r *Runner) Chart(ctx context.Context, cmd *cli.Command) error {
	gateway := r.client()
	defer r.close()

	location := cmd.String("url")
	if location == "" {
		location = router.BuildURL(cmd.String("genre"), cmd.String("rank"), "", "").String()
	}
	if _, err := router.ParseLocation(location); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.logger.Debug(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total, "generation", u.Generation)
		}
	}()

	page := tasks.NewPageRecorder()
	store := state.NewStore(state.Options{Logger: r.logger})
	pipeline := tasks.NewPipeline(tasks.PipelineOptions{
		Gateway:  gateway,
		Store:    store,
		Renderer: page,
		Logger:   r.logger,
		Progress: progress,
	})
	history := router.NewMemoryHistory(location)
	rt := router.New(router.Options{
		Gateway:   gateway,
		Store:     store,
		Activator: pipeline,
		History:   history,
		Document:  page,
		Logger:    r.logger,
	})

	err := rt.Initialize(ctx)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}

	p := page.Page()
	if p.Main == nil {
		return fmt.Errorf("%w: no chart rendered for %s", shared.ErrServiceUnavailable, history.Location())
	}

	view := chartView{
		Location: history.Location().String(),
		Title:    p.Title,
		Genre:    p.Genre,
		Rank:     store.CurrentColumn(),
		Order:    store.CurrentOrder(),
		Main:     p.Main,
	}
	if view.Rank == "" {
		view.Rank = rt.DefaultRank()
	}
	if cmd.Bool("services") {
		view.Metadata = p.Metadata
		for _, slot := range p.Slots {
			if slot != nil {
				view.Services = append(view.Services, slot.Playlist)
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(view, cmd.Bool("pretty"))
	}

	r.writePlainHeader(p.Title)
	r.writePlain("Location: %s\n", view.Location)
	r.writePlain("Rank:     %s (%s)\n\n", rt.RankDisplayName(view.Rank), view.Order)
	r.writeTracks(p.Main.Tracks)

	if cmd.Bool("services") {
		for i, slot := range p.Slots {
			if slot == nil {
				if p.Metadata != nil && i < len(p.Metadata.ServiceOrder) {
					r.writePlainln("%s: unavailable", p.Metadata.ServiceOrder[i])
				}
				continue
			}
			name := slot.Descriptor.PlaylistName
			if name == "" {
				name = slot.Service
			}
			r.writePlainln("%s (%d tracks)", name, len(slot.Playlist.Tracks))
			r.writeTracks(slot.Playlist.Tracks)
		}
	}
	return nil
}

func (r *Runner) writeTracks(tracks []models.Track) {
	for i, t := range tracks {
		pos := t.Position
		if pos == 0 {
			pos = i + 1
		}
		plays := ""
		if t.TotalCurrentPlayCount != nil {
			plays = formatter.Abbreviate(*t.TotalCurrentPlayCount)
		}
		r.writePlain("%3d. %-40s %-28s %8s\n", pos, truncate(t.TrackName, 40), truncate(t.ArtistName, 28), plays)
	}
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

// Export writes the selected charts to disk with progress reporting.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	gateway := r.client()
	defer r.close()

	opts := tasks.ExportOptions{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		Genres:     cmd.StringSlice("genre"),
		Services:   cmd.StringSlice("service"),
		Rank:       cmd.String("rank"),
		Covers:     cmd.Bool("covers"),
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = r.config.API.RateLimit
	}

	exporter := tasks.NewExporter(gateway, r.logger)

	progress := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	result, err := exporter.Export(ctx, progress, opts)
	close(progress)
	<-done

	if err != nil && result == nil {
		return fmt.Errorf("export failed: %w", err)
	}

	r.writePlainHeader("Export Summary")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Charts:    %d\n", result.TotalCharts)
	r.writePlain("Succeeded: %d\n", result.SuccessfulExports)
	r.writePlain("Failed:    %d\n", result.FailedExports)
	if result.ManifestPath != "" {
		r.writePlain("Manifest:  %s\n", result.ManifestPath)
	}

	failed := []string{}
	for _, res := range result.Results {
		if !res.Success {
			failed = append(failed, fmt.Sprintf("  %s: %v", res.Name, res.Error))
		}
	}
	if len(failed) > 0 {
		r.writePlainln("Failures:")
		r.writePlain("%s\n", strings.Join(failed, "\n"))
	}

	return err
}
