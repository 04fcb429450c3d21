package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunemeld/internal/repositories"
	"github.com/desertthunder/tunemeld/internal/router"
	"github.com/desertthunder/tunemeld/internal/shared"
	"github.com/desertthunder/tunemeld/internal/state"
	"github.com/desertthunder/tunemeld/internal/tasks"
	"github.com/desertthunder/tunemeld/internal/ui"
)

// TUI launches the interactive chart browser.
//
// Preferences and visits are persisted when the database opens; otherwise the session runs in memory.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.UI.LogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	gateway := r.client()
	defer r.close()

	var (
		prefs  state.Preferences = state.NewMemoryPreferences()
		visits router.VisitRecorder
		start  = cmd.String("url")
	)

	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("running without persistence", "error", err)
	} else {
		defer db.Close()
		prefs = repositories.NewPreferenceRepository(db)
		history := repositories.NewRouteHistoryRepository(db, 0)
		visits = history

		if start == "" && cmd.Bool("resume") {
			if start, err = lastVisit(ctx, history); err != nil {
				r.logger.Warn("failed to read last visit", "error", err)
			}
		}
	}
	if start == "" {
		start = r.config.UI.StartURL
	}

	bridge := ui.NewBridge()
	store := state.NewStore(state.Options{
		Preferences: prefs,
		Surface:     bridge,
		Resolver:    bridge,
		Logger:      r.logger,
	})
	pipeline := tasks.NewPipeline(tasks.PipelineOptions{
		Gateway:  gateway,
		Store:    store,
		Renderer: bridge,
		Logger:   r.logger,
	})
	rt := router.New(router.Options{
		Gateway:     gateway,
		Store:       store,
		Activator:   pipeline,
		History:     router.NewMemoryHistory(start),
		Document:    bridge,
		Opener:      bridge,
		Visits:      visits,
		Logger:      r.logger,
		OnInitError: bridge.InitFailed,
	})

	r.logger.Info("starting tui", "start", start, "api", r.config.API.BaseURL)

	model := ui.NewModel(ctx, ui.Options{
		Router:  rt,
		Store:   store,
		Gateway: gateway,
		Bridge:  bridge,
		Logger:  r.logger,
		Now:     r.now,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
