package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunemeld/internal/repositories"
	"github.com/desertthunder/tunemeld/internal/shared"
	"github.com/desertthunder/tunemeld/internal/state"
)

// Setup creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
			r.config = config
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	statuses, err := shared.MigrationStatuses(db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	r.writePlainHeader("Setup Complete")
	r.writePlain("Config:   %s\n", configPath)
	r.writePlain("Database: %s\n", config.Database.Path)
	r.writePlainln("Migrations:")
	for _, s := range statuses {
		mark := "✗"
		if s.Applied {
			mark = "✓"
		}
		r.writePlain("  %s %03d %s\n", mark, s.Version, s.Name)
	}
	return nil
}

// openDatabase opens the configured database with migrations applied.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", r.config.Database.Path, err)
	}
	return db, nil
}

// themeStore returns a store whose theme is persisted in the preferences table.
func (r *Runner) themeStore() (*state.Store, func(), error) {
	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, err
	}
	store := state.NewStore(state.Options{
		Preferences: repositories.NewPreferenceRepository(db),
		Logger:      r.logger,
	})
	return store, func() { db.Close() }, nil
}

// ThemeShow prints the persisted theme, or the time-based default when none is stored.
func (r *Runner) ThemeShow(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.themeStore()
	if err != nil {
		return err
	}
	defer done()

	theme := store.LoadTheme(ctx, r.now())
	return r.writePlain("%s\n", theme)
}

// ThemeSet persists the theme named by the first argument.
func (r *Runner) ThemeSet(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("%w: theme (dark or light)", shared.ErrMissingArgument)
	}

	theme, err := state.ParseTheme(cmd.Args().First())
	if err != nil {
		return err
	}

	store, done, err := r.themeStore()
	if err != nil {
		return err
	}
	defer done()

	if err := store.SetTheme(ctx, theme); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	r.logger.Debug("theme saved", "theme", theme)
	return r.writePlain("Theme set to %s\n", theme)
}

// ThemeToggle flips the persisted theme.
func (r *Runner) ThemeToggle(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.themeStore()
	if err != nil {
		return err
	}
	defer done()

	store.LoadTheme(ctx, r.now())
	theme, err := store.ToggleTheme(ctx)
	if err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return r.writePlain("Theme set to %s\n", theme)
}

// History lists the most recently visited chart locations.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRouteHistoryRepository(db, 0)

	if cmd.Bool("clear") {
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		return r.writePlain("History cleared\n")
	}

	visits, err := repo.List(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(visits, false)
	}

	if len(visits) == 0 {
		return r.writePlain("No visits recorded\n")
	}

	r.writePlainHeader(fmt.Sprintf("Recent Locations (%d)", len(visits)))
	for _, v := range visits {
		r.writePlain("%s  %-10s %-16s %s\n", v.VisitedAt.Local().Format("2006-01-02 15:04"), v.Genre, v.Rank, v.Location)
	}
	return nil
}

// lastVisit returns the most recent recorded location, or "" when there is none.
func lastVisit(ctx context.Context, repo *repositories.RouteHistoryRepository) (string, error) {
	v, err := repo.Last(ctx)
	if errors.Is(err, repositories.ErrNoVisits) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v.Location, nil
}
