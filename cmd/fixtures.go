package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunemeld/internal/fixtures"
	"github.com/desertthunder/tunemeld/internal/server"
)

// FixturesServe serves the fixture chart API until the context is cancelled.
//
// Point api.base_url at the printed address to run the client offline.
func (r *Runner) FixturesServe(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("data") {
		cfg.Fixtures = cmd.String("data")
	}

	chart, err := r.loadFixtures(cfg.Fixtures)
	if err != nil {
		return err
	}

	handler := server.NewFixtureHandler(chart, r.logger)
	addr := cfg.Addr()

	r.writePlain("Serving %d genres on http://%s\n", len(chart.GenreNames()), addr)
	r.writePlain("Routes: %v\n", handler.Routes())

	return server.Serve(ctx, addr, server.NewFixtureRouter(handler, r.logger), r.logger)
}

func (r *Runner) loadFixtures(path string) (*fixtures.Chart, error) {
	if path == "" {
		chart, err := fixtures.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load built-in fixtures: %w", err)
		}
		return chart, nil
	}

	r.logger.Info("loading fixtures", "path", path)
	chart, err := fixtures.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures from %s: %w", path, err)
	}
	return chart, nil
}
