package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunemeld/internal/services"
	"github.com/desertthunder/tunemeld/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	gateway    services.DataGateway
	cache      *services.PlayCountCache
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// Gateway replaces the GraphQL client built from the config.
	Gateway services.DataGateway
	Logger  *log.Logger
	Output  io.Writer
	Now     func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		gateway:    opts.Gateway,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,
	}
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "tunemeld",
		Usage:   "Browse aggregated music charts from the terminal",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.before,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, tuiCommand, genresCommand, ranksCommand, chartCommand, exportCommand,
		themeCommand, historyCommand, fixturesCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the config unless one was injected, and applies the log level.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil || cmd.IsSet("config") {
		path := cmd.String("config")
		config, err := shared.LoadConfigOrDefault(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.configPath = path
	}

	if cmd.Bool("debug") || r.config.UI.Debug {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	level := r.logger.GetLevel()
	r.logger = logger
	shared.SetLogLevel(r.logger, level)
}

// client returns the injected gateway or lazily builds the GraphQL client from the config.
func (r *Runner) client() services.DataGateway {
	if r.gateway == nil {
		r.cache = services.NewPlayCountCache(r.config.Cache.PlayCountSize, r.config.Cache.PlayCountTTL())
		r.gateway = services.NewGraphQLClientFromConfig(r.config.API, r.cache, r.logger)
	}
	return r.gateway
}

// close releases resources created by [Runner.client].
func (r *Runner) close() {
	if r.cache != nil {
		r.cache.Stop()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
