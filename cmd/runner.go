package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetrack/internal/docstore"
	"github.com/desertthunder/tubetrack/internal/formatter"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/services"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// LoginFunc runs an interactive sign-in and returns the resolved identity.
type LoginFunc func(ctx context.Context) (models.Identity, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	fetcher    services.Fetcher
	remote     *docstore.Remote
	login      LoginFunc
	logger     *log.Logger
	output     io.Writer
	palette    *formatter.Palette
	env        *env
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	// ConfigPath is loaded before any command runs when the file exists.
	ConfigPath string
	// Fetcher overrides the metadata proxy client.
	Fetcher services.Fetcher
	// Remote overrides the configured remote store; it is not closed by the runner.
	Remote *docstore.Remote
	// Login overrides the Google browser sign-in.
	Login  LoginFunc
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		fetcher:    opts.Fetcher,
		remote:     opts.Remote,
		login:      opts.Login,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    formatter.DefaultPalette,
	}
	if r.login == nil {
		r.login = func(ctx context.Context) (models.Identity, error) {
			return newGoogleLogin(r).Run(ctx)
		}
	}
	return r
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "tubetrack",
		Usage:   "Track progress through YouTube playlists, on this device or in your account",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Sources: cli.EnvVars("TUBETRACK_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.loadConfig,
		Commands: r.register(),
		Writer:   r.output,
	}
}

// loadConfig reads the configuration file, if any, and applies the log level.
//
// A missing default file keeps the built-in defaults; a missing --config file is an error.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	explicit := path != ""
	if !explicit {
		path = r.configPath
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return ctx, err
			}
			r.config = config
			r.logger.Debug("loaded config", "path", path)
		} else if explicit && errors.Is(err, os.ErrNotExist) {
			return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
	}

	if err := shared.ConfigureLogger(r.logger, r.config.Log.Level); err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistCommand, statsCommand, watchCommand, migrateCommand,
		profileCommand, friendsCommand, goalsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// session opens the on-device store, the remote store and the session controller on first use.
func (r *Runner) session(ctx context.Context) (*env, error) {
	if r.env != nil {
		return r.env, nil
	}
	e, err := openEnv(ctx, r.config, r.remote, r.fetcher, r.logger)
	if err != nil {
		return nil, err
	}
	r.env = e
	r.printProgress()
	if err := e.controller.LastError(); err != nil {
		r.reportMigrationError(err)
	}
	return e, nil
}

// Close releases everything opened by [Runner.session].
func (r *Runner) Close(ctx context.Context) error {
	if r.env == nil {
		return nil
	}
	err := r.env.Close(ctx)
	r.env = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
	r.writePlain("%v\n", r.palette.Title.Render(title))
	r.writePlain("═══════════════════════════════════════\n")
}
