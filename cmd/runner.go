package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/app"
	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The [app.App] is built on first use so that commands such as setup never open the store.
type Runner struct {
	configPath string
	config     *shared.Config
	appOpts    app.Opts
	app        *app.App
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	ConfigPath string
	Config     *shared.Config
	// App overrides parts of the graph, e.g. the credential store or OAuth endpoint in tests.
	App    app.Opts
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		configPath: opts.ConfigPath,
		config:     opts.Config,
		appOpts:    opts.App,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger; the app, if already built, keeps its own.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the app if one was built.
func (r *Runner) Close() error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close()
	r.app = nil
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, libraryCommand, playlistsCommand,
		searchCommand, artistCommand, mediaCommand, browseCommand, playCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the config file once. A missing file falls back to defaults plus environment overrides.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}
	if err := shared.LoadDotEnv(".env"); err != nil {
		r.logger.Warn("failed to load .env", "error", err)
	}

	path := r.configPath
	if cmd != nil && cmd.String("config") != "" {
		path = cmd.String("config")
	}
	if path == "" {
		path = shared.DefaultConfigPath()
	}

	config, err := shared.LoadConfig(path)
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Debug("config file not found, using defaults", "path", path)
		config = shared.DefaultConfig()
		config.ApplyEnv()
		if err := config.Validate(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	r.configPath = path
	r.config = config
	return config, nil
}

// ensureApp builds the application graph on first use.
func (r *Runner) ensureApp(cmd *cli.Command) (*app.App, error) {
	if r.app != nil {
		return r.app, nil
	}
	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	opts := r.appOpts
	opts.Config = config
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	a, err := app.New(opts)
	if err != nil {
		return nil, err
	}
	r.app = a
	return a, nil
}

// signedIn builds the app and restores the stored session, failing when there is none.
func (r *Runner) signedIn(ctx context.Context, cmd *cli.Command) (*app.App, error) {
	a, err := r.ensureApp(cmd)
	if err != nil {
		return nil, err
	}
	if s := a.Restore(ctx); !s.Authenticated() {
		return nil, fmt.Errorf("%w: run 'encore auth login' first", shared.ErrNotAuthenticated)
	}
	return a, nil
}

// outputFormat resolves --format, with --json as a shorthand.
func outputFormat(cmd *cli.Command) (formatter.Format, error) {
	if cmd.Bool("json") {
		return formatter.JSON, nil
	}
	return formatter.ParseFormat(cmd.String("format"))
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
