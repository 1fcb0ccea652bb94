package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tamer/internal/match"
	"github.com/desertthunder/tamer/internal/media"
	"github.com/desertthunder/tamer/internal/repositories"
	"github.com/desertthunder/tamer/internal/services"
	"github.com/desertthunder/tamer/internal/shared"
	"github.com/desertthunder/tamer/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Backends left nil in [RunnerOpts] are built from the configuration on first use.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	catalog    tasks.Catalog
	primary    tasks.PrimarySearch
	secondary  tasks.SecondarySearch
	fetcher    tasks.FetchBackend
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Catalog    tasks.Catalog
	Primary    tasks.PrimarySearch
	Secondary  tasks.SecondarySearch
	Fetcher    tasks.FetchBackend
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		catalog:    opts.Catalog,
		primary:    opts.Primary,
		secondary:  opts.Secondary,
		fetcher:    opts.Fetcher,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, downloadCommand, resolveCommand, setupCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// catalogService returns the injected catalog or a Spotify client built from credentials.
func (r *Runner) catalogService(ctx context.Context) (tasks.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	if !r.config.HasSpotifyCredentials() {
		return nil, fmt.Errorf("%w: set credentials.spotify or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET", shared.ErrMissingCredentials)
	}

	svc, err := services.NewSpotifyService(ctx, services.SpotifyOpts{
		ClientID:     r.config.Credentials.Spotify.ClientID,
		ClientSecret: r.config.Credentials.Spotify.ClientSecret,
		RateLimit:    r.config.Search.RateLimit,
	})
	if err != nil {
		return nil, err
	}
	r.catalog = svc
	return svc, nil
}

func (r *Runner) resolver(ctx context.Context) *tasks.Resolver {
	if r.primary == nil {
		r.primary = services.NewYTMusicService(nil)
	}
	if r.secondary == nil {
		r.secondary = services.NewSecondarySearch(ctx, r.config.Credentials.YouTube.APIKey, r.logger)
	}

	r.logger.Debug("search backends", "primary", services.NameOf(r.primary), "secondary", services.NameOf(r.secondary))

	var limiter *rate.Limiter
	if r.config.Search.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.config.Search.RateLimit), 1)
	}

	return tasks.NewResolver(tasks.ResolverOpts{
		Primary:   r.primary,
		Secondary: r.secondary,
		Engine:    match.NewEngine(r.config.Search.MatchThreshold),
		Limiter:   limiter,
		Logger:    r.logger,
	})
}

func (r *Runner) fetchBackend() tasks.FetchBackend {
	if r.fetcher == nil {
		r.fetcher = media.NewYtdlpBackend(media.YtdlpOpts{
			Executable: r.config.Download.YtdlpPath,
			Install:    r.config.Download.InstallYtdlp,
			Logger:     r.logger,
		})
	}
	return r.fetcher
}

// openDatabase opens the configured database and applies pending migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// history opens the history repository when enabled. The returned close func is never nil.
func (r *Runner) history() (tasks.HistoryRecorder, func(), error) {
	if !r.config.Database.History {
		return nil, func() {}, nil
	}
	db, err := r.openDatabase()
	if err != nil {
		return nil, func() {}, err
	}
	return repositories.NewHistoryRepository(db), func() { db.Close() }, nil
}

// newOrchestrator wires the download pipeline around transport.
func (r *Runner) newOrchestrator(ctx context.Context, transport tasks.Transport, history tasks.HistoryRecorder, progress chan<- tasks.ProgressUpdate) (*tasks.Orchestrator, error) {
	catalog, err := r.catalogService(ctx)
	if err != nil {
		return nil, err
	}
	attemptTimeout, err := r.config.AttemptTimeout()
	if err != nil {
		return nil, err
	}
	retryDelay, err := r.config.RetryDelay()
	if err != nil {
		return nil, err
	}

	return tasks.NewOrchestrator(tasks.OrchestratorOpts{
		Catalog:        catalog,
		Resolver:       r.resolver(ctx),
		Executor:       tasks.NewExecutor(r.fetchBackend(), r.config.Download.Dir),
		Transport:      transport,
		History:        history,
		Progress:       progress,
		Attempts:       r.config.Download.Attempts,
		AttemptTimeout: attemptTimeout,
		RetryDelay:     retryDelay,
		Logger:         r.logger,
	}), nil
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
