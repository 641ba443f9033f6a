package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/oneclicksub/creatorctl/internal/channels"
	"github.com/oneclicksub/creatorctl/internal/config"
	"github.com/oneclicksub/creatorctl/internal/db"
	"github.com/oneclicksub/creatorctl/internal/jobs"
	"github.com/oneclicksub/creatorctl/internal/platform"
	"github.com/oneclicksub/creatorctl/internal/store"
)

// ErrNotLoggedIn is returned when no API token is configured. The token
// comes from an external auth flow; without one no call can be made.
var ErrNotLoggedIn = errors.New("no API token configured; set api.token in config.yml or CREATOR_API_TOKEN")

// App holds the core components of the application that are shared
// between the CLI commands.
type App struct {
	cfg        *config.Config
	database   *sql.DB
	client     *platform.Client
	jobManager *jobs.JobManager
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, running
// migrations, and building the platform client.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	client, err := platform.New(cfg.API.BaseURL, cfg.API.Token)
	if err != nil {
		if errors.Is(err, platform.ErrNoToken) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	app := &App{
		cfg:        cfg,
		database:   database,
		client:     client,
		jobManager: jobs.NewManager(),
	}
	app.registerJobs()

	log.Println("Core application setup complete.")
	return app, nil
}

// registerJobs wires the background jobs to their tasks.
func (a *App) registerJobs() {
	a.jobManager.Register(jobs.ChannelRefreshJob, func(ctx jobs.JobContext) {
		svc := channels.NewService(ctx.Client(), store.New(ctx.DB()))
		if err := svc.RefreshAll(context.Background()); err != nil {
			log.Printf("Channel refresh failed: %v", err)
			ctx.JobManager().Fail(jobs.ChannelRefreshJob, err.Error())
		}
	})
}

// Close gracefully closes the application's resources, like the DB
// connection.
func (a *App) Close() {
	if a.database != nil {
		a.database.Close()
	}
}

func (a *App) Config() *config.Config       { return a.cfg }
func (a *App) DB() *sql.DB                  { return a.database }
func (a *App) Client() *platform.Client     { return a.client }
func (a *App) JobManager() *jobs.JobManager { return a.jobManager }

// Store returns a store bound to the application's database.
func (a *App) Store() *store.Store { return store.New(a.database) }
