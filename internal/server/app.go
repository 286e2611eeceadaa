// Package server initializes and runs the eAmuse server: it selects the
// identity store and the traffic archive backend from configuration, wires
// the envelope pipeline to the service registry, and handles graceful
// shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/573dev/gfdm-server/internal/eamuse/archive"
	"github.com/573dev/gfdm-server/internal/eamuse/codec"
	"github.com/573dev/gfdm-server/internal/eamuse/envelope"
	"github.com/573dev/gfdm-server/internal/logging"
	"github.com/573dev/gfdm-server/internal/server/config"
	"github.com/573dev/gfdm-server/internal/server/identity"
	"github.com/573dev/gfdm-server/internal/server/services"
	"github.com/573dev/gfdm-server/internal/server/web"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *web.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	store, err := newStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("identity store init error: %w", err)
	}

	sink, err := newSink(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("traffic archive init error: %w", err)
	}

	env := envelope.New(codec.NewTextCodec(), sink, logger)
	registry := services.NewRegistry(store, services.FacilityInfo{
		ID:      c.FacilityID,
		Country: c.FacilityCountry,
		Region:  c.FacilityRegion,
		Name:    c.FacilityName,
	}, logger)
	directory := services.NewDirectory(c.ServiceURL, c.NTPURL)

	router := web.NewRouter(web.NewGateway(env, registry, directory, logger))

	serverConfig := web.DefaultServerConfig()
	serverConfig.Addr = c.ListenAddr
	server := web.NewServer(router, serverConfig, logger)

	return &App{config: c, logger: logger, server: server}, nil
}

// newStore picks the identity backend. An empty DSN means the in-memory
// store, which is enough for a bench cabinet but forgets every card on
// restart.
func newStore(ctx context.Context, c *config.Config, logger logging.Logger) (identity.Store, error) {
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database DSN configured, using in-memory identity store")
		return identity.NewMemoryStore(), nil
	}
	return identity.NewPostgresStore(ctx, c.DatabaseDSN)
}

func newSink(ctx context.Context, c *config.Config) (archive.Sink, error) {
	switch c.ArchiveMode {
	case config.ArchiveDir:
		return archive.NewDirSink(c.ArchiveDir)
	case config.ArchiveS3:
		return archive.NewS3Sink(ctx, archive.S3Options{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	case config.ArchiveNone:
		return archive.NopSink{}, nil
	default:
		return nil, fmt.Errorf("unknown archive mode %q", c.ArchiveMode)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Start(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	<-ctx.Done()
	if err := app.server.Shutdown(context.Background()); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	wg.Wait()
}
