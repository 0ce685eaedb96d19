// Package server wires the auth server together: storage backend, token
// issuer, AuthService, the HTTP API and the gRPC health endpoint. It also
// handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	servers map[string]runner
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if !c.RefreshOutlivesAccess() {
		logger.Warn(ctx, "refresh token lifetime does not exceed access token lifetime",
			"access_ttl", c.AccessTokenValidityDuration.String(),
			"refresh_ttl", c.RefreshTokenValidityDuration.String())
	}

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTokenValidityDuration,
		RefreshTTL:    c.RefreshTokenValidityDuration,
		Issuer:        c.TokenIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("token issuer error: %w", err)
	}

	rm, err := repomanager.New(c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, err
	}

	svc := services.NewAuthService(rm.Users(), issuer, auth.NewBcryptHasher(c.PasswordHashCost), logger)

	return &App{
		config: c,
		logger: logger,
		repos:  rm,
		servers: map[string]runner{
			"http": httpapi.NewServer(c.EndpointAddrHTTP, logger, svc, issuer, rm.Users()),
			"grpc": gs.NewGRPCServer(c.EndpointAddrGRPC, logger, rm.Users()),
		},
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// startServer runs srv and cancels the whole app if it fails.
func (app *App) startServer(ctx context.Context, cancelFunc context.CancelFunc, name string, srv runner) {
	if err := srv.Run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or one of the servers
// fails, then waits for all servers to stop and closes the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	for name, srv := range app.servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startServer(ctx, cancelFunc, name, srv)
		}()
	}

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(context.Background(), "error closing store", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
