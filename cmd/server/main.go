// Command server runs the identity HTTP API.
//
//	@title						Bizguard Identity API
//	@version					1.0
//	@description				Registration, login and shop assignment for the back-office staff of the boutique and house-decor shops.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bizguardian/manager/internal/api"
	"github.com/bizguardian/manager/internal/app"
	"github.com/bizguardian/manager/internal/pkg/config"
	"github.com/bizguardian/manager/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "bizguard",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := app.NewBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise backend")
	}

	e := api.NewRouter(api.Deps{
		Identity: backend.Identity,
		Health:   backend.Health,
		Log:      logger.For("http"),
	})

	backend.Dispatcher.Start(context.WithoutCancel(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreDriver).
			Str("sessions", cfg.SessionDriver).
			Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := e.Shutdown(shutdownCtx)

		// no handler can enqueue any more; deliver what is buffered
		backend.Dispatcher.Close()
		backend.Dispatcher.Wait()
		return errors.Join(err, backend.Close(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
