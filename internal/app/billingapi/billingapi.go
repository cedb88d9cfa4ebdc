package billingapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/video-credits/internal/app/bootstrap"
	"github.com/magabrotheeeer/video-credits/internal/config"
	"github.com/magabrotheeeer/video-credits/internal/lib/jwt"
	"github.com/magabrotheeeer/video-credits/internal/services/video"
	"github.com/magabrotheeeer/video-credits/internal/videogen"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	deps   *bootstrap.Deps
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var generator video.Generator
	if cfg.VideoAPI.BaseURL != "" {
		generator = videogen.NewClient(videogen.Config{
			BaseURL:          cfg.VideoAPI.BaseURL,
			Timeout:          cfg.VideoAPI.Timeout,
			FailureThreshold: cfg.FailureThreshold,
			OpenTimeout:      cfg.OpenTimeout,
		}, logger)
	} else {
		logger.Warn("video api url is empty, generation endpoints will return 503")
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Ledger:     deps.Ledger,
		Settlement: deps.Settlement,
		Video:      video.New(deps.Ledger, deps.Storage, generator, logger),
		Tokens:     jwt.NewMaker(cfg.JWTSecretKey, cfg.Audience, time.Hour),
		DB:         deps.Storage,
	}, RateLimit{RPS: cfg.RateLimit, Burst: cfg.RateBurst})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		deps:   deps,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.deps.Close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.deps.Close()
		return err
	}
}
