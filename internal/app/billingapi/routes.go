// Package billingapi собирает HTTP API леджера кредитов.
package billingapi

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/video-credits/internal/docs" // swagger spec
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/checkout/create"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/checkout/settle"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/credits/balance"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/credits/resync"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/credits/transactions"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/credits/use"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/health"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/payment/paymentlist"
	planlist "github.com/magabrotheeeer/video-credits/internal/http/handlers/plans/list"
	subcreate "github.com/magabrotheeeer/video-credits/internal/http/handlers/subscription/create"
	subread "github.com/magabrotheeeer/video-credits/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/videos/generate"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/videos/jobstatus"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/videos/narration"
	"github.com/magabrotheeeer/video-credits/internal/http/handlers/videos/store"
	"github.com/magabrotheeeer/video-credits/internal/http/middlewarectx"
	"github.com/magabrotheeeer/video-credits/internal/services/ledger"
	"github.com/magabrotheeeer/video-credits/internal/services/settlement"
	"github.com/magabrotheeeer/video-credits/internal/services/video"
)

// Services сервисы, которые обслуживают маршруты API.
type Services struct {
	Ledger     *ledger.Service
	Settlement *settlement.Service
	Video      *video.Service
	Tokens     middlewarectx.TokenParser
	DB         health.Pinger
}

// RateLimit параметры ограничения частоты запросов на IP.
type RateLimit struct {
	RPS   float64
	Burst int
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services, limit RateLimit) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middleware.Timeout(60*time.Second),
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, limit.RPS, limit.Burst))

		// Открытые конечные точки
		r.Get("/plans", planlist.New(logger, svc.Ledger).ServeHTTP)
		// вызывается со страницы успешной оплаты, сессия Stripe сама является доказательством
		r.Get("/checkout/settle", settle.New(logger, svc.Settlement).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Tokens, logger))

			r.Get("/subscription", subread.New(logger, svc.Ledger).ServeHTTP)
			r.Post("/subscription", subcreate.New(logger, svc.Ledger).ServeHTTP)

			r.Get("/credits", balance.New(logger, svc.Ledger).ServeHTTP)
			r.Post("/credits/use", use.New(logger, svc.Ledger).ServeHTTP)
			r.Post("/credits/sync", resync.New(logger, svc.Ledger).ServeHTTP)
			r.Get("/credits/transactions", transactions.New(logger, svc.Ledger).ServeHTTP)

			r.Post("/checkout", create.New(logger, svc.Settlement).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, svc.Settlement).ServeHTTP)

			r.Post("/videos", store.New(logger, svc.Video).ServeHTTP)

			// Генерация доступна только с действующей подпиской
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.SubscriptionRequired(logger, svc.Ledger))
				r.Post("/videos/narration", narration.New(logger, svc.Video).ServeHTTP)
				r.Post("/videos/generate", generate.New(logger, svc.Video).ServeHTTP)
				r.Get("/videos/jobs/{id}", jobstatus.New(logger, svc.Video).ServeHTTP)
			})
		})
	})

	healthHandler := health.New(logger, svc.DB)
	r.Get("/api/v1/health", healthHandler.ServeHTTP)
	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
