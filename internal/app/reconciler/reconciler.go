// Package reconciler фоновый воркер леджера: сверка платежей без начисления
// и уведомления об окончании подписок по расписанию.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/magabrotheeeer/video-credits/internal/app/bootstrap"
	"github.com/magabrotheeeer/video-credits/internal/config"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/services/notifier"
	"github.com/magabrotheeeer/video-credits/internal/services/settlement"
)

// Reconciler доводит начисление по записанным платежам.
type Reconciler interface {
	Reconcile(ctx context.Context) (settlement.ReconcileReport, error)
}

// Notifier рассылает уведомления об окончании подписок.
type Notifier interface {
	NotifyExpiring(ctx context.Context) (int, error)
}

// Jobs задачи воркера. Nil Notifier отключает уведомления.
type Jobs struct {
	Reconciler     Reconciler
	ReconcileEvery time.Duration
	Notifier       Notifier
	NotifyEvery    time.Duration
}

// App представляет приложение фонового воркера.
type App struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	deps      *bootstrap.Deps
}

// New создает воркер и регистрирует задачи.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	jobs := Jobs{
		Reconciler:     deps.Settlement,
		ReconcileEvery: cfg.Interval,
	}
	if deps.Publisher != nil {
		jobs.Notifier = notifier.New(deps.Storage, deps.Publisher, logger, cfg.NotifyWindow)
		jobs.NotifyEvery = cfg.NotifyInterval
	} else {
		logger.Warn("rabbitmq is not configured, expiry notifications disabled")
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := RegisterJobs(ctx, scheduler, logger, jobs); err != nil {
		_ = scheduler.Shutdown()
		deps.Close()
		return nil, err
	}

	return &App{
		scheduler: scheduler,
		logger:    logger,
		deps:      deps,
	}, nil
}

// RegisterJobs добавляет задачи в планировщик. Каждая задача выполняется сразу
// после старта, затем с заданным интервалом; запуски одной задачи не пересекаются.
func RegisterJobs(ctx context.Context, s gocron.Scheduler, logger *slog.Logger, jobs Jobs) error {
	_, err := s.NewJob(
		gocron.DurationJob(jobs.ReconcileEvery),
		gocron.NewTask(func() { runReconcile(ctx, logger, jobs.Reconciler) }),
		gocron.WithName("payments-reconcile"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create reconcile job: %w", err)
	}

	if jobs.Notifier == nil {
		return nil
	}
	_, err = s.NewJob(
		gocron.DurationJob(jobs.NotifyEvery),
		gocron.NewTask(func() { runNotify(ctx, logger, jobs.Notifier) }),
		gocron.WithName("expiry-notifications"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create notification job: %w", err)
	}
	return nil
}

func runReconcile(ctx context.Context, logger *slog.Logger, r Reconciler) {
	report, err := r.Reconcile(ctx)
	if err != nil {
		logger.Error("reconcile failed", sl.Err(err))
		return
	}
	if report.Checked > 0 {
		logger.Info("reconcile finished",
			slog.Int("checked", report.Checked),
			slog.Int("granted", report.Granted),
			slog.Int("failed", report.Failed),
		)
	}
}

func runNotify(ctx context.Context, logger *slog.Logger, n Notifier) {
	if _, err := n.NotifyExpiring(ctx); err != nil {
		logger.Error("expiry notification failed", sl.Err(err))
	}
}

// Run запускает планировщик и ждет отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("reconciler starting", slog.Int("jobs", len(a.scheduler.Jobs())))
	a.scheduler.Start()

	<-ctx.Done()

	a.logger.Info("shutting down reconciler")
	err := a.scheduler.Shutdown()
	a.deps.Close()
	return err
}
