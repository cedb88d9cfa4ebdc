// Package cli утилита оператора леджера.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/video-credits/internal/app/bootstrap"
	"github.com/magabrotheeeer/video-credits/internal/config"
	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/services/settlement"
)

// LedgerOps операции леджера, доступные оператору.
type LedgerOps interface {
	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	SyncProfileCredits(ctx context.Context, userID string) (int, error)
	GrantCredits(ctx context.Context, userID string, amount int, description, paymentID string) (*models.CreditTransaction, error)
}

// ReconcileOps разовая сверка платежей.
type ReconcileOps interface {
	Reconcile(ctx context.Context) (settlement.ReconcileReport, error)
}

// Services сервисы, открытые для одной команды.
type Services struct {
	Ledger     LedgerOps
	Settlement ReconcileOps
	Close      func()
}

// OpenFunc открывает сервисы по конфигу.
type OpenFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error)

// Env окружение команд. Поля Config и Open можно подменить в тестах.
type Env struct {
	ConfigPath string
	Config     *config.Config
	Logger     *slog.Logger
	Open       OpenFunc
	Events     EventsFunc
}

// OpenBootstrap открывает настоящие хранилище и сервисы.
func OpenBootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	deps, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Services{
		Ledger:     deps.Ledger,
		Settlement: deps.Settlement,
		Close:      deps.Close,
	}, nil
}

func (e *Env) loadConfig() error {
	if e.Config != nil {
		return nil
	}
	path := e.ConfigPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return errors.New("config path is not set: use --config or CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	e.Config = cfg
	return nil
}

// withServices открывает сервисы, выполняет fn и закрывает их.
func (e *Env) withServices(ctx context.Context, fn func(*Services) error) error {
	if err := e.loadConfig(); err != nil {
		return err
	}
	svc, err := e.Open(ctx, e.Config, e.Logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if svc.Close != nil {
		defer svc.Close()
	}
	return fn(svc)
}

// NewRootCmd собирает дерево команд.
func NewRootCmd(e *Env) *cobra.Command {
	if e.Logger == nil {
		e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.Open == nil {
		e.Open = OpenBootstrap
	}
	if e.Events == nil {
		e.Events = OpenBroker
	}

	root := &cobra.Command{
		Use:           "billingctl",
		Short:         "Operator tool for the video credits ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&e.ConfigPath, "config", "c", "", "config file path (defaults to CONFIG_PATH)")

	root.AddCommand(
		newPlansCmd(e),
		newSyncCreditsCmd(e),
		newGrantCreditsCmd(e),
		newReconcileCmd(e),
		newTokenCmd(e),
		newEventsCmd(e),
	)
	return root
}

// Execute запускает утилиту с аргументами командной строки.
func Execute(ctx context.Context, logger *slog.Logger) error {
	return NewRootCmd(&Env{Logger: logger}).ExecuteContext(ctx)
}
