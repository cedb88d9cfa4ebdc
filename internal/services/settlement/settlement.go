// Package settlement урегулирует оплаченные сессии Stripe Checkout: записывает
// платеж ровно один раз и начисляет по нему кредиты через леджер.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/metrics"
	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/paymentprovider"
	"github.com/magabrotheeeer/video-credits/internal/services/ledger"
	"github.com/magabrotheeeer/video-credits/internal/storage"
)

var (
	ErrInvalidSettlement   = errors.New("settlement: invalid checkout session")
	ErrPaymentNotCompleted = errors.New("settlement: payment not completed")
)

// State этап урегулирования.
type State string

const (
	StatePending        State = "pending"
	StateVerified       State = "verified"
	StateAlreadySettled State = "already_settled"
	StateSettling       State = "settling"
	StateSettled        State = "settled"
	StateRejected       State = "rejected"
)

// Result итог урегулирования сессии.
type Result struct {
	State   State                 `json:"state"`
	Payment *models.PaymentRecord `json:"payment,omitempty"`
}

// Provider платежный провайдер.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req paymentprovider.CheckoutRequest) (*paymentprovider.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*paymentprovider.CheckoutSession, error)
}

// Ledger операции леджера, нужные для начисления.
type Ledger interface {
	GetPlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error)
	HasUnexpiredActiveSubscription(ctx context.Context, userID string) (bool, error)
	Policy() ledger.UpgradePolicy
	GrantPlan(ctx context.Context, userID, planID, paymentID string) (*models.UserSubscription, error)
	GrantCredits(ctx context.Context, userID string, amount int, description, paymentID string) (*models.CreditTransaction, error)
}

// Repository хранилище платежей.
type Repository interface {
	CreatePayment(ctx context.Context, p models.PaymentRecord) (*models.PaymentRecord, error)
	GetPaymentByExternalRef(ctx context.Context, ref string) (*models.PaymentRecord, error)
	ListPayments(ctx context.Context, userID string) ([]models.PaymentRecord, error)
	ListUngrantedPayments(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentRecord, error)
}

// Service сервис урегулирования платежей.
type Service struct {
	provider    Provider
	ledger      Ledger
	repo        Repository
	log         *slog.Logger
	gracePeriod time.Duration
	batchSize   int
	now         func() time.Time
}

// Options настройки сверки платежей.
type Options struct {
	GracePeriod time.Duration
	BatchSize   int
	Now         func() time.Time
}

// New создает сервис урегулирования.
func New(provider Provider, l Ledger, repo Repository, log *slog.Logger, opts Options) *Service {
	s := &Service{
		provider:    provider,
		ledger:      l,
		repo:        repo,
		log:         log,
		gracePeriod: opts.GracePeriod,
		batchSize:   opts.BatchSize,
		now:         opts.Now,
	}
	if s.batchSize <= 0 {
		s.batchSize = 100
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Settle урегулирует сессию оплаты sessionID. Повторный вызов для той же сессии
// возвращает состояние already_settled и ничего не начисляет.
func (s *Service) Settle(ctx context.Context, sessionID string) (Result, error) {
	const op = "settlement.Settle"
	log := s.log.With(slog.String("op", op), slog.String("session_id", sessionID))

	result := Result{State: StatePending}
	if sessionID == "" {
		return s.reject(result, fmt.Errorf("%s: %w: session id is empty", op, ErrInvalidSettlement))
	}

	session, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if errors.Is(err, paymentprovider.ErrSessionNotFound) {
		return s.reject(result, fmt.Errorf("%s: %w: %w", op, ErrInvalidSettlement, err))
	}
	if err != nil {
		metrics.Settlements.WithLabelValues(metrics.SettlementFailed).Inc()
		return result, fmt.Errorf("%s: %w", op, err)
	}

	if !session.Paid() {
		log.Info("checkout session is not paid",
			slog.String("status", session.Status),
			slog.String("payment_status", session.PaymentStatus),
		)
		return s.reject(result, fmt.Errorf("%s: %w", op, ErrPaymentNotCompleted))
	}

	payment, err := paymentFromSession(session)
	if err != nil {
		log.Warn("checkout session metadata is invalid", sl.Err(err))
		return s.reject(result, fmt.Errorf("%s: %w", op, err))
	}
	result.State = StateVerified

	existing, err := s.repo.GetPaymentByExternalRef(ctx, session.ID)
	if err == nil {
		log.Info("payment already settled", slog.String("payment_id", existing.ID))
		metrics.Settlements.WithLabelValues(metrics.SettlementAlreadySettled).Inc()
		return Result{State: StateAlreadySettled, Payment: existing}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		metrics.Settlements.WithLabelValues(metrics.SettlementFailed).Inc()
		return result, fmt.Errorf("%s: %w: %w", op, ledger.ErrBackendUnavailable, err)
	}

	if payment.PlanID != nil {
		_, err := s.ledger.GetPlan(ctx, *payment.PlanID)
		switch {
		case errors.Is(err, ledger.ErrPlanNotFound):
			// план удален из каталога: платеж будет начислен кредитами
			log.Warn("plan from checkout session not found", slog.String("plan_id", *payment.PlanID))
			payment.PlanID = nil
		case err != nil:
			metrics.Settlements.WithLabelValues(metrics.SettlementFailed).Inc()
			return result, fmt.Errorf("%s: %w", op, err)
		}
	}

	recorded, err := s.repo.CreatePayment(ctx, payment)
	if errors.Is(err, storage.ErrAlreadyExists) {
		log.Info("payment recorded concurrently")
		metrics.Settlements.WithLabelValues(metrics.SettlementAlreadySettled).Inc()
		existing, err := s.repo.GetPaymentByExternalRef(ctx, session.ID)
		if err != nil {
			existing = nil
		}
		return Result{State: StateAlreadySettled, Payment: existing}, nil
	}
	if err != nil {
		metrics.Settlements.WithLabelValues(metrics.SettlementFailed).Inc()
		return result, fmt.Errorf("%s: %w: %w", op, ledger.ErrBackendUnavailable, err)
	}
	result = Result{State: StateSettling, Payment: recorded}

	if err := s.grant(ctx, recorded); err != nil {
		// платеж записан, начисление доведет сверка
		log.Error("failed to grant credits for recorded payment", slog.String("payment_id", recorded.ID), sl.Err(err))
		metrics.Settlements.WithLabelValues(metrics.SettlementFailed).Inc()
		return result, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("payment settled",
		sl.UserID(recorded.UserID),
		slog.String("payment_id", recorded.ID),
		slog.Int("credits", recorded.CreditsPurchased),
	)
	metrics.Settlements.WithLabelValues(metrics.SettlementSettled).Inc()
	result.State = StateSettled
	return result, nil
}

func (s *Service) reject(result Result, err error) (Result, error) {
	metrics.Settlements.WithLabelValues(metrics.SettlementRejected).Inc()
	result.State = StateRejected
	return result, err
}

// grant начисляет кредиты по записанному платежу. Повторное начисление
// для того же платежа не выполняется.
func (s *Service) grant(ctx context.Context, p *models.PaymentRecord) error {
	if p.PlanID != nil && *p.PlanID != "" {
		_, err := s.ledger.GrantPlan(ctx, p.UserID, *p.PlanID, p.ID)
		switch {
		case err == nil, errors.Is(err, ledger.ErrAlreadyGranted):
			return nil
		case errors.Is(err, ledger.ErrAlreadySubscribed), errors.Is(err, ledger.ErrPlanNotFound):
			s.log.Info("plan not granted, falling back to standalone credits",
				slog.String("payment_id", p.ID),
				sl.Err(err),
			)
		default:
			return err
		}
	}

	_, err := s.ledger.GrantCredits(ctx, p.UserID, p.CreditsPurchased, p.Description, p.ID)
	if errors.Is(err, ledger.ErrAlreadyGranted) {
		return nil
	}
	return err
}

func paymentFromSession(session *paymentprovider.CheckoutSession) (models.PaymentRecord, error) {
	md := session.Metadata
	userID := md[paymentprovider.MetaUserID]
	if userID == "" {
		return models.PaymentRecord{}, fmt.Errorf("%w: missing %s", ErrInvalidSettlement, paymentprovider.MetaUserID)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return models.PaymentRecord{}, fmt.Errorf("%w: %s is not a uuid: %q", ErrInvalidSettlement, paymentprovider.MetaUserID, userID)
	}
	credits, err := strconv.Atoi(md[paymentprovider.MetaCredits])
	if err != nil || credits <= 0 {
		return models.PaymentRecord{}, fmt.Errorf("%w: %s must be a positive integer, got %q",
			ErrInvalidSettlement, paymentprovider.MetaCredits, md[paymentprovider.MetaCredits])
	}

	p := models.PaymentRecord{
		UserID:           userID,
		Amount:           credits,
		StripePaymentID:  session.ID,
		CreditsPurchased: credits,
		Description:      fmt.Sprintf("Purchased %d credits", credits),
	}
	if planID := md[paymentprovider.MetaPlanID]; planID != "" {
		if _, err := uuid.Parse(planID); err != nil {
			return models.PaymentRecord{}, fmt.Errorf("%w: %s is not a uuid: %q", ErrInvalidSettlement, paymentprovider.MetaPlanID, planID)
		}
		p.PlanID = &planID
		p.Description = fmt.Sprintf("Purchased %d credits (plan: %s)", credits, md[paymentprovider.MetaPlanName])
	}
	return p, nil
}

// ListPayments возвращает платежи пользователя от новых к старым.
func (s *Service) ListPayments(ctx context.Context, userID string) ([]models.PaymentRecord, error) {
	const op = "settlement.ListPayments"
	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ledger.ErrBackendUnavailable, err)
	}
	return payments, nil
}
