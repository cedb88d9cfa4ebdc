// Package memory реализует хранилище леджера в памяти процесса.
// Используется для локального запуска без PostgreSQL и в тестах сервисов.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/storage"
)

type txKey struct{}

type state struct {
	plans         map[string]models.SubscriptionPlan
	subscriptions []models.UserSubscription
	transactions  []models.CreditTransaction
	profiles      map[string]models.Profile
	payments      []models.PaymentRecord
	videos        []models.Video
}

func (st state) clone() state {
	return state{
		plans:         maps.Clone(st.plans),
		subscriptions: slices.Clone(st.subscriptions),
		transactions:  slices.Clone(st.transactions),
		profiles:      maps.Clone(st.profiles),
		payments:      slices.Clone(st.payments),
		videos:        slices.Clone(st.videos),
	}
}

// Store хранилище в памяти. Транзакции выполняются строго по одной.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   state
	now  func() time.Time
}

// New создает пустое хранилище с каталогом plans.
func New(plans ...models.SubscriptionPlan) *Store {
	s := &Store{
		st: state{
			plans:    make(map[string]models.SubscriptionPlan),
			profiles: make(map[string]models.Profile),
		},
		now: time.Now,
	}
	for _, p := range plans {
		s.st.plans[p.ID] = p
	}
	return s
}

// WithTx выполняет fn атомарно: при ошибке все изменения откатываются.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// LockUser ничего не делает: транзакции и так сериализованы.
func (s *Store) LockUser(ctx context.Context, _ string) error {
	return ctx.Err()
}

// Ping всегда успешен.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := slices.Collect(maps.Values(s.st.plans))
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Price == plans[j].Price {
			return plans[i].Name < plans[j].Name
		}
		return plans[i].Price < plans[j].Price
	})
	return plans, nil
}

func (s *Store) GetPlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.st.plans[planID]
	if !ok {
		return nil, fmt.Errorf("memory.GetPlan: %w", storage.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*models.UserSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.UserSubscription
	for i := range s.st.subscriptions {
		sub := s.st.subscriptions[i]
		if sub.UserID != userID || sub.Status != models.StatusActive {
			continue
		}
		if found == nil || sub.EndDate.After(found.EndDate) {
			found = &sub
		}
	}
	if found == nil {
		return nil, fmt.Errorf("memory.GetActiveSubscription: %w", storage.ErrNotFound)
	}
	return found, nil
}

// Subscriptions возвращает все подписки пользователя в порядке создания.
func (s *Store) Subscriptions(userID string) []models.UserSubscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.UserSubscription
	for _, sub := range s.st.subscriptions {
		if sub.UserID == userID {
			result = append(result, sub)
		}
	}
	return result
}

// PutSubscription сохраняет подписку как есть. Нужна для подготовки данных.
func (s *Store) PutSubscription(sub models.UserSubscription) models.UserSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.CreatedAt = s.now()
	sub.UpdatedAt = sub.CreatedAt
	s.st.subscriptions = append(s.st.subscriptions, sub)
	return sub
}

func (s *Store) CancelActiveSubscriptions(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for i := range s.st.subscriptions {
		sub := &s.st.subscriptions[i]
		if sub.UserID == userID && sub.Status == models.StatusActive {
			sub.Status = models.StatusCancelled
			sub.UpdatedAt = s.now()
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub models.UserSubscription) (*models.UserSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.GetPlan(ctx, sub.PlanID); err != nil {
		return nil, err
	}
	created := s.PutSubscription(sub)
	return &created, nil
}

// DebitCredits отрицательный amount возвращает кредиты.
func (s *Store) DebitCredits(ctx context.Context, subscriptionID string, expected, amount int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.st.subscriptions {
		sub := &s.st.subscriptions[i]
		if sub.ID != subscriptionID {
			continue
		}
		if sub.Status != models.StatusActive || sub.CreditsRemaining != expected || sub.CreditsRemaining < amount {
			return false, nil
		}
		sub.CreditsRemaining -= amount
		sub.UpdatedAt = s.now()
		return true, nil
	}
	return false, nil
}

func (s *Store) ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.ExpiringSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.ExpiringSubscription
	for _, sub := range s.st.subscriptions {
		if sub.Status != models.StatusActive || sub.EndDate.Before(from) || !sub.EndDate.Before(to) {
			continue
		}
		result = append(result, models.ExpiringSubscription{
			SubscriptionID:   sub.ID,
			UserID:           sub.UserID,
			PlanName:         s.st.plans[sub.PlanID].Name,
			EndDate:          sub.EndDate,
			CreditsRemaining: sub.CreditsRemaining,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EndDate.Before(result[j].EndDate) })
	return result, nil
}

func (s *Store) AppendTransaction(ctx context.Context, t models.CreditTransaction) (*models.CreditTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.PaymentID != nil {
		for _, existing := range s.st.transactions {
			if existing.PaymentID != nil && *existing.PaymentID == *t.PaymentID {
				return nil, fmt.Errorf("memory.AppendTransaction: %w", storage.ErrAlreadyExists)
			}
		}
	}
	t.ID = uuid.NewString()
	t.CreatedAt = s.now()
	s.st.transactions = append(s.st.transactions, t)
	return &t, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.CreditTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.CreditTransaction, 0)
	for i := len(s.st.transactions) - 1; i >= 0; i-- {
		if s.st.transactions[i].UserID == userID {
			result = append(result, s.st.transactions[i])
		}
	}
	if offset > 0 {
		result = result[min(offset, len(result)):]
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) HasPaymentGrant(ctx context.Context, paymentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasGrant(paymentID), nil
}

func (s *Store) hasGrant(paymentID string) bool {
	for _, t := range s.st.transactions {
		if t.PaymentID != nil && *t.PaymentID == paymentID {
			return true
		}
	}
	return false
}

func (s *Store) UpsertProfileCredits(ctx context.Context, userID string, credits int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.st.profiles[userID]
	if !ok {
		p = models.Profile{ID: userID, CreatedAt: s.now()}
	}
	p.TotalCredits = credits
	p.UpdatedAt = s.now()
	s.st.profiles[userID] = p
	return nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.st.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("memory.GetProfile: %w", storage.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) CreatePayment(ctx context.Context, p models.PaymentRecord) (*models.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.st.payments {
		if existing.StripePaymentID == p.StripePaymentID {
			return nil, fmt.Errorf("memory.CreatePayment: %w", storage.ErrAlreadyExists)
		}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = s.now()
	s.st.payments = append(s.st.payments, p)
	return &p, nil
}

// PutPayment сохраняет платеж с заданным временем создания. Нужна для подготовки данных.
func (s *Store) PutPayment(p models.PaymentRecord) models.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.st.payments = append(s.st.payments, p)
	return p
}

func (s *Store) GetPaymentByExternalRef(ctx context.Context, ref string) (*models.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.st.payments {
		if p.StripePaymentID == ref {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("memory.GetPaymentByExternalRef: %w", storage.ErrNotFound)
}

func (s *Store) ListPayments(ctx context.Context, userID string) ([]models.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.PaymentRecord, 0)
	for i := len(s.st.payments) - 1; i >= 0; i-- {
		if s.st.payments[i].UserID == userID {
			result = append(result, s.st.payments[i])
		}
	}
	return result, nil
}

func (s *Store) ListUngrantedPayments(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.PaymentRecord, 0)
	for _, p := range s.st.payments {
		if !p.CreatedAt.Before(olderThan) || s.hasGrant(p.ID) {
			continue
		}
		result = append(result, p)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateVideo(ctx context.Context, v models.Video) (*models.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v.ID = uuid.NewString()
	v.CreatedAt = s.now()
	s.st.videos = append(s.st.videos, v)
	return &v, nil
}

// Videos возвращает видео пользователя в порядке создания.
func (s *Store) Videos(userID string) []models.Video {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Video
	for _, v := range s.st.videos {
		if v.UserID == userID {
			result = append(result, v)
		}
	}
	return result
}
