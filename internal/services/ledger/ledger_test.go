package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/video-credits/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/storage/memory"
)

const userID = "3f2b8c1e-1d4a-4e7b-9a6c-0b5d2e8f7a11"

var (
	basicPlan = models.SubscriptionPlan{ID: "basic", Name: "Basic", Price: 10, CreditsPerMonth: 5, DurationMonths: 1}
	proPlan   = models.SubscriptionPlan{ID: "pro", Name: "Pro", Price: 25, CreditsPerMonth: 15, DurationMonths: 1}
	fixedNow  = time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

// conflictingRepo проваливает первые conflicts попыток списания.
type conflictingRepo struct {
	*memory.Store
	mu        sync.Mutex
	conflicts int
	attempts  int
}

func (r *conflictingRepo) DebitCredits(ctx context.Context, subscriptionID string, expected, amount int) (bool, error) {
	r.mu.Lock()
	r.attempts++
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return false, nil
	}
	r.mu.Unlock()
	return r.Store.DebitCredits(ctx, subscriptionID, expected, amount)
}

// failingProfileRepo не может записать профиль.
type failingProfileRepo struct {
	*memory.Store
}

func (r *failingProfileRepo) UpsertProfileCredits(_ context.Context, _ string, _ int) error {
	return errors.New("connection reset by peer")
}

// lockOrderRepo запоминает порядок блокировок и списаний.
type lockOrderRepo struct {
	*memory.Store
	mu    sync.Mutex
	calls []string
}

func (r *lockOrderRepo) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *lockOrderRepo) LockUser(ctx context.Context, userID string) error {
	r.record("lock:" + userID)
	return r.Store.LockUser(ctx, userID)
}

func (r *lockOrderRepo) DebitCredits(ctx context.Context, subscriptionID string, expected, amount int) (bool, error) {
	r.record("debit")
	return r.Store.DebitCredits(ctx, subscriptionID, expected, amount)
}

func newService(repo Repository, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	if opts.DebitMaxRetries == 0 {
		opts.DebitMaxRetries = 3
	}
	return New(repo, newNoopLogger(), opts)
}

func activeCount(subs []models.UserSubscription) int {
	n := 0
	for _, s := range subs {
		if s.Status == models.StatusActive {
			n++
		}
	}
	return n
}

func TestCreateOrUpgradeSubscription_FirstPurchase(t *testing.T) {
	store := memory.New(basicPlan, proPlan)
	svc := newService(store, Options{})
	ctx := context.Background()

	sub, err := svc.CreateOrUpgradeSubscription(ctx, userID, "basic")
	require.NoError(t, err)

	assert.Equal(t, 5, sub.CreditsRemaining)
	assert.Equal(t, models.StatusActive, sub.Status)
	assert.Equal(t, fixedNow, sub.StartDate)
	assert.Equal(t, time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), sub.EndDate)

	txs, err := svc.ListTransactions(ctx, userID, 0, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, 5, txs[0].Amount)
	assert.Equal(t, models.TransactionCredit, txs[0].Type)
	assert.Equal(t, "Initial credits from Basic subscription", txs[0].Description)
	require.NotNil(t, txs[0].SubscriptionID)
	assert.Equal(t, sub.ID, *txs[0].SubscriptionID)

	credits, err := svc.GetProfileCredits(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, credits)
}

func TestCreateOrUpgradeSubscription_UpgradeCarriesOver(t *testing.T) {
	store := memory.New(basicPlan, proPlan)
	svc := newService(store, Options{})
	ctx := context.Background()

	first, err := svc.CreateOrUpgradeSubscription(ctx, userID, "basic")
	require.NoError(t, err)
	remaining, err := svc.UseCredits(ctx, userID, 2, "Video generation")
	require.NoError(t, err)
	require.Equal(t, 3, remaining)

	upgraded, err := svc.CreateOrUpgradeSubscription(ctx, userID, "pro")
	require.NoError(t, err)
	assert.Equal(t, 18, upgraded.CreditsRemaining)

	subs := store.Subscriptions(userID)
	require.Len(t, subs, 2)
	assert.Equal(t, first.ID, subs[0].ID)
	assert.Equal(t, models.StatusCancelled, subs[0].Status)
	assert.Equal(t, 1, activeCount(subs))

	txs, err := svc.ListTransactions(ctx, userID, 0, 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, 15, txs[0].Amount)
	assert.Equal(t, "Plan upgrade: 3 credits carried over + 15 new credits from Pro", txs[0].Description)

	credits, err := svc.GetProfileCredits(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 18, credits)
}

func TestCreateOrUpgradeSubscription_SingleActiveUnderConcurrency(t *testing.T) {
	store := memory.New(basicPlan, proPlan)
	svc := newService(store, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			plan := "basic"
			if i%2 == 0 {
				plan = "pro"
			}
			_, err := svc.CreateOrUpgradeSubscription(ctx, userID, plan)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	subs := store.Subscriptions(userID)
	assert.Len(t, subs, 10)
	assert.Equal(t, 1, activeCount(subs))

	active, err := svc.GetActiveSubscription(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5*5+5*15, active.CreditsRemaining)
}

func TestCreateOrUpgradeSubscription_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("plan not found", func(t *testing.T) {
		store := memory.New(basicPlan)
		svc := newService(store, Options{})

		_, err := svc.CreateOrUpgradeSubscription(ctx, userID, "missing")
		require.ErrorIs(t, err, ErrPlanNotFound)
		assert.Empty(t, store.Subscriptions(userID))
	})

	t.Run("reject policy with unexpired subscription", func(t *testing.T) {
		store := memory.New(basicPlan, proPlan)
		svc := newService(store, Options{UpgradePolicy: PolicyReject})

		_, err := svc.CreateOrUpgradeSubscription(ctx, userID, "basic")
		require.NoError(t, err)
		_, err = svc.CreateOrUpgradeSubscription(ctx, userID, "pro")
		require.ErrorIs(t, err, ErrAlreadySubscribed)

		subs := store.Subscriptions(userID)
		require.Len(t, subs, 1)
		assert.Equal(t, models.StatusActive, subs[0].Status)
	})

	t.Run("reject policy with expired subscription", func(t *testing.T) {
		store := memory.New(basicPlan, proPlan)
		store.PutSubscription(models.UserSubscription{
			UserID:           userID,
			PlanID:           "basic",
			StartDate:        fixedNow.AddDate(0, -2, 0),
			EndDate:          fixedNow.AddDate(0, -1, 0),
			CreditsRemaining: 2,
			Status:           models.StatusActive,
		})
		svc := newService(store, Options{UpgradePolicy: PolicyReject})

		sub, err := svc.CreateOrUpgradeSubscription(ctx, userID, "pro")
		require.NoError(t, err)
		assert.Equal(t, 17, sub.CreditsRemaining)
	})

	t.Run("backend failure rolls back", func(t *testing.T) {
		store := memory.New(basicPlan)
		svc := newService(&failingProfileRepo{Store: store}, Options{})

		_, err := svc.CreateOrUpgradeSubscription(ctx, userID, "basic")
		require.ErrorIs(t, err, ErrBackendUnavailable)
		assert.Empty(t, store.Subscriptions(userID))

		txs, err := store.ListTransactions(ctx, userID, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})
}

func TestGrantPlan_OncePerPayment(t *testing.T) {
	store := memory.New(basicPlan)
	svc := newService(store, Options{})
	ctx := context.Background()

	_, err := svc.GrantPlan(ctx, userID, "basic", "payment-1")
	require.NoError(t, err)
	_, err = svc.GrantPlan(ctx, userID, "basic", "payment-1")
	require.ErrorIs(t, err, ErrAlreadyGranted)

	subs := store.Subscriptions(userID)
	require.Len(t, subs, 1)
	assert.Equal(t, 5, subs[0].CreditsRemaining)
	assert.Equal(t, models.StatusActive, subs[0].Status)
}

func TestUseCredits(t *testing.T) {
	ctx := context.Background()

	t.Run("debit appends matching transaction", func(t *testing.T) {
		store := memory.New(basicPlan)
		svc := newService(store, Options{})
		_, err := svc.CreateOrUpgradeSubscription(ctx, userID, "basic")
		require.NoError(t, err)

		remaining, err := svc.UseCredits(ctx, userID, 2, "Video generation")
		require.NoError(t, err)
		assert.Equal(t, 3, remaining)

		txs, err := svc.ListTransactions(ctx, userID, 1, 0)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, -2, txs[0].Amount)
		assert.Equal(t, models.TransactionDebit, txs[0].Type)
		assert.Equal(t, "Video generation", txs[0].Description)

		credits, err := svc.GetProfileCredits(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 3, credits)
	})

	t.Run("debit takes the user lock first", func(t *testing.T) {
		store := memory.New(basicPlan)
		store.PutSubscription(models.UserSubscription{
			UserID: userID, PlanID: "basic", EndDate: fixedNow.AddDate(0, 1, 0),
			CreditsRemaining: 5, Status: models.StatusActive,
		})
		repo := &lockOrderRepo{Store: store}
		svc := newService(repo, Options{})

		_, err := svc.UseCredits(ctx, userID, 1, "Video generation")
		require.NoError(t, err)
		assert.Equal(t, []string{"lock:" + userID, "debit"}, repo.calls)
	})

	t.Run("insufficient credits leaves state unchanged", func(t *testing.T) {
		store := memory.New(basicPlan)
		store.PutSubscription(models.UserSubscription{
			UserID: userID, PlanID: "basic", EndDate: fixedNow.AddDate(0, 1, 0),
			CreditsRemaining: 1, Status: models.StatusActive,
		})
		svc := newService(store, Options{})

		_, err := svc.UseCredits(ctx, userID, 2, "x")
		require.ErrorIs(t, err, ErrInsufficientCredits)

		sub, err := svc.GetActiveSubscription(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 1, sub.CreditsRemaining)

		txs, err := svc.ListTransactions(ctx, userID, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("no active subscription", func(t *testing.T) {
		svc := newService(memory.New(basicPlan), Options{})
		_, err := svc.UseCredits(ctx, userID, 1, "Video generation")
		require.ErrorIs(t, err, ErrNoActiveSubscription)
	})

	t.Run("invalid amount", func(t *testing.T) {
		svc := newService(memory.New(basicPlan), Options{})
		for _, amount := range []int{0, -3} {
			_, err := svc.UseCredits(ctx, userID, amount, "x")
			require.ErrorIs(t, err, ErrInvalidAmount)
		}
	})

	t.Run("conflict is retried", func(t *testing.T) {
		repo := &conflictingRepo{Store: memory.New(basicPlan), conflicts: 2}
		svc := newService(repo, Options{DebitMaxRetries: 3})
		_, err := svc.CreateOrUpgradeSubscription(ctx, userID, "basic")
		require.NoError(t, err)

		remaining, err := svc.UseCredits(ctx, userID, 1, "Video generation")
		require.NoError(t, err)
		assert.Equal(t, 4, remaining)
		assert.Equal(t, 3, repo.attempts)
	})

	t.Run("conflict retries exhausted", func(t *testing.T) {
		repo := &conflictingRepo{Store: memory.New(basicPlan), conflicts: 10}
		svc := newService(repo, Options{DebitMaxRetries: 2})
		_, err := svc.CreateOrUpgradeSubscription(ctx, userID, "basic")
		require.NoError(t, err)

		_, err = svc.UseCredits(ctx, userID, 1, "Video generation")
		require.ErrorIs(t, err, ErrBackendUnavailable)
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, 3, repo.attempts)

		sub, err := svc.GetActiveSubscription(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 5, sub.CreditsRemaining)
	})

	t.Run("concurrent debits never overspend", func(t *testing.T) {
		store := memory.New(basicPlan)
		svc := newService(store, Options{})
		_, err := svc.CreateOrUpgradeSubscription(ctx, userID, "basic")
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.UseCredits(ctx, userID, 1, "Video generation"); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, succeeded)
		sub, err := svc.GetActiveSubscription(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 0, sub.CreditsRemaining)
	})
}

func TestSyncProfileCredits(t *testing.T) {
	ctx := context.Background()
	store := memory.New(basicPlan)
	svc := newService(store, Options{})

	credits, err := svc.SyncProfileCredits(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, credits)

	store.PutSubscription(models.UserSubscription{
		UserID: userID, PlanID: "basic", EndDate: fixedNow.AddDate(0, 1, 0),
		CreditsRemaining: 7, Status: models.StatusActive,
	})

	first, err := svc.SyncProfileCredits(ctx, userID)
	require.NoError(t, err)
	second, err := svc.SyncProfileCredits(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 7, first)
	assert.Equal(t, first, second)

	mirrored, err := svc.GetProfileCredits(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 7, mirrored)
}

func TestHasUnexpiredActiveSubscription(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		endDate time.Time
		status  models.SubscriptionStatus
		want    bool
	}{
		{name: "active in future", endDate: fixedNow.Add(time.Hour), status: models.StatusActive, want: true},
		{name: "active ends now", endDate: fixedNow, status: models.StatusActive, want: false},
		{name: "active in past", endDate: fixedNow.Add(-time.Hour), status: models.StatusActive, want: false},
		{name: "cancelled", endDate: fixedNow.Add(time.Hour), status: models.StatusCancelled, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New(basicPlan)
			store.PutSubscription(models.UserSubscription{UserID: userID, PlanID: "basic", EndDate: tt.endDate, Status: tt.status})
			svc := newService(store, Options{})

			got, err := svc.HasUnexpiredActiveSubscription(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrantCredits(t *testing.T) {
	ctx := context.Background()
	store := memory.New(basicPlan)
	svc := newService(store, Options{})

	tx, err := svc.GrantCredits(ctx, userID, 10, "Purchased 10 credits", "payment-1")
	require.NoError(t, err)
	assert.Equal(t, 10, tx.Amount)
	assert.Nil(t, tx.SubscriptionID)

	_, err = svc.GrantCredits(ctx, userID, 10, "Purchased 10 credits", "payment-1")
	require.ErrorIs(t, err, ErrAlreadyGranted)

	_, err = svc.GrantCredits(ctx, userID, 0, "nothing", "payment-2")
	require.ErrorIs(t, err, ErrInvalidAmount)

	txs, err := svc.ListTransactions(ctx, userID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestRefundCredits(t *testing.T) {
	ctx := context.Background()

	t.Run("restores active balance", func(t *testing.T) {
		store := memory.New(basicPlan)
		svc := newService(store, Options{})
		_, err := svc.CreateOrUpgradeSubscription(ctx, userID, "basic")
		require.NoError(t, err)
		_, err = svc.UseCredits(ctx, userID, 1, "Video generation")
		require.NoError(t, err)

		remaining, err := svc.RefundCredits(ctx, userID, 1, "Video generation refund")
		require.NoError(t, err)
		assert.Equal(t, 5, remaining)

		sub, err := svc.GetActiveSubscription(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 5, sub.CreditsRemaining)

		txs, err := svc.ListTransactions(ctx, userID, 0, 0)
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, 1, txs[0].Amount)
		assert.Equal(t, models.TransactionCredit, txs[0].Type)
		require.NotNil(t, txs[0].SubscriptionID)
		assert.Equal(t, sub.ID, *txs[0].SubscriptionID)

		credits, err := svc.GetProfileCredits(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 5, credits)
	})

	t.Run("without subscription only logs", func(t *testing.T) {
		store := memory.New(basicPlan)
		svc := newService(store, Options{})

		remaining, err := svc.RefundCredits(ctx, userID, 1, "Video generation refund")
		require.NoError(t, err)
		assert.Zero(t, remaining)

		txs, err := svc.ListTransactions(ctx, userID, 0, 0)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Nil(t, txs[0].SubscriptionID)
	})

	t.Run("invalid amount", func(t *testing.T) {
		svc := newService(memory.New(basicPlan), Options{})
		_, err := svc.RefundCredits(ctx, userID, 0, "x")
		require.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestEventsPublished(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, rabbitmq.KeySubscriptionCreated, mock.MatchedBy(func(e SubscriptionCreated) bool {
		return e.UserID == userID && e.CreditsAdded == 5 && e.CreditsRemaining == 5
	})).Return(nil).Once()
	pub.On("Publish", mock.Anything, rabbitmq.KeyCreditsDebited, mock.MatchedBy(func(e CreditsDebited) bool {
		return e.Amount == 1 && e.CreditsRemaining == 4
	})).Return(errors.New("broker down")).Once()

	svc := newService(memory.New(basicPlan), Options{Publisher: pub})

	_, err := svc.CreateOrUpgradeSubscription(ctx, userID, "basic")
	require.NoError(t, err)
	_, err = svc.UseCredits(ctx, userID, 1, "Video generation")
	require.NoError(t, err, "publish failures must not fail the debit")

	pub.AssertExpectations(t)
}

func TestListPlans_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss then fill", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("Get", mock.Anything, plansCacheKey, mock.Anything).Return(false, nil).Once()
		cache.On("Set", mock.Anything, plansCacheKey, mock.Anything, time.Minute).Return(nil).Once()

		svc := newService(memory.New(proPlan, basicPlan), Options{Cache: cache, PlansTTL: time.Minute})
		plans, err := svc.ListPlans(ctx)
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, "basic", plans[0].ID)
		cache.AssertExpectations(t)
	})

	t.Run("hit", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("Get", mock.Anything, plansCacheKey, mock.Anything).
			Run(func(args mock.Arguments) {
				out := args.Get(2).(*[]models.SubscriptionPlan)
				*out = []models.SubscriptionPlan{basicPlan}
			}).
			Return(true, nil).Once()

		svc := newService(memory.New(), Options{Cache: cache, PlansTTL: time.Minute})
		plans, err := svc.ListPlans(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.SubscriptionPlan{basicPlan}, plans)
		cache.AssertExpectations(t)
	})

	t.Run("cache error falls through", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("Get", mock.Anything, plansCacheKey, mock.Anything).Return(false, errors.New("redis down")).Once()
		cache.On("Set", mock.Anything, plansCacheKey, mock.Anything, time.Minute).Return(errors.New("redis down")).Once()

		svc := newService(memory.New(basicPlan), Options{Cache: cache, PlansTTL: time.Minute})
		plans, err := svc.ListPlans(ctx)
		require.NoError(t, err)
		assert.Len(t, plans, 1)
	})
}
