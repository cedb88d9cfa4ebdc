package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/storage"
)

var basic = models.SubscriptionPlan{ID: "basic", Name: "Basic", Price: 10, CreditsPerMonth: 5, DurationMonths: 1}

func TestStore_WithTxRollback(t *testing.T) {
	s := New(basic)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.CreateSubscription(ctx, models.UserSubscription{UserID: "u1", PlanID: "basic", Status: models.StatusActive})
		require.NoError(t, err)
		require.NoError(t, s.UpsertProfileCredits(ctx, "u1", 5))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Empty(t, s.Subscriptions("u1"))
	_, err = s.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_GetActiveSubscriptionLatestEndDate(t *testing.T) {
	s := New(basic)
	now := time.Now()
	s.PutSubscription(models.UserSubscription{ID: "old", UserID: "u1", PlanID: "basic", EndDate: now.Add(time.Hour), Status: models.StatusActive})
	s.PutSubscription(models.UserSubscription{ID: "new", UserID: "u1", PlanID: "basic", EndDate: now.Add(48 * time.Hour), Status: models.StatusActive})

	sub, err := s.GetActiveSubscription(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", sub.ID)
}

func TestStore_DebitCreditsCAS(t *testing.T) {
	s := New(basic)
	ctx := context.Background()
	sub := s.PutSubscription(models.UserSubscription{UserID: "u1", PlanID: "basic", CreditsRemaining: 3, Status: models.StatusActive})

	ok, err := s.DebitCredits(ctx, sub.ID, 2, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.DebitCredits(ctx, sub.ID, 3, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.DebitCredits(ctx, sub.ID, 3, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, s.Subscriptions("u1")[0].CreditsRemaining)
}

func TestStore_PaymentUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	p, err := s.CreatePayment(ctx, models.PaymentRecord{UserID: "u1", StripePaymentID: "cs_1", CreditsPurchased: 10})
	require.NoError(t, err)
	_, err = s.CreatePayment(ctx, models.PaymentRecord{UserID: "u1", StripePaymentID: "cs_1", CreditsPurchased: 10})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	ungranted, err := s.ListUngrantedPayments(ctx, time.Now().Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, ungranted, 1)

	_, err = s.AppendTransaction(ctx, models.CreditTransaction{UserID: "u1", PaymentID: &p.ID, Amount: 10, Type: models.TransactionCredit})
	require.NoError(t, err)
	_, err = s.AppendTransaction(ctx, models.CreditTransaction{UserID: "u1", PaymentID: &p.ID, Amount: 10, Type: models.TransactionCredit})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	ungranted, err = s.ListUngrantedPayments(ctx, time.Now().Add(time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, ungranted)
}

func TestStore_ListPlansByPrice(t *testing.T) {
	s := New(
		models.SubscriptionPlan{ID: "pro", Name: "Pro", Price: 25},
		basic,
		models.SubscriptionPlan{ID: "annual", Name: "Annual", Price: 250},
	)

	plans, err := s.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, []string{"basic", "pro", "annual"}, []string{plans[0].ID, plans[1].ID, plans[2].ID})
}
