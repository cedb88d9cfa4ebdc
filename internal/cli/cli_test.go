package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/video-credits/internal/config"
	"github.com/magabrotheeeer/video-credits/internal/lib/jwt"
	"github.com/magabrotheeeer/video-credits/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/services/settlement"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]models.SubscriptionPlan)
	return p, args.Error(1)
}

func (m *MockLedger) SyncProfileCredits(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockLedger) GrantCredits(ctx context.Context, userID string, amount int, description, paymentID string) (*models.CreditTransaction, error) {
	args := m.Called(ctx, userID, amount, description, paymentID)
	tx, _ := args.Get(0).(*models.CreditTransaction)
	return tx, args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context) (settlement.ReconcileReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(settlement.ReconcileReport), args.Error(1)
}

func run(t *testing.T, l *MockLedger, r *MockReconciler, args ...string) (string, error) {
	t.Helper()
	closed := false
	e := &Env{
		Config: &config.Config{JWTToken: config.JWTToken{JWTSecretKey: "secret", Audience: "authenticated"}},
		Open: func(_ context.Context, _ *config.Config, _ *slog.Logger) (*Services, error) {
			return &Services{Ledger: l, Settlement: r, Close: func() { closed = true }}, nil
		},
	}
	cmd := NewRootCmd(e)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err == nil && len(args) > 0 && args[0] != "token" {
		assert.True(t, closed, "services must be closed after the command")
	}
	return out.String(), err
}

func TestPlansCmd(t *testing.T) {
	l := new(MockLedger)
	l.On("ListPlans", mock.Anything).Return([]models.SubscriptionPlan{
		{ID: "basic", Name: "Basic", Price: 10, CreditsPerMonth: 5, DurationMonths: 1, StripePriceID: "price_1"},
	}, nil)

	out, err := run(t, l, nil, "plans")
	require.NoError(t, err)
	assert.Contains(t, out, "basic")
	assert.Contains(t, out, "price_1")
}

func TestSyncCreditsCmd(t *testing.T) {
	l := new(MockLedger)
	l.On("SyncProfileCredits", mock.Anything, "u1").Return(12, nil)

	out, err := run(t, l, nil, "sync-credits", "u1")
	require.NoError(t, err)
	assert.Equal(t, "user u1: 12 credits\n", out)

	_, err = run(t, l, nil, "sync-credits")
	assert.Error(t, err)
}

func TestGrantCreditsCmd(t *testing.T) {
	l := new(MockLedger)
	l.On("GrantCredits", mock.Anything, "u1", 20, "Support refund", "").
		Return(&models.CreditTransaction{ID: "t1", UserID: "u1", Amount: 20}, nil)

	out, err := run(t, l, nil, "grant-credits", "u1", "20", "-d", "Support refund")
	require.NoError(t, err)
	assert.Contains(t, out, "granted 20 credits to u1")

	_, err = run(t, l, nil, "grant-credits", "u1", "-5")
	assert.Error(t, err)
	l.AssertNumberOfCalls(t, "GrantCredits", 1)
}

func TestReconcileCmd(t *testing.T) {
	r := new(MockReconciler)
	r.On("Reconcile", mock.Anything).Return(settlement.ReconcileReport{Checked: 3, Granted: 2, Failed: 1}, nil).Once()
	r.On("Reconcile", mock.Anything).Return(settlement.ReconcileReport{}, errors.New("connection refused")).Once()

	out, err := run(t, nil, r, "reconcile")
	require.NoError(t, err)
	assert.Equal(t, "checked: 3, granted: 2, failed: 1\n", out)

	_, err = run(t, nil, r, "reconcile")
	assert.Error(t, err)
}

func TestTokenCmd(t *testing.T) {
	out, err := run(t, nil, nil, "token", "u1", "--email", "user@example.com", "--ttl", "5m")
	require.NoError(t, err)

	claims, err := jwt.NewMaker("secret", "authenticated", time.Minute).ParseToken(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestMissingConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	cmd := NewRootCmd(&Env{})
	cmd.SetArgs([]string{"plans"})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

type queueSource struct {
	deliveries chan amqp.Delivery
	queue      string
}

func (s *queueSource) Consume(queue, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	s.queue = queue
	return s.deliveries, nil
}

type noopAck struct{}

func (noopAck) Ack(uint64, bool) error        { return nil }
func (noopAck) Nack(uint64, bool, bool) error { return nil }
func (noopAck) Reject(uint64, bool) error     { return nil }

func TestEventsCmd(t *testing.T) {
	src := &queueSource{deliveries: make(chan amqp.Delivery, 3)}
	for i, body := range []string{`{"subscription_id":"s1"}`, `{"subscription_id":"s2"}`, `{"subscription_id":"s3"}`} {
		src.deliveries <- amqp.Delivery{Acknowledger: noopAck{}, DeliveryTag: uint64(i + 1), Body: []byte(body)}
	}

	closed := false
	e := &Env{
		Config: &config.Config{},
		Events: func(_ *config.Config) (rabbitmq.DeliverySource, func(), error) {
			return src, func() { closed = true }, nil
		},
	}
	cmd := NewRootCmd(e)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"events", "notifications.expiring", "-n", "2"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, "notifications.expiring", src.queue)
	assert.Equal(t, "{\"subscription_id\":\"s1\"}\n{\"subscription_id\":\"s2\"}\n", out.String())
	assert.True(t, closed)
}

func TestEventsCmd_UnknownQueue(t *testing.T) {
	cmd := NewRootCmd(&Env{Config: &config.Config{}})
	cmd.SetArgs([]string{"events", "payments.raw"})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}
