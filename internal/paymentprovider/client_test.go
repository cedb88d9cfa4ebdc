package paymentprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type MockSessionAPI struct {
	mock.Mock
}

func (m *MockSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	args := m.Called(params)
	s, _ := args.Get(0).(*stripe.CheckoutSession)
	return s, args.Error(1)
}

func (m *MockSessionAPI) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	args := m.Called(id, params)
	s, _ := args.Get(0).(*stripe.CheckoutSession)
	return s, args.Error(1)
}

const (
	successURL = "http://localhost:3000/payment-success?session_id={CHECKOUT_SESSION_ID}"
	cancelURL  = "http://localhost:3000/pricing"
)

func TestCreateCheckoutSession(t *testing.T) {
	api := new(MockSessionAPI)
	c := newClient(api, successURL, cancelURL)
	ctx := context.Background()

	metadata := map[string]string{
		MetaUserID:         "user-1",
		MetaCredits:        "15",
		MetaPlanName:       "Pro",
		MetaPlanID:         "plan-pro",
		MetaOriginalAmount: "25",
	}

	api.On("New", mock.MatchedBy(func(p *stripe.CheckoutSessionParams) bool {
		return *p.Mode == string(stripe.CheckoutSessionModeSubscription) &&
			len(p.LineItems) == 1 &&
			*p.LineItems[0].Price == "price_pro" &&
			*p.LineItems[0].Quantity == 1 &&
			*p.SuccessURL == successURL &&
			*p.CancelURL == cancelURL &&
			*p.ClientReferenceID == "user-1" &&
			p.Context == ctx &&
			assert.ObjectsAreEqual(metadata, p.Metadata)
	})).Return(&stripe.CheckoutSession{
		ID:       "cs_test_1",
		URL:      "https://checkout.stripe.com/c/pay/cs_test_1",
		Status:   stripe.CheckoutSessionStatusOpen,
		Metadata: metadata,
	}, nil).Once()

	s, err := c.CreateCheckoutSession(ctx, CheckoutRequest{PriceID: "price_pro", UserID: "user-1", Metadata: metadata})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", s.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", s.URL)
	assert.Equal(t, "open", s.Status)
	assert.Equal(t, "15", s.Metadata[MetaCredits])
	assert.False(t, s.Paid())
	api.AssertExpectations(t)
}

func TestCreateCheckoutSession_Errors(t *testing.T) {
	api := new(MockSessionAPI)
	c := newClient(api, successURL, cancelURL)

	_, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{})
	require.Error(t, err)
	api.AssertNotCalled(t, "New", mock.Anything)

	api.On("New", mock.Anything).Return(nil, errors.New("network down")).Once()
	_, err = c.CreateCheckoutSession(context.Background(), CheckoutRequest{PriceID: "price_basic"})
	require.ErrorContains(t, err, "network down")
}

func TestGetCheckoutSession(t *testing.T) {
	tests := []struct {
		name      string
		session   *stripe.CheckoutSession
		err       error
		wantErr   error
		wantPaid  bool
		wantError bool
	}{
		{
			name: "paid",
			session: &stripe.CheckoutSession{
				ID:            "cs_1",
				Status:        stripe.CheckoutSessionStatusComplete,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
				Metadata:      map[string]string{MetaUserID: "u", MetaCredits: "10"},
			},
			wantPaid: true,
		},
		{
			name: "complete but unpaid",
			session: &stripe.CheckoutSession{
				ID:            "cs_1",
				Status:        stripe.CheckoutSessionStatusComplete,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
			},
		},
		{
			name:      "missing",
			err:       &stripe.Error{Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: 404},
			wantErr:   ErrSessionNotFound,
			wantError: true,
		},
		{
			name:      "provider failure",
			err:       errors.New("tls handshake timeout"),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockSessionAPI)
			c := newClient(api, successURL, cancelURL)
			api.On("Get", "cs_1", mock.Anything).Return(tt.session, tt.err).Once()

			s, err := c.GetCheckoutSession(context.Background(), "cs_1")
			if tt.wantError {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPaid, s.Paid())
		})
	}
}
