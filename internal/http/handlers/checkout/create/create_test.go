package create

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/video-credits/internal/http/middlewarectx"
	"github.com/magabrotheeeer/video-credits/internal/paymentprovider"
	"github.com/magabrotheeeer/video-credits/internal/services/ledger"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateCheckout(ctx context.Context, userID, planID string) (*paymentprovider.CheckoutSession, error) {
	args := m.Called(ctx, userID, planID)
	s, _ := args.Get(0).(*paymentprovider.CheckoutSession)
	return s, args.Error(1)
}

func TestCheckoutCreateHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			body: `{"plan_id":"pro"}`,
			setupMock: func(m *MockService) {
				m.On("CreateCheckout", mock.Anything, "u1", "pro").
					Return(&paymentprovider.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/cs_1"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"url":"https://checkout.stripe.com/cs_1"`,
		},
		{
			name:           "missing plan id",
			body:           `{"plan_id":""}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "already subscribed",
			body: `{"plan_id":"pro"}`,
			setupMock: func(m *MockService) {
				m.On("CreateCheckout", mock.Anything, "u1", "pro").Return(nil, ledger.ErrAlreadySubscribed)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "provider failure",
			body: `{"plan_id":"pro"}`,
			setupMock: func(m *MockService) {
				m.On("CreateCheckout", mock.Anything, "u1", "pro").Return(nil, errors.New("stripe: api key invalid"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString(tt.body))
			req = req.WithContext(middlewarectx.WithUserID(req.Context(), "u1"))
			w := httptest.NewRecorder()
			New(log, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
