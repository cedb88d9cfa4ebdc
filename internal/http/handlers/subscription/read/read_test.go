package read

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/video-credits/internal/http/middlewarectx"
	"github.com/magabrotheeeer/video-credits/internal/models"
	"github.com/magabrotheeeer/video-credits/internal/services/ledger"
)

// MockService реализует интерфейс read.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) GetActiveSubscription(ctx context.Context, userID string) (*models.UserSubscription, error) {
	args := m.Called(ctx, userID)
	sub, _ := args.Get(0).(*models.UserSubscription)
	return sub, args.Error(1)
}

func (m *MockService) GetPlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error) {
	args := m.Called(ctx, planID)
	plan, _ := args.Get(0).(*models.SubscriptionPlan)
	return plan, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestReadHandler(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	annual := &models.UserSubscription{
		ID: "sub-1", UserID: "u1", PlanID: "annual",
		StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		CreditsRemaining: 12, Status: models.StatusActive,
	}

	tests := []struct {
		name           string
		userID         string
		setupMock      func(*MockService)
		expectedStatus int
		check          func(t *testing.T, body map[string]any)
	}{
		{
			name:   "active subscription with plan",
			userID: "u1",
			setupMock: func(m *MockService) {
				m.On("GetActiveSubscription", mock.Anything, "u1").Return(annual, nil)
				m.On("GetPlan", mock.Anything, "annual").Return(&models.SubscriptionPlan{ID: "annual", Name: "Pro Annual", DurationMonths: 12}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				data := body["data"].(map[string]any)
				assert.Equal(t, float64(9), data["months_left"])
				assert.Equal(t, false, data["expired"])
				assert.Equal(t, float64(12), data["subscription"].(map[string]any)["credits_remaining"])
			},
		},
		{
			name:   "plan lookup failure still returns subscription",
			userID: "u1",
			setupMock: func(m *MockService) {
				m.On("GetActiveSubscription", mock.Anything, "u1").Return(annual, nil)
				m.On("GetPlan", mock.Anything, "annual").Return(nil, ledger.ErrPlanNotFound)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				data := body["data"].(map[string]any)
				assert.NotContains(t, data, "plan")
				assert.Contains(t, data, "subscription")
			},
		},
		{
			name:   "no active subscription",
			userID: "u1",
			setupMock: func(m *MockService) {
				m.On("GetActiveSubscription", mock.Anything, "u1").Return(nil, ledger.ErrNoActiveSubscription)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "backend error",
			userID: "u1",
			setupMock: func(m *MockService) {
				m.On("GetActiveSubscription", mock.Anything, "u1").Return(nil, errors.Join(ledger.ErrBackendUnavailable, errors.New("timeout")))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "unauthorized",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			h := New(newNoopLogger(), svc)
			h.now = func() time.Time { return now }

			req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil)
			if tt.userID != "" {
				req = req.WithContext(middlewarectx.WithUserID(req.Context(), tt.userID))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.check != nil {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				tt.check(t, body)
			}
			svc.AssertExpectations(t)
		})
	}
}
