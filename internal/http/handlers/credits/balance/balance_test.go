package balance

import (
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
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GetProfileCredits(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func TestBalanceHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		userID         string
		credits        int
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{name: "success", userID: "u1", credits: 18, expectedStatus: http.StatusOK, expectedBody: `"total_credits":18`},
		{name: "no profile yet", userID: "u1", expectedStatus: http.StatusOK, expectedBody: `"total_credits":0`},
		{name: "storage error", userID: "u1", err: errors.New("conn reset"), expectedStatus: http.StatusInternalServerError},
		{name: "unauthorized", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.userID != "" {
				svc.On("GetProfileCredits", mock.Anything, tt.userID).Return(tt.credits, tt.err)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
			if tt.userID != "" {
				req = req.WithContext(middlewarectx.WithUserID(req.Context(), tt.userID))
			}
			w := httptest.NewRecorder()
			New(log, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
