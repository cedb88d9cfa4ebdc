package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/video-credits/internal/http/middlewarectx"
	"github.com/magabrotheeeer/video-credits/internal/videogen"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GenerateNarration(ctx context.Context, userID string, req videogen.NarrationRequest) (json.RawMessage, error) {
	args := m.Called(ctx, userID, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func TestNarrationHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := videogen.NarrationRequest{ScriptPrompt: "cats in space", TimeLimit: "30"}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			body: `{"script_prompt":"cats in space","time_limit":"30"}`,
			setupMock: func(m *MockService) {
				m.On("GenerateNarration", mock.Anything, "u1", req).
					Return(json.RawMessage(`{"script":"Once upon a time"}`), nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"data":{"script":"Once upon a time"}`,
		},
		{
			name:           "missing prompt",
			body:           `{"time_limit":"30"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "api down",
			body: `{"script_prompt":"cats in space","time_limit":"30"}`,
			setupMock: func(m *MockService) {
				m.On("GenerateNarration", mock.Anything, "u1", req).
					Return(nil, fmt.Errorf("video.GenerateNarration: %w", videogen.ErrUnavailable))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			r := httptest.NewRequest(http.MethodPost, "/api/v1/videos/narration", bytes.NewBufferString(tt.body))
			r = r.WithContext(middlewarectx.WithUserID(r.Context(), "u1"))
			w := httptest.NewRecorder()
			New(log, svc).ServeHTTP(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
