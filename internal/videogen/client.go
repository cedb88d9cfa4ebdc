// Package videogen клиент внешнего API генерации коротких видео.
// Все запросы проходят через circuit breaker.
package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/magabrotheeeer/video-credits/internal/metrics"
)

var (
	ErrUnavailable = errors.New("videogen: video api unavailable")
	ErrJobFailed   = errors.New("videogen: job failed")
	ErrBadRequest  = errors.New("videogen: request rejected by video api")
)

// Статусы задачи генерации.
const (
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Config настройки клиента.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Client клиент API генерации видео.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	log        *slog.Logger
}

// statusError ответ API с кодом ошибки.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

// NewClient создает клиент API генерации видео.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        "video-api",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// ответы 4xx не говорят о недоступности API
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || (errors.As(err, &se) && se.code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
		log:        log,
	}
}

// NarrationRequest запрос на генерацию текста озвучки.
type NarrationRequest struct {
	ScriptPrompt string `json:"script_prompt" validate:"required"`
	TimeLimit    string `json:"time_limit" validate:"required"`
	UserID       string `json:"user_id"`
}

// GenerateRequest запрос на генерацию видео.
type GenerateRequest struct {
	ScriptPrompt       json.RawMessage `json:"script_prompt" validate:"required" swaggertype:"object"`
	Voice              string          `json:"voice" validate:"required"`
	TimeLimit          string          `json:"time_limit" validate:"required"`
	UserID             string          `json:"user_id"`
	FontName           string          `json:"font_name"`
	BaseFontColor      string          `json:"base_font_color"`
	HighlightWordColor string          `json:"highlight_word_color"`
}

// JobStatus состояние задачи генерации.
type JobStatus struct {
	Status            string `json:"status"`
	VideoURL          string `json:"video_url,omitempty"`
	RawVideoURL       string `json:"raw_video_url,omitempty"`
	CaptionedVideoURL string `json:"captioned_video_url,omitempty"`
	OutputPath        string `json:"output_path,omitempty"`
	Error             string `json:"error,omitempty"`
}

// JobKind вид видео, статус которого запрашивается.
type JobKind string

const (
	JobRaw       JobKind = "raw"
	JobCaptioned JobKind = "captioned"
)

// GenerateNarration возвращает ответ API генерации озвучки как есть.
func (c *Client) GenerateNarration(ctx context.Context, req NarrationRequest) (json.RawMessage, error) {
	const op = "videogen.GenerateNarration"
	body, err := c.do(ctx, "narration", http.MethodPost, "/generate-narration/", req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return json.RawMessage(body), nil
}

// GenerateVideo запускает генерацию видео и возвращает идентификатор задачи.
func (c *Client) GenerateVideo(ctx context.Context, req GenerateRequest) (string, error) {
	const op = "videogen.GenerateVideo"
	body, err := c.do(ctx, "generate", http.MethodPost, "/generate-short/", req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("%s: response has no job_id", op)
	}
	return resp.JobID, nil
}

// JobStatus возвращает состояние задачи. Задача в статусе failed дает ErrJobFailed.
func (c *Client) JobStatus(ctx context.Context, kind JobKind, jobID string) (*JobStatus, error) {
	const op = "videogen.JobStatus"

	var path string
	switch kind {
	case JobRaw:
		path = "/raw-video-url-status"
	case JobCaptioned:
		path = "/captioned-video-status"
	default:
		return nil, fmt.Errorf("%s: %w: unknown job kind %q", op, ErrBadRequest, kind)
	}
	path += "?" + url.Values{"job_id": {jobID}}.Encode()

	body, err := c.do(ctx, "status_"+string(kind), http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var status JobStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if status.Status == JobFailed {
		return &status, fmt.Errorf("%s: %w: %s", op, ErrJobFailed, status.Error)
	}
	return &status, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, payload any) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			buf, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(buf)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
		}
		return data, nil
	})

	var se *statusError
	switch {
	case err == nil:
		metrics.VideoAPIRequests.WithLabelValues(endpoint, "ok").Inc()
		return body, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.VideoAPIRequests.WithLabelValues(endpoint, "circuit_open").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	case errors.As(err, &se) && se.code < http.StatusInternalServerError:
		metrics.VideoAPIRequests.WithLabelValues(endpoint, "rejected").Inc()
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	default:
		metrics.VideoAPIRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}
