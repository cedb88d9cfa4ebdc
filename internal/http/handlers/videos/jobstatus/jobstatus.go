// Package jobstatus реализует HTTP-обработчик статуса задачи генерации видео.
package jobstatus

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/video-credits/internal/http/response"
	"github.com/magabrotheeeer/video-credits/internal/lib/sl"
	"github.com/magabrotheeeer/video-credits/internal/videogen"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	JobStatus(ctx context.Context, kind videogen.JobKind, jobID string) (*videogen.JobStatus, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Статус задачи генерации
// @Tags Videos
// @Produce json
// @Param id path string true "Идентификатор задачи"
// @Param kind query string false "raw или captioned" default(raw)
// @Success 200 {object} response.Response "Статус задачи"
// @Failure 400 {object} response.ErrorResponse "Некорректный вид задачи"
// @Failure 502 {object} response.ErrorResponse "Генерация завершилась ошибкой"
// @Failure 503 {object} response.ErrorResponse "API генерации недоступно"
// @Router /videos/jobs/{id} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.videos.jobstatus"

	jobID := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("job_id", jobID),
	)

	kind := videogen.JobKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = videogen.JobRaw
	}
	if kind != videogen.JobRaw && kind != videogen.JobCaptioned {
		log.Error("unknown job kind", slog.String("kind", string(kind)))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("kind must be raw or captioned"))
		return
	}
	if jobID == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("job id is required"))
		return
	}

	status, err := h.service.JobStatus(r.Context(), kind, jobID)
	if err != nil {
		log.Error("failed to get job status", sl.Err(err))
		code, msg := response.StatusFor(err)
		w.WriteHeader(code)
		if status != nil {
			render.JSON(w, r, response.Response{Status: response.StatusError, Error: msg, Data: status})
			return
		}
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(status))
}
