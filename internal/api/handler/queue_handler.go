package handler

import (
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/linkspool/linkspool/internal/api/middleware"
	"github.com/linkspool/linkspool/internal/service"
)

// QueueHandler exposes the durable retry queue and session state.
type QueueHandler struct {
	svc    *service.SubmissionService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.SubmissionService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/queue
//
// @Summary  List queued submissions in insertion order
// @Tags     queue
// @Produce  json
// @Success  200  {array}  domain.QueueItem
// @Router   /api/v1/queue [get]
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListQueue(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list queue")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// RetryNow handles POST /api/v1/queue/retry
//
// @Summary  Attempt delivery of all due queue items immediately
// @Tags     queue
// @Produce  json
// @Success  200  {object}  domain.QueueRetryResult
// @Router   /api/v1/queue/retry [post]
func (h *QueueHandler) RetryNow(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RetryNow(r.Context())
	if err != nil {
		h.logger.Warn("manual retry failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Stats handles GET /api/v1/queue/stats
//
// @Summary  Queue depth counters
// @Tags     queue
// @Produce  json
// @Success  200  {object}  domain.QueueStats
// @Router   /api/v1/queue/stats [get]
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.QueueStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read queue stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Session handles GET /api/v1/session
//
// @Summary  Current session state: token presence and queue counters
// @Tags     queue
// @Produce  json
// @Success  200  {object}  domain.SessionInfo
// @Router   /api/v1/session [get]
func (h *QueueHandler) Session(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Session(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read session")
		return
	}
	respondJSON(w, http.StatusOK, info)
}
