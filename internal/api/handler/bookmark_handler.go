package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/linkspool/linkspool/internal/api/middleware"
	"github.com/linkspool/linkspool/internal/domain"
	"github.com/linkspool/linkspool/internal/service"
)

// BookmarkHandler handles the inspect and submit endpoints.
type BookmarkHandler struct {
	svc    *service.SubmissionService
	logger *zap.Logger
}

func NewBookmarkHandler(svc *service.SubmissionService, logger *zap.Logger) *BookmarkHandler {
	return &BookmarkHandler{svc: svc, logger: logger}
}

type inspectRequest struct {
	URL string `json:"url"`
}

// Inspect handles POST /api/v1/inspect
//
// @Summary     Inspect a URL before submitting it
// @Tags        bookmarks
// @Accept      json
// @Produce     json
// @Param       body  body      inspectRequest  true  "URL to inspect"
// @Success     200   {object}  domain.InspectionResult
// @Failure     400   {object}  map[string]string
// @Router      /api/v1/inspect [post]
func (h *BookmarkHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	var req inspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.svc.Inspect(r.Context(), req.URL)
	if err != nil {
		h.logger.Warn("inspect failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// CurrentInspection handles GET /api/v1/inspect
//
// @Summary  Return the most recent non-stale inspection
// @Tags     bookmarks
// @Produce  json
// @Success  200  {object}  domain.InspectionResult
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/inspect [get]
func (h *BookmarkHandler) CurrentInspection(w http.ResponseWriter, r *http.Request) {
	res := h.svc.CurrentInspection()
	if res == nil {
		respondError(w, http.StatusNotFound, "no inspection available")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Submit handles POST /api/v1/bookmarks
//
// @Summary     Submit a bookmark, queueing it when the remote is unreachable
// @Tags        bookmarks
// @Accept      json
// @Produce     json
// @Param       body  body      domain.BookmarkPayload  true  "Bookmark payload"
// @Success     200   {object}  domain.SubmitResult
// @Failure     422   {object}  map[string]string
// @Failure     502   {object}  map[string]string
// @Router      /api/v1/bookmarks [post]
func (h *BookmarkHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var payload domain.BookmarkPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.svc.Submit(r.Context(), payload)
	if err != nil {
		h.logger.Warn("submit failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("url", payload.URL),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
