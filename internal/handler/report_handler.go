package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/strength-log-api/internal/models"
	appErrors "github.com/noah-isme/strength-log-api/pkg/errors"
	"github.com/noah-isme/strength-log-api/pkg/response"
)

type reportService interface {
	Draft(ctx context.Context, claims *models.JWTClaims, req models.DraftReportRequest) (*models.DraftReportResponse, error)
}

// ReportHandler exposes the AI report drafting endpoint.
type ReportHandler struct {
	service reportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Draft godoc
// @Summary Draft report text for a student
// @Description Generate Korean report sentences from approved observation evidence. The caller supplies their own Gemini API key per request; it is never stored.
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body models.DraftReportRequest true "Draft payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/draft [post]
func (h *ReportHandler) Draft(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.DraftReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid draft payload"))
		return
	}

	draft, err := h.service.Draft(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, draft, nil)
}
