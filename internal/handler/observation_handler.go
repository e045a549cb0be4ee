package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/strength-log-api/internal/models"
	appErrors "github.com/noah-isme/strength-log-api/pkg/errors"
	"github.com/noah-isme/strength-log-api/pkg/response"
)

type observationService interface {
	Submit(ctx context.Context, claims *models.JWTClaims, req models.SubmitObservationRequest) (*models.ObservationResult, error)
	Decide(ctx context.Context, claims *models.JWTClaims, observationID string, req models.DecisionRequest) (*models.ObservationResult, error)
	Pending(ctx context.Context, claims *models.JWTClaims) ([]models.Observation, error)
	List(ctx context.Context, claims *models.JWTClaims, filter models.ObservationFilter) ([]models.Observation, error)
	Garden(ctx context.Context, claims *models.JWTClaims, studentID string) (*models.GardenView, error)
}

// ObservationHandler exposes observation submission, review, and garden endpoints.
type ObservationHandler struct {
	service observationService
}

// NewObservationHandler creates a new handler.
func NewObservationHandler(svc observationService) *ObservationHandler {
	return &ObservationHandler{service: svc}
}

// Submit godoc
// @Summary Submit a strength observation
// @Description Teachers' records are approved immediately; peer and self records await review
// @Tags Observations
// @Accept json
// @Produce json
// @Param payload body models.SubmitObservationRequest true "Observation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /observations [post]
func (h *ObservationHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SubmitObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid observation payload"))
		return
	}

	result, err := h.service.Submit(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// List godoc
// @Summary List observations
// @Description Teachers see their class records; students see approved records about them and their own submissions
// @Tags Observations
// @Produce json
// @Param target_id query string false "Target student ID"
// @Param writer_id query string false "Writer ID"
// @Param status query string false "Status filter"
// @Param mine query bool false "Only records written by the caller"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /observations [get]
func (h *ObservationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ObservationFilter{
		TargetID: strings.TrimSpace(c.Query("target_id")),
		WriterID: strings.TrimSpace(c.Query("writer_id")),
		Status:   models.ObservationStatus(strings.TrimSpace(c.Query("status"))),
	}
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		filter.WriterID = claims.UserID
	}

	observations, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, observations, nil)
}

// Pending godoc
// @Summary List observations awaiting review
// @Tags Observations
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /observations/pending [get]
func (h *ObservationHandler) Pending(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	observations, err := h.service.Pending(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, observations, nil)
}

// Decide godoc
// @Summary Approve or reject a pending observation
// @Tags Observations
// @Accept json
// @Produce json
// @Param id path string true "Observation ID"
// @Param payload body models.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /observations/{id}/decision [post]
func (h *ObservationHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	result, err := h.service.Decide(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Garden godoc
// @Summary Garden view for a student
// @Description Approved counts, garden level, growth stage, and per-strength tallies
// @Tags Observations
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/garden [get]
func (h *ObservationHandler) Garden(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	garden, err := h.service.Garden(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, garden, nil)
}
