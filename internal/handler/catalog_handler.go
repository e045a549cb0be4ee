package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/strength-log-api/internal/catalog"
	"github.com/noah-isme/strength-log-api/internal/models"
	"github.com/noah-isme/strength-log-api/pkg/response"
)

// CatalogHandler serves the fixed VIA taxonomy and garden growth tiers.
type CatalogHandler struct{}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// Strengths godoc
// @Summary List the VIA strength taxonomy
// @Description 24 character strengths grouped into 6 virtue categories
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/strengths [get]
func (h *CatalogHandler) Strengths(c *gin.Context) {
	response.JSON(c, http.StatusOK, catalog.Categories(), nil)
}

// GrowthStages godoc
// @Summary List garden growth tiers
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/growth-stages [get]
func (h *CatalogHandler) GrowthStages(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.GrowthStages(), nil)
}
