package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-aris-api/internal/service"
	"github.com/noah-isme/sma-aris-api/pkg/response"
)

// AnalyticsHandler serves the student analytics views.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler creates a new handler.
func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// Index godoc
// @Summary Per-subject grade cards for the student
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=dto.AnalyticsIndex}
// @Router /analytics [get]
func (h *AnalyticsHandler) Index(c *gin.Context) {
	claims := claimsFromContext(c)
	index, err := h.service.Index(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, index, nil)
}

// Detail godoc
// @Summary Grade breakdown for a single enrollment
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param enrollmentId path string true "Enrollment ID"
// @Success 200 {object} response.Envelope{data=dto.AnalyticsDetail}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /analytics/{enrollmentId} [get]
func (h *AnalyticsHandler) Detail(c *gin.Context) {
	claims := claimsFromContext(c)
	detail, err := h.service.Detail(c.Request.Context(), claims.UserID, c.Param("enrollmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
