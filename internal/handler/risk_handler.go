package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-aris-api/internal/service"
	"github.com/noah-isme/sma-aris-api/pkg/response"
)

// RiskHandler serves the risk overview and per-enrollment reports.
type RiskHandler struct {
	service *service.RiskService
}

// NewRiskHandler creates a new handler.
func NewRiskHandler(svc *service.RiskService) *RiskHandler {
	return &RiskHandler{service: svc}
}

// Overview godoc
// @Summary Risk assessment across all of the student's enrollments
// @Tags Risk
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=dto.RiskOverview}
// @Router /risk [get]
func (h *RiskHandler) Overview(c *gin.Context) {
	claims := claimsFromContext(c)
	overview, err := h.service.Overview(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// Report godoc
// @Summary Risk report for a single enrollment
// @Tags Risk
// @Produce json
// @Security BearerAuth
// @Param enrollmentId path string true "Enrollment ID"
// @Success 200 {object} response.Envelope{data=dto.RiskReport}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /risk/{enrollmentId} [get]
func (h *RiskHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	report, err := h.service.Report(c.Request.Context(), claims.UserID, claims.Role, c.Param("enrollmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
