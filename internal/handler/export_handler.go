package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-aris-api/internal/service"
	"github.com/noah-isme/sma-aris-api/pkg/response"
)

// ExportHandler serves downloadable risk reports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// RiskCSV godoc
// @Summary Download the at-risk roster as CSV
// @Tags Exports
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {string} string "CSV payload"
// @Failure 403 {object} response.Envelope
// @Router /exports/risk.csv [get]
func (h *ExportHandler) RiskCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	payload, err := h.service.RiskListCSV(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="risk-report.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", payload)
}

// SubjectRiskPDF godoc
// @Summary Download a subject risk report as PDF
// @Tags Exports
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {string} string "PDF payload"
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/subjects/{id}/risk.pdf [get]
func (h *ExportHandler) SubjectRiskPDF(c *gin.Context) {
	claims := claimsFromContext(c)
	payload, title, err := h.service.SubjectRiskPDF(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+".pdf"))
	c.Data(http.StatusOK, "application/pdf", payload)
}
