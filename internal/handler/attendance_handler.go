package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/service"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
	"github.com/noah-isme/sma-aris-api/pkg/response"
)

// AttendanceHandler wires HTTP endpoints to attendance recording.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// List godoc
// @Summary List attendance for an enrollment
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param enrollmentId query string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	enrollmentID := strings.TrimSpace(c.Query("enrollmentId"))
	if enrollmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "enrollmentId is required"))
		return
	}

	claims := claimsFromContext(c)
	records, summary, err := h.service.List(c.Request.Context(), claims.UserID, enrollmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"records": records, "summary": summary}, nil)
}

// RecordSheet godoc
// @Summary Record a day's attendance sheet
// @Description Upserts one status per enrollment for the given date
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) RecordSheet(c *gin.Context) {
	var req dto.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	claims := claimsFromContext(c)
	count, err := h.service.RecordSheet(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"recorded": count}, nil)
}
