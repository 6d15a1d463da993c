package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	"github.com/noah-isme/sma-aris-api/internal/service"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
	"github.com/noah-isme/sma-aris-api/pkg/response"
)

// GradeHandler wires HTTP endpoints to grade recording.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler creates a new handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// List godoc
// @Summary List grades for an enrollment
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param enrollmentId query string true "Enrollment ID"
// @Param categoryId query string false "Category ID filter"
// @Param quarter query int false "Quarter filter (1-4)"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	enrollmentID := strings.TrimSpace(c.Query("enrollmentId"))
	if enrollmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "enrollmentId is required"))
		return
	}
	filter := models.GradeFilter{
		EnrollmentID: enrollmentID,
		CategoryID:   strings.TrimSpace(c.Query("categoryId")),
	}
	if raw := c.Query("quarter"); raw != "" {
		quarter, err := strconv.Atoi(raw)
		if err != nil || quarter < 1 || quarter > 4 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "quarter must be between 1 and 4"))
			return
		}
		filter.Quarter = quarter
	}

	claims := claimsFromContext(c)
	grades, err := h.service.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Record godoc
// @Summary Record one grade
// @Description Upserts the grade identified by enrollment, assignment key and quarter
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.RecordGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Record(c *gin.Context) {
	var req dto.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	claims := claimsFromContext(c)
	grade, err := h.service.Record(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// BulkRecord godoc
// @Summary Record a batch of grades
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkGradesRequest true "Bulk grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades/bulk [post]
func (h *GradeHandler) BulkRecord(c *gin.Context) {
	var req dto.BulkGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk grade payload"))
		return
	}

	claims := claimsFromContext(c)
	count, err := h.service.BulkRecord(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"recorded": count}, nil)
}
