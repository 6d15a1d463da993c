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

// InterventionHandler wires HTTP endpoints to the intervention lifecycle.
type InterventionHandler struct {
	service *service.InterventionService
}

// NewInterventionHandler creates a new handler.
func NewInterventionHandler(svc *service.InterventionService) *InterventionHandler {
	return &InterventionHandler{service: svc}
}

// Create godoc
// @Summary Start an intervention
// @Description Creates an intervention; an enrollment may hold only one active intervention
// @Tags Interventions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateInterventionRequest true "Intervention payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /interventions [post]
func (h *InterventionHandler) Create(c *gin.Context) {
	var req dto.CreateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid intervention payload"))
		return
	}

	claims := claimsFromContext(c)
	intervention, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, intervention)
}

// List godoc
// @Summary List interventions for an enrollment
// @Tags Interventions
// @Produce json
// @Security BearerAuth
// @Param enrollmentId query string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /interventions [get]
func (h *InterventionHandler) List(c *gin.Context) {
	enrollmentID := strings.TrimSpace(c.Query("enrollmentId"))
	if enrollmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "enrollmentId is required"))
		return
	}

	claims := claimsFromContext(c)
	interventions, err := h.service.ListByEnrollment(c.Request.Context(), claims.UserID, enrollmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, interventions, nil)
}

// AddTask godoc
// @Summary Add a checklist task
// @Tags Interventions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Intervention ID"
// @Param payload body dto.AddTaskRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /interventions/{id}/tasks [post]
func (h *InterventionHandler) AddTask(c *gin.Context) {
	var req dto.AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task payload"))
		return
	}

	claims := claimsFromContext(c)
	task, err := h.service.AddTask(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// Complete godoc
// @Summary Close an intervention
// @Tags Interventions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Intervention ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /interventions/{id}/complete [post]
func (h *InterventionHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Complete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentFeed godoc
// @Summary Student intervention feed
// @Tags Interventions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /interventions/feed [get]
func (h *InterventionHandler) StudentFeed(c *gin.Context) {
	claims := claimsFromContext(c)
	feed, err := h.service.StudentFeed(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feed, nil)
}

// CompleteTask godoc
// @Summary Complete a checklist task
// @Description Marks a task done for the owning student; finishing the last task completes the intervention
// @Tags Interventions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tasks/{id}/complete [post]
func (h *InterventionHandler) CompleteTask(c *gin.Context) {
	claims := claimsFromContext(c)
	result, err := h.service.CompleteTask(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
