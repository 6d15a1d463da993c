package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

type interventionRepository interface {
	Create(ctx context.Context, intervention *models.Intervention) error
	FindByID(ctx context.Context, id string) (*models.Intervention, error)
	FindActiveByEnrollment(ctx context.Context, enrollmentID string) (*models.Intervention, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Intervention, error)
	FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Intervention, error)
	AddTask(ctx context.Context, task *models.InterventionTask) error
	FindTaskDetail(ctx context.Context, taskID string) (*models.InterventionTaskDetail, error)
	CompleteTask(ctx context.Context, interventionID, taskID string) (bool, error)
	Complete(ctx context.Context, id string) error
}

type interventionEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

// InterventionService runs the tiered support-action lifecycle.
type InterventionService struct {
	interventions interventionRepository
	enrollments   interventionEnrollmentRepository
	notifier      *NotificationService
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewInterventionService constructs an InterventionService.
func NewInterventionService(interventions interventionRepository, enrollments interventionEnrollmentRepository, notifier *NotificationService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *InterventionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InterventionService{interventions: interventions, enrollments: enrollments, notifier: notifier, cache: cache, validator: validate, logger: logger}
}

// Create starts an intervention on an enrollment the teacher owns. At most one
// ACTIVE intervention may exist per enrollment; a second attempt conflicts.
func (s *InterventionService) Create(ctx context.Context, teacherID string, req dto.CreateInterventionRequest) (*models.Intervention, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid intervention payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown intervention type "+string(req.Type))
	}

	enrollment, err := s.ownedEnrollment(ctx, teacherID, req.EnrollmentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.interventions.FindActiveByEnrollment(ctx, req.EnrollmentID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment already has an active intervention")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active intervention")
	}

	intervention := &models.Intervention{
		EnrollmentID: req.EnrollmentID,
		Type:         req.Type,
		Status:       models.InterventionStatusActive,
		Notes:        req.Notes,
	}
	for _, description := range req.Tasks {
		intervention.Tasks = append(intervention.Tasks, models.InterventionTask{Description: description})
	}

	if err := s.interventions.Create(ctx, intervention); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment already has an active intervention")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create intervention")
	}

	s.notify(ctx, intervention, enrollment, teacherID)
	s.invalidateDashboard(ctx, enrollment.TeacherID)
	return intervention, nil
}

// AddTask appends a checklist item to an active intervention the teacher owns.
func (s *InterventionService) AddTask(ctx context.Context, teacherID, interventionID string, req dto.AddTaskRequest) (*models.InterventionTask, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	intervention, enrollment, err := s.ownedIntervention(ctx, teacherID, interventionID)
	if err != nil {
		return nil, err
	}
	if intervention.Status != models.InterventionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "intervention is no longer active")
	}

	task := &models.InterventionTask{InterventionID: interventionID, Description: req.Description}
	if err := s.interventions.AddTask(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add task")
	}

	intervention.Tasks = append(intervention.Tasks, *task)
	s.notify(ctx, intervention, enrollment, teacherID)
	return task, nil
}

// CompleteTask marks a task done on behalf of the owning student. Completing
// the last open task flips the intervention to COMPLETED in the same
// transaction; an intervention with no tasks never auto-completes.
func (s *InterventionService) CompleteTask(ctx context.Context, studentID, taskID string) (*dto.TaskCompletionResult, error) {
	detail, err := s.interventions.FindTaskDetail(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if detail.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task belongs to another student")
	}

	result := &dto.TaskCompletionResult{TaskID: taskID, InterventionID: detail.InterventionID}
	if detail.IsCompleted {
		return result, nil
	}

	completed, err := s.interventions.CompleteTask(ctx, detail.InterventionID, taskID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete task")
	}
	result.InterventionCompleted = completed
	return result, nil
}

// Complete closes an intervention the teacher owns regardless of open tasks.
func (s *InterventionService) Complete(ctx context.Context, teacherID, interventionID string) error {
	intervention, enrollment, err := s.ownedIntervention(ctx, teacherID, interventionID)
	if err != nil {
		return err
	}
	if intervention.Status == models.InterventionStatusCompleted {
		return nil
	}
	if err := s.interventions.Complete(ctx, interventionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete intervention")
	}
	s.invalidateDashboard(ctx, enrollment.TeacherID)
	return nil
}

// ListByEnrollment returns the intervention history of an enrollment for the
// owning teacher.
func (s *InterventionService) ListByEnrollment(ctx context.Context, teacherID, enrollmentID string) ([]models.Intervention, error) {
	if _, err := s.ownedEnrollment(ctx, teacherID, enrollmentID); err != nil {
		return nil, err
	}
	interventions, err := s.interventions.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list interventions")
	}
	return interventions, nil
}

// StudentFeed returns the student's interventions across all enrollments,
// active first.
func (s *InterventionService) StudentFeed(ctx context.Context, studentID string) ([]dto.InterventionFeedItem, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	ids := make([]string, len(enrollments))
	for i, enrollment := range enrollments {
		ids[i] = enrollment.ID
	}
	byEnrollment, err := s.interventions.FetchByEnrollments(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch interventions")
	}

	feed := make([]dto.InterventionFeedItem, 0)
	for _, enrollment := range enrollments {
		for i := range byEnrollment[enrollment.ID] {
			intervention := byEnrollment[enrollment.ID][i]
			feed = append(feed, dto.InterventionFeedItem{
				EnrollmentID: enrollment.ID,
				SubjectName:  enrollment.SubjectName,
				TeacherName:  enrollment.TeacherName,
				Intervention: *InterventionProgressOf(&intervention),
			})
		}
	}
	return feed, nil
}

// InterventionProgressOf flattens an intervention into its view form.
func InterventionProgressOf(intervention *models.Intervention) *dto.InterventionProgress {
	if intervention == nil {
		return nil
	}
	completed := 0
	for _, task := range intervention.Tasks {
		if task.IsCompleted {
			completed++
		}
	}
	return &dto.InterventionProgress{
		ID:             intervention.ID,
		Type:           intervention.Type,
		TypeLabel:      intervention.Type.Label(),
		Status:         intervention.Status,
		Notes:          intervention.Notes,
		Tasks:          intervention.Tasks,
		CompletedTasks: completed,
		TotalTasks:     len(intervention.Tasks),
	}
}

func (s *InterventionService) notify(ctx context.Context, intervention *models.Intervention, enrollment *models.EnrollmentDetail, teacherID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyIntervention(ctx, InterventionNotice{
		Intervention: intervention,
		StudentID:    enrollment.StudentID,
		StudentName:  enrollment.StudentName,
		SenderID:     teacherID,
		SenderName:   enrollment.TeacherName,
		SubjectName:  enrollment.SubjectName,
	})
}

func (s *InterventionService) invalidateDashboard(ctx context.Context, teacherID string) {
	if err := s.cache.Invalidate(ctx, "dashboard:"+teacherID+"*"); err != nil {
		s.logger.Debug("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *InterventionService) ownedIntervention(ctx context.Context, teacherID, interventionID string) (*models.Intervention, *models.EnrollmentDetail, error) {
	intervention, err := s.interventions.FindByID(ctx, interventionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "intervention not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intervention")
	}
	enrollment, err := s.ownedEnrollment(ctx, teacherID, intervention.EnrollmentID)
	if err != nil {
		return nil, nil, err
	}
	return intervention, enrollment, nil
}

func (s *InterventionService) ownedEnrollment(ctx context.Context, teacherID, enrollmentID string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another teacher's subject")
	}
	return enrollment, nil
}
