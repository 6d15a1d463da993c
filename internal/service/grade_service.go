package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

type gradeRepository interface {
	Upsert(ctx context.Context, grade *models.Grade) error
	BulkUpsert(ctx context.Context, grades []*models.Grade) error
	ListByEnrollment(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
}

type gradeEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	UpdateSnapshot(ctx context.Context, enrollmentID string, snapshot models.EnrollmentSnapshot) error
}

type gradeAttendanceRepository interface {
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error)
}

// GradeService records scored assignments and keeps enrollment snapshots fresh.
type GradeService struct {
	grades      gradeRepository
	enrollments gradeEnrollmentRepository
	attendance  gradeAttendanceRepository
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs a GradeService.
func NewGradeService(grades gradeRepository, enrollments gradeEnrollmentRepository, attendance gradeAttendanceRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{grades: grades, enrollments: enrollments, attendance: attendance, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Record upserts one grade for an enrollment the teacher owns, then refreshes
// the enrollment's advisory snapshot.
func (s *GradeService) Record(ctx context.Context, teacherID string, req dto.RecordGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	enrollment, err := s.ownedEnrollment(ctx, teacherID, req.EnrollmentID)
	if err != nil {
		return nil, err
	}

	grade := &models.Grade{
		EnrollmentID:   req.EnrollmentID,
		AssignmentKey:  req.AssignmentKey,
		AssignmentName: req.AssignmentName,
		CategoryID:     req.CategoryID,
		Score:          req.Score,
		TotalScore:     req.TotalScore,
		Quarter:        req.Quarter,
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	s.refreshSnapshot(ctx, enrollment)
	return grade, nil
}

// BulkRecord applies a batch of grade writes for one subject. Every enrollment
// in the batch must belong to the subject and the subject to the teacher.
func (s *GradeService) BulkRecord(ctx context.Context, teacherID string, req dto.BulkGradesRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk grade payload")
	}

	grades := make([]*models.Grade, 0, len(req.Grades))
	touched := make(map[string]*models.EnrollmentDetail, len(req.Grades))
	for _, item := range req.Grades {
		enrollment, ok := touched[item.EnrollmentID]
		if !ok {
			var err error
			enrollment, err = s.ownedEnrollment(ctx, teacherID, item.EnrollmentID)
			if err != nil {
				return 0, err
			}
			touched[item.EnrollmentID] = enrollment
		}
		if enrollment.SubjectID != req.SubjectID {
			return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("enrollment %s does not belong to subject %s", item.EnrollmentID, req.SubjectID))
		}
		grades = append(grades, &models.Grade{
			EnrollmentID:   item.EnrollmentID,
			AssignmentKey:  item.AssignmentKey,
			AssignmentName: item.AssignmentName,
			CategoryID:     item.CategoryID,
			Score:          item.Score,
			TotalScore:     item.TotalScore,
			Quarter:        item.Quarter,
		})
	}

	if err := s.grades.BulkUpsert(ctx, grades); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grades")
	}

	for _, enrollment := range touched {
		s.refreshSnapshot(ctx, enrollment)
	}
	return len(grades), nil
}

// List returns an enrollment's grades for the owning teacher.
func (s *GradeService) List(ctx context.Context, teacherID string, filter models.GradeFilter) ([]models.Grade, error) {
	if _, err := s.ownedEnrollment(ctx, teacherID, filter.EnrollmentID); err != nil {
		return nil, err
	}
	grades, err := s.grades.ListByEnrollment(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// refreshSnapshot recomputes the advisory fields after a mutation and drops
// dependent cached views. Failures are logged, never surfaced to the writer.
func (s *GradeService) refreshSnapshot(ctx context.Context, enrollment *models.EnrollmentDetail) {
	grades, err := s.grades.ListByEnrollment(ctx, models.GradeFilter{EnrollmentID: enrollment.ID})
	if err != nil {
		s.logger.Warn("snapshot refresh: list grades failed", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		return
	}
	records, err := s.attendance.ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		s.logger.Warn("snapshot refresh: list attendance failed", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		return
	}

	snapshot := ComputeSnapshot(grades, records)
	if s.metrics != nil {
		s.metrics.RecordRiskClassification(string(snapshot.RiskStatus))
	}
	if err := s.enrollments.UpdateSnapshot(ctx, enrollment.ID, snapshot); err != nil {
		s.logger.Warn("snapshot refresh: update failed", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
	}

	if err := s.cache.Invalidate(ctx, "dashboard:"+enrollment.TeacherID+"*"); err != nil {
		s.logger.Debug("dashboard cache invalidation failed", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "risk:"+enrollment.StudentID+"*"); err != nil {
		s.logger.Debug("risk cache invalidation failed", zap.Error(err))
	}
}

func (s *GradeService) ownedEnrollment(ctx context.Context, teacherID, enrollmentID string) (*models.EnrollmentDetail, error) {
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
