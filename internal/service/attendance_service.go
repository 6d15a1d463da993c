package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

type attendanceRepository interface {
	BulkUpsert(ctx context.Context, records []*models.AttendanceRecord) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error)
}

type attendanceEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	UpdateSnapshot(ctx context.Context, enrollmentID string, snapshot models.EnrollmentSnapshot) error
}

type attendanceGradeRepository interface {
	ListByEnrollment(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
}

// AttendanceService records daily attendance sheets.
type AttendanceService struct {
	attendance  attendanceRepository
	enrollments attendanceEnrollmentRepository
	grades      attendanceGradeRepository
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(attendance attendanceRepository, enrollments attendanceEnrollmentRepository, grades attendanceGradeRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{attendance: attendance, enrollments: enrollments, grades: grades, cache: cache, validator: validate, logger: logger}
}

// RecordSheet upserts one day's status for each enrollment in the sheet.
// Re-recording the same day replaces the previous status. Every entry is
// validated before anything is written, and the sheet is committed in a single
// transaction, so a bad entry rejects the whole sheet.
func (s *AttendanceService) RecordSheet(ctx context.Context, teacherID string, req dto.RecordAttendanceRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	records := make([]*models.AttendanceRecord, 0, len(req.Entries))
	enrollments := make([]*models.EnrollmentDetail, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return 0, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status "+string(entry.Status))
		}
		enrollment, err := s.ownedEnrollment(ctx, teacherID, entry.EnrollmentID)
		if err != nil {
			return 0, err
		}
		if enrollment.SubjectID != req.SubjectID {
			return 0, appErrors.Clone(appErrors.ErrValidation, "enrollment does not belong to the subject")
		}
		records = append(records, &models.AttendanceRecord{
			EnrollmentID: entry.EnrollmentID,
			Date:         date,
			Status:       entry.Status,
		})
		enrollments = append(enrollments, enrollment)
	}

	if err := s.attendance.BulkUpsert(ctx, records); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	for _, enrollment := range enrollments {
		s.refreshSnapshot(ctx, enrollment)
	}
	return len(records), nil
}

// List returns the enrollment's attendance records plus the aggregate summary.
func (s *AttendanceService) List(ctx context.Context, teacherID, enrollmentID string) ([]models.AttendanceRecord, models.AttendanceSummary, error) {
	if _, err := s.ownedEnrollment(ctx, teacherID, enrollmentID); err != nil {
		return nil, models.AttendanceSummary{}, err
	}
	records, err := s.attendance.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, models.AttendanceSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, SummarizeAttendance(records), nil
}

func (s *AttendanceService) refreshSnapshot(ctx context.Context, enrollment *models.EnrollmentDetail) {
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

	if err := s.enrollments.UpdateSnapshot(ctx, enrollment.ID, ComputeSnapshot(grades, records)); err != nil {
		s.logger.Warn("snapshot refresh: update failed", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
	}

	if err := s.cache.Invalidate(ctx, "dashboard:"+enrollment.TeacherID+"*"); err != nil {
		s.logger.Debug("dashboard cache invalidation failed", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "risk:"+enrollment.StudentID+"*"); err != nil {
		s.logger.Debug("risk cache invalidation failed", zap.Error(err))
	}
}

func (s *AttendanceService) ownedEnrollment(ctx context.Context, teacherID, enrollmentID string) (*models.EnrollmentDetail, error) {
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
