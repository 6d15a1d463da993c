package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

type subjectRepository interface {
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.SubjectDetail, error)
	Delete(ctx context.Context, id string) error
}

type subjectEnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	ListBySubject(ctx context.Context, subjectID string) ([]models.EnrollmentDetail, error)
}

// SubjectService manages teacher-owned subjects and their rosters.
type SubjectService struct {
	subjects    subjectRepository
	enrollments subjectEnrollmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(subjects subjectRepository, enrollments subjectEnrollmentRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubjectService{subjects: subjects, enrollments: enrollments, validator: validate, logger: logger}
}

// Create validates and persists a subject. The grade-category structure is
// normalized before storage so reads never see raw percent weights.
func (s *SubjectService) Create(ctx context.Context, teacherID string, req dto.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	categories := NormalizeGradeCategories(req.Categories)
	if err := validateCategoryWeights(categories); err != nil {
		return nil, err
	}

	subject := &models.Subject{
		TeacherID:  teacherID,
		Name:       req.Name,
		Section:    req.Section,
		GradeLevel: req.GradeLevel,
		Strand:     req.Strand,
		Track:      req.Track,
		RoomNumber: req.RoomNumber,
		SchoolYear: req.SchoolYear,
		Color:      req.Color,
		Categories: categories,
	}

	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.logger.Info("subject created", zap.String("subject_id", subject.ID), zap.String("teacher_id", teacherID))
	return subject, nil
}

// Update validates and persists subject changes for the owning teacher.
func (s *SubjectService) Update(ctx context.Context, teacherID, subjectID string, req dto.UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	categories := NormalizeGradeCategories(req.Categories)
	if err := validateCategoryWeights(categories); err != nil {
		return nil, err
	}

	subject, err := s.ownedSubject(ctx, teacherID, subjectID)
	if err != nil {
		return nil, err
	}

	subject.Name = req.Name
	subject.Section = req.Section
	subject.GradeLevel = req.GradeLevel
	subject.Strand = req.Strand
	subject.Track = req.Track
	subject.RoomNumber = req.RoomNumber
	subject.SchoolYear = req.SchoolYear
	subject.Color = req.Color
	subject.Categories = categories

	if err := s.subjects.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Get returns one subject plus its grade structure for the owning teacher.
func (s *SubjectService) Get(ctx context.Context, teacherID, subjectID string) (*dto.SubjectResponse, error) {
	subject, err := s.ownedSubject(ctx, teacherID, subjectID)
	if err != nil {
		return nil, err
	}
	return &dto.SubjectResponse{
		Subject:        subject,
		GradeStructure: BuildGradeStructure(subject.Categories),
	}, nil
}

// List returns the teacher's subjects with enrollment counts.
func (s *SubjectService) List(ctx context.Context, teacherID string) ([]models.SubjectDetail, error) {
	subjects, err := s.subjects.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Delete removes a subject owned by the teacher.
func (s *SubjectService) Delete(ctx context.Context, teacherID, subjectID string) error {
	if _, err := s.ownedSubject(ctx, teacherID, subjectID); err != nil {
		return err
	}
	if err := s.subjects.Delete(ctx, subjectID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

// Enroll registers a student into the teacher's subject.
func (s *SubjectService) Enroll(ctx context.Context, teacherID, subjectID string, req dto.EnrollStudentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.ownedSubject(ctx, teacherID, subjectID); err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, SubjectID: subjectID}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return enrollment, nil
}

// Roster returns the subject's enrollments for the owning teacher.
func (s *SubjectService) Roster(ctx context.Context, teacherID, subjectID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.ownedSubject(ctx, teacherID, subjectID); err != nil {
		return nil, err
	}
	roster, err := s.enrollments.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return roster, nil
}

// validateCategoryWeights runs after normalization, so weights are fractions.
func validateCategoryWeights(categories []models.GradeCategory) error {
	var sum float64
	for _, category := range categories {
		if category.Weight < 0 {
			return appErrors.Clone(appErrors.ErrInvalidWeights, "category weight cannot be negative")
		}
		sum += category.Weight
	}
	if math.Abs(sum-1) > 0.001 {
		return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("category weights must sum to 100%%, got %.1f%%", sum*100))
	}
	return nil
}

func (s *SubjectService) ownedSubject(ctx context.Context, teacherID, subjectID string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if subject.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another teacher")
	}
	return subject, nil
}
