package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

type mockSubjectRepo struct {
	items   map[string]*models.Subject
	nextID  int
	deleted []string
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if m.items == nil {
		m.items = make(map[string]*models.Subject)
	}
	m.nextID++
	subject.ID = "sub-" + string(rune('0'+m.nextID))
	cp := *subject
	m.items[subject.ID] = &cp
	return nil
}

func (m *mockSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	cp := *subject
	m.items[subject.ID] = &cp
	return nil
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := m.items[id]; ok {
		cp := *subject
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.SubjectDetail, error) {
	var result []models.SubjectDetail
	for _, subject := range m.items {
		if subject.TeacherID == teacherID {
			result = append(result, models.SubjectDetail{Subject: *subject, EnrollmentCount: 1})
		}
	}
	return result, nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockSubjectEnrollmentRepo struct {
	created []models.Enrollment
	err     error
}

func (m *mockSubjectEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.err != nil {
		return m.err
	}
	enrollment.ID = testEnrollmentID
	m.created = append(m.created, *enrollment)
	return nil
}

func (m *mockSubjectEnrollmentRepo) ListBySubject(ctx context.Context, subjectID string) ([]models.EnrollmentDetail, error) {
	var result []models.EnrollmentDetail
	for _, enrollment := range m.created {
		if enrollment.SubjectID == subjectID {
			result = append(result, models.EnrollmentDetail{Enrollment: enrollment})
		}
	}
	return result, nil
}

func newSubjectService(subjects *mockSubjectRepo, enrollments *mockSubjectEnrollmentRepo) *SubjectService {
	if enrollments == nil {
		enrollments = &mockSubjectEnrollmentRepo{}
	}
	return NewSubjectService(subjects, enrollments, nil, zap.NewNop())
}

func subjectRequest(name string) dto.CreateSubjectRequest {
	return dto.CreateSubjectRequest{Name: name, SchoolYear: "2025-2026"}
}

func TestSubjectCreateNormalizesCategories(t *testing.T) {
	repo := &mockSubjectRepo{}
	service := newSubjectService(repo, nil)

	subject, err := service.Create(context.Background(), "t-1", subjectRequest("Mathematics"))
	require.NoError(t, err)
	require.NotEmpty(t, subject.ID)

	// Missing categories fall back to the standard three-way split.
	require.Len(t, subject.Categories, 3)
	var totalWeight float64
	for _, category := range subject.Categories {
		assert.NotEmpty(t, category.ID)
		totalWeight += category.Weight
	}
	assert.InDelta(t, 1.0, totalWeight, 0.001)
}

func TestSubjectCreateRejectsBadWeights(t *testing.T) {
	service := newSubjectService(&mockSubjectRepo{}, nil)

	req := subjectRequest("Mathematics")
	req.Categories = []models.GradeCategory{
		{Label: "Written Works", Weight: 40},
		{Label: "Performance Task", Weight: 40},
	}
	_, err := service.Create(context.Background(), "t-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErrors.FromError(err).Code)

	req.Categories = []models.GradeCategory{
		{Label: "Written Works", Weight: 30},
		{Label: "Performance Task", Weight: 70},
	}
	subject, err := service.Create(context.Background(), "t-1", req)
	require.NoError(t, err)
	assert.Equal(t, 0.3, subject.Categories[0].Weight)
	assert.Equal(t, 0.7, subject.Categories[1].Weight)
}

func TestSubjectUpdateRejectsBadWeights(t *testing.T) {
	repo := &mockSubjectRepo{}
	service := newSubjectService(repo, nil)

	subject, err := service.Create(context.Background(), "t-1", subjectRequest("Mathematics"))
	require.NoError(t, err)

	_, err = service.Update(context.Background(), "t-1", subject.ID, dto.UpdateSubjectRequest{
		Name:       "Mathematics",
		SchoolYear: "2025-2026",
		Categories: []models.GradeCategory{{Label: "Written Works", Weight: 120}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErrors.FromError(err).Code)
}

func TestSubjectCreateValidation(t *testing.T) {
	service := newSubjectService(&mockSubjectRepo{}, nil)

	_, err := service.Create(context.Background(), "t-1", subjectRequest("M"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectUpdateOwnership(t *testing.T) {
	repo := &mockSubjectRepo{}
	service := newSubjectService(repo, nil)

	subject, err := service.Create(context.Background(), "t-1", subjectRequest("Mathematics"))
	require.NoError(t, err)

	updated, err := service.Update(context.Background(), "t-1", subject.ID, dto.UpdateSubjectRequest{Name: "Advanced Mathematics", SchoolYear: "2025-2026"})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Mathematics", updated.Name)

	_, err = service.Update(context.Background(), "t-2", subject.ID, dto.UpdateSubjectRequest{Name: "Hijacked", SchoolYear: "2025-2026"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = service.Update(context.Background(), "t-1", "sub-missing", dto.UpdateSubjectRequest{Name: "Ghost", SchoolYear: "2025-2026"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectGetIncludesGradeStructure(t *testing.T) {
	repo := &mockSubjectRepo{}
	service := newSubjectService(repo, nil)

	req := subjectRequest("Mathematics")
	req.Categories = []models.GradeCategory{
		{Label: "Written Works", Weight: 50, Tasks: []models.AssignmentTemplate{
			{Label: "Quiz 1", Total: 20},
			{Label: "Quiz 2", Total: 20},
		}},
		{Label: "Quarterly Exam", Weight: 50},
	}
	created, err := service.Create(context.Background(), "t-1", req)
	require.NoError(t, err)

	detail, err := service.Get(context.Background(), "t-1", created.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Subject)
	assert.Equal(t, created.ID, detail.Subject.ID)

	require.Len(t, detail.GradeStructure.Categories, 2)
	require.Len(t, detail.GradeStructure.Assignments, 2)
	assert.Equal(t, "Quiz 1", detail.GradeStructure.Assignments[0].Label)
	assert.Equal(t, "written_works", detail.GradeStructure.Assignments[0].CategoryID)
	assert.Equal(t, 0.5, detail.GradeStructure.Assignments[0].CategoryWeight)

	_, err = service.Get(context.Background(), "t-2", created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubjectDelete(t *testing.T) {
	repo := &mockSubjectRepo{}
	service := newSubjectService(repo, nil)

	subject, err := service.Create(context.Background(), "t-1", subjectRequest("Mathematics"))
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), "t-1", subject.ID))
	assert.Equal(t, []string{subject.ID}, repo.deleted)

	err = service.Delete(context.Background(), "t-1", subject.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectEnroll(t *testing.T) {
	repo := &mockSubjectRepo{}
	enrollments := &mockSubjectEnrollmentRepo{}
	service := newSubjectService(repo, enrollments)

	subject, err := service.Create(context.Background(), "t-1", subjectRequest("Mathematics"))
	require.NoError(t, err)

	enrollment, err := service.Enroll(context.Background(), "t-1", subject.ID, dto.EnrollStudentRequest{StudentID: otherEnrollmentID})
	require.NoError(t, err)
	assert.Equal(t, subject.ID, enrollment.SubjectID)

	roster, err := service.Roster(context.Background(), "t-1", subject.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 1)
}

func TestSubjectEnrollDuplicate(t *testing.T) {
	repo := &mockSubjectRepo{}
	enrollments := &mockSubjectEnrollmentRepo{err: &pq.Error{Code: "23505"}}
	service := newSubjectService(repo, enrollments)

	subject, err := service.Create(context.Background(), "t-1", subjectRequest("Mathematics"))
	require.NoError(t, err)

	_, err = service.Enroll(context.Background(), "t-1", subject.ID, dto.EnrollStudentRequest{StudentID: otherEnrollmentID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
