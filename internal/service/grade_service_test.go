package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

const (
	testSubjectID     = "9b2df9f1-8aa2-4c1e-93a7-0a6fd5c8d001"
	otherEnrollmentID = "1f0e8a4d-3b55-4d2b-8e6f-2bfb5b9ad002"
)

type mockGradeRepo struct {
	grades map[string][]models.Grade
	bulk   int
}

func (m *mockGradeRepo) Upsert(ctx context.Context, grade *models.Grade) error {
	if m.grades == nil {
		m.grades = make(map[string][]models.Grade)
	}
	grade.ID = "g-1"
	m.grades[grade.EnrollmentID] = append(m.grades[grade.EnrollmentID], *grade)
	return nil
}

func (m *mockGradeRepo) BulkUpsert(ctx context.Context, grades []*models.Grade) error {
	for _, grade := range grades {
		if err := m.Upsert(ctx, grade); err != nil {
			return err
		}
	}
	m.bulk++
	return nil
}

func (m *mockGradeRepo) ListByEnrollment(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	return m.grades[filter.EnrollmentID], nil
}

type mockGradeEnrollmentRepo struct {
	items     map[string]*models.EnrollmentDetail
	snapshots map[string]models.EnrollmentSnapshot
}

func (m *mockGradeEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if enrollment, ok := m.items[id]; ok {
		cp := *enrollment
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeEnrollmentRepo) UpdateSnapshot(ctx context.Context, enrollmentID string, snapshot models.EnrollmentSnapshot) error {
	if m.snapshots == nil {
		m.snapshots = make(map[string]models.EnrollmentSnapshot)
	}
	m.snapshots[enrollmentID] = snapshot
	return nil
}

type mockGradeAttendanceRepo struct {
	records map[string][]models.AttendanceRecord
}

func (m *mockGradeAttendanceRepo) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error) {
	return m.records[enrollmentID], nil
}

func gradeRequest(enrollmentID, key string, score, total float64) dto.RecordGradeRequest {
	return dto.RecordGradeRequest{
		EnrollmentID:   enrollmentID,
		AssignmentKey:  key,
		AssignmentName: "Quiz",
		CategoryID:     "written_works",
		Score:          score,
		TotalScore:     total,
		Quarter:        1,
	}
}

func TestGradeServiceRecordRefreshesSnapshot(t *testing.T) {
	repo := &mockGradeRepo{}
	enrollments := &mockGradeEnrollmentRepo{
		items: map[string]*models.EnrollmentDetail{
			testEnrollmentID: enrollmentDetail(testEnrollmentID, "st-1", "t-1"),
		},
	}
	service := NewGradeService(repo, enrollments, &mockGradeAttendanceRepo{}, nil, nil, validator.New(), zap.NewNop())

	grade, err := service.Record(context.Background(), "t-1", gradeRequest(testEnrollmentID, "quiz_1", 60, 100))
	require.NoError(t, err)
	assert.Equal(t, "g-1", grade.ID)

	snapshot, ok := enrollments.snapshots[testEnrollmentID]
	require.True(t, ok)
	require.NotNil(t, snapshot.CurrentGrade)
	assert.Equal(t, 60.0, *snapshot.CurrentGrade)
	assert.Equal(t, models.RiskHigh, snapshot.RiskStatus)
	assert.Equal(t, 100.0, snapshot.AttendanceRate)
}

func TestGradeServiceRecordForeignEnrollment(t *testing.T) {
	enrollments := &mockGradeEnrollmentRepo{
		items: map[string]*models.EnrollmentDetail{
			testEnrollmentID: enrollmentDetail(testEnrollmentID, "st-1", "t-1"),
		},
	}
	service := NewGradeService(&mockGradeRepo{}, enrollments, &mockGradeAttendanceRepo{}, nil, nil, validator.New(), zap.NewNop())

	_, err := service.Record(context.Background(), "t-2", gradeRequest(testEnrollmentID, "quiz_1", 60, 100))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceRecordValidation(t *testing.T) {
	service := NewGradeService(&mockGradeRepo{}, &mockGradeEnrollmentRepo{}, &mockGradeAttendanceRepo{}, nil, nil, validator.New(), zap.NewNop())

	_, err := service.Record(context.Background(), "t-1", gradeRequest(testEnrollmentID, "quiz_1", 10, 0))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceBulkRecord(t *testing.T) {
	repo := &mockGradeRepo{}
	first := enrollmentDetail(testEnrollmentID, "st-1", "t-1")
	first.SubjectID = testSubjectID
	second := enrollmentDetail(otherEnrollmentID, "st-2", "t-1")
	second.SubjectID = testSubjectID
	enrollments := &mockGradeEnrollmentRepo{
		items: map[string]*models.EnrollmentDetail{
			testEnrollmentID:  first,
			otherEnrollmentID: second,
		},
	}
	service := NewGradeService(repo, enrollments, &mockGradeAttendanceRepo{}, nil, nil, validator.New(), zap.NewNop())

	count, err := service.BulkRecord(context.Background(), "t-1", dto.BulkGradesRequest{
		SubjectID: testSubjectID,
		Grades: []dto.RecordGradeRequest{
			gradeRequest(testEnrollmentID, "quiz_1", 18, 20),
			gradeRequest(testEnrollmentID, "quiz_2", 16, 20),
			gradeRequest(otherEnrollmentID, "quiz_1", 12, 20),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, repo.bulk)
	// One snapshot write per distinct enrollment.
	assert.Len(t, enrollments.snapshots, 2)
}

func TestGradeServiceBulkRecordSubjectMismatch(t *testing.T) {
	enrollment := enrollmentDetail(testEnrollmentID, "st-1", "t-1")
	enrollment.SubjectID = "other-subject"
	enrollments := &mockGradeEnrollmentRepo{
		items: map[string]*models.EnrollmentDetail{testEnrollmentID: enrollment},
	}
	service := NewGradeService(&mockGradeRepo{}, enrollments, &mockGradeAttendanceRepo{}, nil, nil, validator.New(), zap.NewNop())

	_, err := service.BulkRecord(context.Background(), "t-1", dto.BulkGradesRequest{
		SubjectID: testSubjectID,
		Grades:    []dto.RecordGradeRequest{gradeRequest(testEnrollmentID, "quiz_1", 18, 20)},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestComputeSnapshotNoData(t *testing.T) {
	snapshot := ComputeSnapshot(nil, nil)
	assert.Nil(t, snapshot.CurrentGrade)
	assert.Equal(t, 100.0, snapshot.AttendanceRate)
	assert.Equal(t, models.RiskLow, snapshot.RiskStatus)
}
