package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
	"github.com/noah-isme/sma-aris-api/pkg/storage"
)

type mockExportEnrollmentRepo struct {
	enrollments []models.EnrollmentDetail
}

func (m *mockExportEnrollmentRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.EnrollmentDetail, error) {
	return m.enrollments, nil
}

func (m *mockExportEnrollmentRepo) ListBySubject(ctx context.Context, subjectID string) ([]models.EnrollmentDetail, error) {
	return m.enrollments, nil
}

func newExportService(enrollments *mockExportEnrollmentRepo, subjects *mockAnalyticsSubjectRepo, risk *RiskService, enabled bool) *ExportService {
	if subjects == nil {
		subjects = &mockAnalyticsSubjectRepo{}
	}
	return NewExportService(enrollments, subjects, risk, nil, enabled, zap.NewNop())
}

func TestExportDisabled(t *testing.T) {
	service := newExportService(&mockExportEnrollmentRepo{}, nil, nil, false)

	_, err := service.RiskListCSV(context.Background(), "t-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = service.SubjectRiskPDF(context.Background(), "t-1", "sub-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportRiskListCSV(t *testing.T) {
	enrollments := &mockExportEnrollmentRepo{enrollments: []models.EnrollmentDetail{
		*enrollmentDetail(testEnrollmentID, "st-1", "t-1"),
	}}
	riskEnrollments := &mockAnalyticsEnrollmentRepo{items: map[string]*models.EnrollmentDetail{
		testEnrollmentID: enrollmentDetail(testEnrollmentID, "st-1", "t-1"),
	}}
	grades := &mockFetchGradeRepo{byEnrollment: map[string][]models.Grade{
		testEnrollmentID: riskGrades(testEnrollmentID, 92, 94),
	}}
	risk := newRiskService(riskEnrollments, grades, nil, nil, nil)

	service := newExportService(enrollments, nil, risk, true)

	payload, err := service.RiskListCSV(context.Background(), "t-1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Student,Subject,Current Grade,Expected Grade,Attendance Rate,Trend,Risk Level,Missing Work,Active Intervention", lines[0])
	assert.Equal(t, "Student One,Mathematics,93,93,100,stable,low,0,none", lines[1])
}

func TestExportRiskListCSVArchivesCopy(t *testing.T) {
	enrollments := &mockExportEnrollmentRepo{enrollments: []models.EnrollmentDetail{
		*enrollmentDetail(testEnrollmentID, "st-1", "t-1"),
	}}
	riskEnrollments := &mockAnalyticsEnrollmentRepo{items: map[string]*models.EnrollmentDetail{
		testEnrollmentID: enrollmentDetail(testEnrollmentID, "st-1", "t-1"),
	}}
	risk := newRiskService(riskEnrollments, nil, nil, nil, nil)

	dir := t.TempDir()
	archive, err := storage.NewArchive(dir)
	require.NoError(t, err)
	service := NewExportService(enrollments, &mockAnalyticsSubjectRepo{}, risk, archive, true, zap.NewNop())

	_, err = service.RiskListCSV(context.Background(), "t-1")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "risk-list"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "t-1-"))
}

func TestExportSubjectRiskPDF(t *testing.T) {
	section := "Rizal"
	enrollments := &mockExportEnrollmentRepo{enrollments: []models.EnrollmentDetail{
		*enrollmentDetail(testEnrollmentID, "st-1", "t-1"),
	}}
	subjects := &mockAnalyticsSubjectRepo{items: map[string]*models.Subject{
		"sub-1": {ID: "sub-1", TeacherID: "t-1", Name: "Mathematics", Section: &section},
	}}
	grades := &mockFetchGradeRepo{byEnrollment: map[string][]models.Grade{
		testEnrollmentID: riskGrades(testEnrollmentID, 92, 94),
	}}
	riskEnrollments := &mockAnalyticsEnrollmentRepo{items: map[string]*models.EnrollmentDetail{
		testEnrollmentID: enrollmentDetail(testEnrollmentID, "st-1", "t-1"),
	}}
	risk := newRiskService(riskEnrollments, grades, nil, nil, nil)

	service := newExportService(enrollments, subjects, risk, true)

	payload, title, err := service.SubjectRiskPDF(context.Background(), "t-1", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "Risk Report - Mathematics (Rizal)", title)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))

	_, _, err = service.SubjectRiskPDF(context.Background(), "t-2", "sub-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = service.SubjectRiskPDF(context.Background(), "t-1", "sub-unknown")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
