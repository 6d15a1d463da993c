package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

func newRiskService(enrollments *mockAnalyticsEnrollmentRepo, grades *mockFetchGradeRepo, attendance *mockFetchAttendanceRepo, interventions *mockFetchInterventionRepo, subjects *mockAnalyticsSubjectRepo) *RiskService {
	if grades == nil {
		grades = &mockFetchGradeRepo{}
	}
	if attendance == nil {
		attendance = &mockFetchAttendanceRepo{}
	}
	if interventions == nil {
		interventions = &mockFetchInterventionRepo{}
	}
	if subjects == nil {
		subjects = &mockAnalyticsSubjectRepo{}
	}
	return NewRiskService(enrollments, grades, attendance, interventions, subjects, nil, time.Minute, zap.NewNop())
}

func riskGrades(enrollmentID string, scores ...float64) []models.Grade {
	now := time.Now()
	grades := make([]models.Grade, len(scores))
	for i, score := range scores {
		grades[i] = models.Grade{
			ID:           "g-" + enrollmentID,
			EnrollmentID: enrollmentID,
			CategoryID:   "written_works",
			Score:        score,
			TotalScore:   100,
			Quarter:      1,
			CreatedAt:    now.Add(time.Duration(i) * time.Minute),
		}
	}
	return grades
}

func TestRiskOverviewSortsHighFirst(t *testing.T) {
	failing := enrollmentDetail(testEnrollmentID, "st-1", "t-1")
	healthy := enrollmentDetail(otherEnrollmentID, "st-1", "t-1")
	healthy.SubjectName = "Science"

	enrollments := &mockAnalyticsEnrollmentRepo{items: map[string]*models.EnrollmentDetail{
		testEnrollmentID:  failing,
		otherEnrollmentID: healthy,
	}}
	grades := &mockFetchGradeRepo{byEnrollment: map[string][]models.Grade{
		testEnrollmentID:  riskGrades(testEnrollmentID, 55, 65),
		otherEnrollmentID: riskGrades(otherEnrollmentID, 92, 94),
	}}

	service := newRiskService(enrollments, grades, nil, nil, nil)

	overview, err := service.Overview(context.Background(), "st-1")
	require.NoError(t, err)
	require.Len(t, overview.Subjects, 2)

	assert.Equal(t, "Mathematics", overview.Subjects[0].SubjectName)
	assert.Equal(t, models.RiskHigh, overview.Subjects[0].RiskLevel)
	assert.Equal(t, models.RiskLow, overview.Subjects[1].RiskLevel)

	assert.Equal(t, 2, overview.Stats.Total)
	assert.Equal(t, 1, overview.Stats.HighRisk)
	assert.Equal(t, 0, overview.Stats.MediumRisk)
	assert.Equal(t, 1, overview.Stats.LowRisk)
	assert.Equal(t, 1, overview.Stats.AtRisk)
}

func TestRiskReportAssessment(t *testing.T) {
	enrollments := &mockAnalyticsEnrollmentRepo{items: map[string]*models.EnrollmentDetail{
		testEnrollmentID: enrollmentDetail(testEnrollmentID, "st-1", "t-1"),
	}}
	grades := &mockFetchGradeRepo{byEnrollment: map[string][]models.Grade{
		testEnrollmentID: riskGrades(testEnrollmentID, 55, 65),
	}}
	interventions := &mockFetchInterventionRepo{byEnrollment: map[string][]models.Intervention{
		testEnrollmentID: {
			{ID: "iv-1", EnrollmentID: testEnrollmentID, Type: models.InterventionTaskList, Status: models.InterventionStatusActive},
		},
	}}

	service := newRiskService(enrollments, grades, nil, interventions, nil)

	report, err := service.Report(context.Background(), "st-1", models.RoleStudent, testEnrollmentID)
	require.NoError(t, err)

	require.NotNil(t, report.CurrentGrade)
	assert.Equal(t, 60.0, *report.CurrentGrade)
	assert.Equal(t, models.RiskHigh, report.RiskLevel)
	// The category label falls back to the identifier when the subject has no
	// configured category with that ID.
	assert.Equal(t, []string{"Grade below 70%", "Written works score is low (60%)"}, report.RiskReasons)

	// No attendance records recorded yet, so the rate defaults to perfect.
	assert.Equal(t, 100.0, report.AttendanceRate)

	require.Len(t, report.RecentGrades, 2)
	require.NotNil(t, report.RecentGrades[0].Percentage)

	require.NotNil(t, report.Intervention)
	assert.Equal(t, "Tier 2: Goal Checklist", report.Intervention.TypeLabel)
}

func TestRiskReportOwnership(t *testing.T) {
	enrollments := &mockAnalyticsEnrollmentRepo{items: map[string]*models.EnrollmentDetail{
		testEnrollmentID: enrollmentDetail(testEnrollmentID, "st-1", "t-1"),
	}}
	service := newRiskService(enrollments, nil, nil, nil, nil)

	_, err := service.Report(context.Background(), "st-2", models.RoleStudent, testEnrollmentID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = service.Report(context.Background(), "t-2", models.RoleTeacher, testEnrollmentID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = service.Report(context.Background(), "st-1", models.RoleStudent, otherEnrollmentID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
