package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/models"
)

type mockDashboardEnrollmentRepo struct {
	enrollments []models.EnrollmentDetail
}

func (m *mockDashboardEnrollmentRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.EnrollmentDetail, error) {
	return m.enrollments, nil
}

type mockFetchGradeRepo struct {
	byEnrollment map[string][]models.Grade
}

func (m *mockFetchGradeRepo) FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Grade, error) {
	return m.byEnrollment, nil
}

type mockFetchAttendanceRepo struct {
	byEnrollment map[string][]models.AttendanceRecord
}

func (m *mockFetchAttendanceRepo) FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.AttendanceRecord, error) {
	return m.byEnrollment, nil
}

type mockFetchInterventionRepo struct {
	byEnrollment map[string][]models.Intervention
}

func (m *mockFetchInterventionRepo) FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Intervention, error) {
	return m.byEnrollment, nil
}

func dashboardGrades(enrollmentID string, percentages ...float64) []models.Grade {
	now := time.Now()
	grades := make([]models.Grade, len(percentages))
	for i, pct := range percentages {
		grades[i] = models.Grade{
			EnrollmentID: enrollmentID,
			Score:        pct,
			TotalScore:   100,
			Quarter:      1,
			CreatedAt:    now.Add(time.Duration(i) * time.Minute),
		}
	}
	return grades
}

func TestDashboardOverview(t *testing.T) {
	first := *enrollmentDetail(testEnrollmentID, "st-1", "t-1")
	second := *enrollmentDetail(otherEnrollmentID, "st-2", "t-1")
	second.StudentName = "Student Two"

	enrollments := &mockDashboardEnrollmentRepo{enrollments: []models.EnrollmentDetail{first, second}}
	grades := &mockFetchGradeRepo{byEnrollment: map[string][]models.Grade{
		testEnrollmentID:  dashboardGrades(testEnrollmentID, 95, 93),
		otherEnrollmentID: dashboardGrades(otherEnrollmentID, 65, 60),
	}}
	attendance := &mockFetchAttendanceRepo{byEnrollment: map[string][]models.AttendanceRecord{
		otherEnrollmentID: {
			{Status: models.AttendanceStatusAbsent},
			{Status: models.AttendanceStatusAbsent},
			{Status: models.AttendanceStatusPresent},
		},
	}}
	interventions := &mockFetchInterventionRepo{byEnrollment: map[string][]models.Intervention{
		otherEnrollmentID: {
			{ID: "iv-1", EnrollmentID: otherEnrollmentID, Type: models.InterventionTaskList, Status: models.InterventionStatusActive, CreatedAt: time.Now()},
		},
	}}

	service := NewDashboardService(enrollments, grades, attendance, interventions, nil, time.Minute, zap.NewNop())

	dashboard, err := service.Overview(context.Background(), "t-1")
	require.NoError(t, err)

	assert.Equal(t, 1, dashboard.Stats.StudentsAtRisk)
	assert.Equal(t, 1, dashboard.Stats.NeedsAttention)
	require.NotNil(t, dashboard.Stats.AverageGrade)
	// (94 + 63) / 2.
	assert.Equal(t, 78.5, *dashboard.Stats.AverageGrade)

	assert.Equal(t, 1, dashboard.GradeDistribution["90-100"])
	assert.Equal(t, 1, dashboard.GradeDistribution["<70"])
	assert.Equal(t, 0, dashboard.GradeDistribution["80-89"])

	require.Len(t, dashboard.PriorityStudents.Critical, 1)
	assert.Equal(t, "Student Two", dashboard.PriorityStudents.Critical[0].StudentName)
	assert.Empty(t, dashboard.PriorityStudents.Warning)

	require.Len(t, dashboard.RecentActivity, 1)
	assert.Equal(t, "iv-1", dashboard.RecentActivity[0].ID)
	require.NotNil(t, dashboard.PriorityStudents.Critical[0].Intervention)
	assert.Equal(t, "Tier 2: Goal Checklist", dashboard.PriorityStudents.Critical[0].Intervention.TypeLabel)
}

func TestDashboardOverviewEmptyRoster(t *testing.T) {
	service := NewDashboardService(
		&mockDashboardEnrollmentRepo{},
		&mockFetchGradeRepo{},
		&mockFetchAttendanceRepo{},
		&mockFetchInterventionRepo{},
		nil, time.Minute, zap.NewNop())

	dashboard, err := service.Overview(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Nil(t, dashboard.Stats.AverageGrade)
	assert.Equal(t, 0, dashboard.Stats.StudentsAtRisk)
	assert.Empty(t, dashboard.RecentActivity)
	assert.Equal(t, 0, dashboard.GradeDistribution["90-100"])
}

func TestDashboardRecentActivityTruncated(t *testing.T) {
	enrollment := *enrollmentDetail(testEnrollmentID, "st-1", "t-1")
	var interventionRows []models.Intervention
	base := time.Now()
	for i := 0; i < 7; i++ {
		interventionRows = append(interventionRows, models.Intervention{
			ID:           "iv-" + string(rune('a'+i)),
			EnrollmentID: testEnrollmentID,
			Type:         models.InterventionAutomatedNudge,
			Status:       models.InterventionStatusCompleted,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		})
	}

	service := NewDashboardService(
		&mockDashboardEnrollmentRepo{enrollments: []models.EnrollmentDetail{enrollment}},
		&mockFetchGradeRepo{},
		&mockFetchAttendanceRepo{},
		&mockFetchInterventionRepo{byEnrollment: map[string][]models.Intervention{testEnrollmentID: interventionRows}},
		nil, time.Minute, zap.NewNop())

	dashboard, err := service.Overview(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, dashboard.RecentActivity, 5)
	// Newest first.
	assert.Equal(t, "iv-g", dashboard.RecentActivity[0].ID)
}
