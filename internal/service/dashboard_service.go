package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

const recentActivityCount = 5

type dashboardEnrollmentRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.EnrollmentDetail, error)
}

type dashboardGradeRepository interface {
	FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Grade, error)
}

type dashboardAttendanceRepository interface {
	FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.AttendanceRecord, error)
}

type dashboardInterventionRepository interface {
	FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Intervention, error)
}

// DashboardService builds the teacher overview, cached in Redis.
type DashboardService struct {
	enrollments   dashboardEnrollmentRepository
	grades        dashboardGradeRepository
	attendance    dashboardAttendanceRepository
	interventions dashboardInterventionRepository
	cache         *CacheService
	cacheTTL      time.Duration
	logger        *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(enrollments dashboardEnrollmentRepository, grades dashboardGradeRepository, attendance dashboardAttendanceRepository, interventions dashboardInterventionRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		enrollments:   enrollments,
		grades:        grades,
		attendance:    attendance,
		interventions: interventions,
		cache:         cache,
		cacheTTL:      cacheTTL,
		logger:        logger,
	}
}

// Overview returns the teacher dashboard, served from cache when fresh. Cache
// entries are invalidated by the grade/attendance/intervention writers.
func (s *DashboardService) Overview(ctx context.Context, teacherID string) (*dto.TeacherDashboard, error) {
	cacheKey := "dashboard:" + teacherID + ":overview"
	var cached dto.TeacherDashboard
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	enrollments, err := s.enrollments.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	ids := make([]string, len(enrollments))
	for i, enrollment := range enrollments {
		ids[i] = enrollment.ID
	}
	gradesByEnrollment, err := s.grades.FetchByEnrollments(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch grades")
	}
	attendanceByEnrollment, err := s.attendance.FetchByEnrollments(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch attendance")
	}
	interventionsByEnrollment, err := s.interventions.FetchByEnrollments(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch interventions")
	}

	dashboard := buildDashboard(enrollments, gradesByEnrollment, attendanceByEnrollment, interventionsByEnrollment)
	if err := s.cache.Set(ctx, cacheKey, dashboard, s.cacheTTL); err != nil {
		s.logger.Debug("dashboard cache set failed", zap.Error(err))
	}
	return dashboard, nil
}

func buildDashboard(enrollments []models.EnrollmentDetail, gradesBy map[string][]models.Grade, attendanceBy map[string][]models.AttendanceRecord, interventionsBy map[string][]models.Intervention) *dto.TeacherDashboard {
	distribution := map[string]int{"90-100": 0, "80-89": 0, "75-79": 0, "70-74": 0, "<70": 0}
	priority := dto.PriorityStudents{
		Critical:  []dto.StudentSummary{},
		Warning:   []dto.StudentSummary{},
		WatchList: []dto.StudentSummary{},
	}
	stats := dto.DashboardStats{}

	sum, graded := 0.0, 0
	recent := make([]dto.RecentIntervention, 0)

	for _, enrollment := range enrollments {
		grades := gradesBy[enrollment.ID]
		records := attendanceBy[enrollment.ID]
		grade := OverallPercentage(grades)
		trend := TrendOf(grades)

		summary := dto.StudentSummary{
			EnrollmentID:   enrollment.ID,
			StudentID:      enrollment.StudentID,
			StudentName:    enrollment.StudentName,
			SubjectName:    enrollment.SubjectName,
			Grade:          grade,
			AttendanceRate: SummarizeAttendance(records).Rate,
			Trend:          trend,
			Intervention:   InterventionProgressOf(activeOf(interventionsBy[enrollment.ID])),
		}
		level, _ := ClassifyRisk(RiskInput{
			Grade:          grade,
			AttendanceRate: summary.AttendanceRate,
			MissingWork:    MissingWorkCount(grades),
			Trend:          trend,
		})
		summary.RiskLevel = level

		if grade != nil {
			sum += *grade
			graded++
			if *grade < 75 {
				stats.StudentsAtRisk++
			}
			switch {
			case *grade >= 90:
				distribution["90-100"]++
			case *grade >= 80:
				distribution["80-89"]++
			case *grade >= 75:
				distribution["75-79"]++
			case *grade >= 70:
				distribution["70-74"]++
			default:
				distribution["<70"]++
			}
		}
		if trend == models.TrendDeclining {
			stats.RecentDeclines++
		}
		if absences(records) >= 2 {
			stats.NeedsAttention++
		}

		switch PriorityBucket(grade, trend) {
		case BucketCritical:
			priority.Critical = append(priority.Critical, summary)
		case BucketWarning:
			priority.Warning = append(priority.Warning, summary)
		case BucketWatchList:
			priority.WatchList = append(priority.WatchList, summary)
		}

		for _, intervention := range interventionsBy[enrollment.ID] {
			recent = append(recent, dto.RecentIntervention{
				ID:          intervention.ID,
				StudentName: enrollment.StudentName,
				SubjectName: enrollment.SubjectName,
				Type:        intervention.Type,
				TypeLabel:   intervention.Type.Label(),
				Status:      intervention.Status,
				CreatedAt:   intervention.CreatedAt.Format(time.RFC3339),
			})
		}
	}

	if graded > 0 {
		avg := math.Round(sum/float64(graded)*100) / 100
		stats.AverageGrade = &avg
	}

	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt > recent[j].CreatedAt })
	if len(recent) > recentActivityCount {
		recent = recent[:recentActivityCount]
	}

	return &dto.TeacherDashboard{
		Stats:             stats,
		PriorityStudents:  priority,
		GradeDistribution: distribution,
		RecentActivity:    recent,
	}
}

func absences(records []models.AttendanceRecord) int {
	count := 0
	for _, record := range records {
		if record.Status == models.AttendanceStatusAbsent {
			count++
		}
	}
	return count
}
