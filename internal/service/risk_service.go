package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

const recentGradeCount = 5

type riskEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type riskGradeRepository interface {
	FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Grade, error)
}

type riskAttendanceRepository interface {
	FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.AttendanceRecord, error)
}

type riskInterventionRepository interface {
	FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Intervention, error)
}

type riskSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// RiskService assembles per-enrollment risk reports and the student overview.
type RiskService struct {
	enrollments   riskEnrollmentRepository
	grades        riskGradeRepository
	attendance    riskAttendanceRepository
	interventions riskInterventionRepository
	subjects      riskSubjectRepository
	cache         *CacheService
	cacheTTL      time.Duration
	logger        *zap.Logger
}

// NewRiskService constructs a RiskService.
func NewRiskService(enrollments riskEnrollmentRepository, grades riskGradeRepository, attendance riskAttendanceRepository, interventions riskInterventionRepository, subjects riskSubjectRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *RiskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RiskService{
		enrollments:   enrollments,
		grades:        grades,
		attendance:    attendance,
		interventions: interventions,
		subjects:      subjects,
		cache:         cache,
		cacheTTL:      cacheTTL,
		logger:        logger,
	}
}

// Overview returns the student's risk page: one report per enrollment sorted
// high-risk first, plus summary counts. Served from cache when fresh.
func (s *RiskService) Overview(ctx context.Context, studentID string) (*dto.RiskOverview, error) {
	cacheKey := "risk:" + studentID + ":overview"
	var cached dto.RiskOverview
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	reports, err := s.buildReports(ctx, enrollments)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return riskOrder(reports[i].RiskLevel) > riskOrder(reports[j].RiskLevel)
	})

	overview := &dto.RiskOverview{Subjects: reports, Stats: summarize(reports)}
	if err := s.cache.Set(ctx, cacheKey, overview, s.cacheTTL); err != nil {
		s.logger.Debug("risk overview cache set failed", zap.Error(err))
	}
	return overview, nil
}

// Report returns the risk assessment for one enrollment, checking that the
// caller owns it either as the student or the teacher.
func (s *RiskService) Report(ctx context.Context, callerID string, role models.UserRole, enrollmentID string) (*dto.RiskReport, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	switch role {
	case models.RoleStudent:
		if enrollment.StudentID != callerID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
		}
	case models.RoleTeacher:
		if enrollment.TeacherID != callerID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another teacher's subject")
		}
	}

	reports, err := s.buildReports(ctx, []models.EnrollmentDetail{*enrollment})
	if err != nil {
		return nil, err
	}
	return &reports[0], nil
}

// BuildReports assembles risk reports for a set of enrollments. Exposed for
// the dashboard and export services, which reuse the same assessment.
func (s *RiskService) BuildReports(ctx context.Context, enrollments []models.EnrollmentDetail) ([]dto.RiskReport, error) {
	return s.buildReports(ctx, enrollments)
}

func (s *RiskService) buildReports(ctx context.Context, enrollments []models.EnrollmentDetail) ([]dto.RiskReport, error) {
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

	labels := map[string]map[string]string{}
	reports := make([]dto.RiskReport, 0, len(enrollments))
	for _, enrollment := range enrollments {
		categoryLabels, ok := labels[enrollment.SubjectID]
		if !ok {
			categoryLabels = s.categoryLabels(ctx, enrollment.SubjectID)
			labels[enrollment.SubjectID] = categoryLabels
		}
		reports = append(reports, buildReport(
			enrollment,
			gradesByEnrollment[enrollment.ID],
			attendanceByEnrollment[enrollment.ID],
			activeOf(interventionsByEnrollment[enrollment.ID]),
			categoryLabels,
		))
	}
	return reports, nil
}

func (s *RiskService) categoryLabels(ctx context.Context, subjectID string) map[string]string {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		s.logger.Warn("failed to load subject for category labels", zap.String("subject_id", subjectID), zap.Error(err))
		return nil
	}
	labels := make(map[string]string, len(subject.Categories))
	for _, category := range subject.Categories {
		labels[category.ID] = category.Label
	}
	return labels
}

func buildReport(enrollment models.EnrollmentDetail, grades []models.Grade, records []models.AttendanceRecord, active *models.Intervention, categoryLabels map[string]string) dto.RiskReport {
	overall := OverallPercentage(grades)
	attendance := SummarizeAttendance(records)
	trend := TrendOf(grades)
	byCategory := GroupByCategory(grades)

	signals := make([]CategorySignal, 0, len(byCategory))
	categoryIDs := make([]string, 0, len(byCategory))
	for id := range byCategory {
		categoryIDs = append(categoryIDs, id)
	}
	sort.Strings(categoryIDs)
	for _, id := range categoryIDs {
		signals = append(signals, CategorySignal{Label: categoryLabel(id, categoryLabels), Percentage: byCategory[id].Percentage})
	}

	level, reasons := ClassifyRisk(RiskInput{
		Grade:          overall,
		AttendanceRate: attendance.Rate,
		Categories:     signals,
		MissingWork:    MissingWorkCount(grades),
		Trend:          trend,
	})

	recent := make([]dto.RecentGrade, 0, recentGradeCount)
	for i, grade := range grades {
		if i == recentGradeCount {
			break
		}
		recent = append(recent, dto.RecentGrade{
			ID:             grade.ID,
			AssignmentName: grade.AssignmentName,
			CategoryID:     grade.CategoryID,
			Score:          grade.Score,
			TotalScore:     grade.TotalScore,
			Percentage:     Percentage(grade.Score, grade.TotalScore),
			Quarter:        grade.Quarter,
			RecordedAt:     grade.CreatedAt.Format("Jan 02, 2006"),
		})
	}

	return dto.RiskReport{
		EnrollmentID:   enrollment.ID,
		SubjectID:      enrollment.SubjectID,
		SubjectName:    enrollment.SubjectName,
		Section:        enrollment.Section,
		TeacherName:    enrollment.TeacherName,
		CurrentGrade:   overall,
		ExpectedGrade:  ExpectedGrade(overall, trend),
		AttendanceRate: attendance.Rate,
		Attendance:     attendance,
		Trend:          trend,
		RiskLevel:      level,
		RiskReasons:    reasons,
		MissingWork:    MissingWorkCount(grades),
		ByCategory:     byCategory,
		ByQuarter:      GroupByQuarter(grades),
		RecentGrades:   recent,
		Intervention:   InterventionProgressOf(active),
	}
}

func summarize(reports []dto.RiskReport) dto.RiskSummary {
	stats := dto.RiskSummary{Total: len(reports)}
	for _, report := range reports {
		switch report.RiskLevel {
		case models.RiskHigh:
			stats.HighRisk++
		case models.RiskMedium:
			stats.MediumRisk++
		default:
			stats.LowRisk++
		}
	}
	stats.AtRisk = stats.HighRisk + stats.MediumRisk
	return stats
}

func activeOf(interventions []models.Intervention) *models.Intervention {
	for i := range interventions {
		if interventions[i].Status == models.InterventionStatusActive {
			return &interventions[i]
		}
	}
	return nil
}

func riskOrder(level models.RiskLevel) int {
	switch level {
	case models.RiskHigh:
		return 2
	case models.RiskMedium:
		return 1
	default:
		return 0
	}
}

func categoryLabel(id string, labels map[string]string) string {
	if label, ok := labels[id]; ok && label != "" {
		return label
	}
	return strings.ReplaceAll(id, "_", " ")
}
