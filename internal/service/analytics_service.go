package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

type analyticsEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type analyticsGradeRepository interface {
	ListByEnrollment(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
	FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Grade, error)
}

type analyticsAttendanceRepository interface {
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error)
}

type analyticsInterventionRepository interface {
	FindActiveByEnrollment(ctx context.Context, enrollmentID string) (*models.Intervention, error)
	FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Intervention, error)
}

type analyticsSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// AnalyticsService builds the student-facing performance views.
type AnalyticsService struct {
	enrollments   analyticsEnrollmentRepository
	grades        analyticsGradeRepository
	attendance    analyticsAttendanceRepository
	interventions analyticsInterventionRepository
	subjects      analyticsSubjectRepository
	logger        *zap.Logger
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(enrollments analyticsEnrollmentRepository, grades analyticsGradeRepository, attendance analyticsAttendanceRepository, interventions analyticsInterventionRepository, subjects analyticsSubjectRepository, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		enrollments:   enrollments,
		grades:        grades,
		attendance:    attendance,
		interventions: interventions,
		subjects:      subjects,
		logger:        logger,
	}
}

// Index returns the student's subject cards sorted by grade descending plus
// overall statistics.
func (s *AnalyticsService) Index(ctx context.Context, studentID string) (*dto.AnalyticsIndex, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
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
	interventionsByEnrollment, err := s.interventions.FetchByEnrollments(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch interventions")
	}

	cards := make([]dto.SubjectCard, 0, len(enrollments))
	for _, enrollment := range enrollments {
		grades := gradesByEnrollment[enrollment.ID]
		records, err := s.attendance.ListByEnrollment(ctx, enrollment.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
		}
		grade := OverallPercentage(grades)
		cards = append(cards, dto.SubjectCard{
			EnrollmentID:    enrollment.ID,
			SubjectID:       enrollment.SubjectID,
			SubjectName:     enrollment.SubjectName,
			TeacherName:     enrollment.TeacherName,
			Grade:           grade,
			AttendanceRate:  SummarizeAttendance(records).Rate,
			Status:          cardStatus(grade),
			HasIntervention: activeOf(interventionsByEnrollment[enrollment.ID]) != nil,
			GradeCount:      len(grades),
		})
	}

	sort.SliceStable(cards, func(i, j int) bool {
		gi, gj := cards[i].Grade, cards[j].Grade
		switch {
		case gi == nil:
			return false
		case gj == nil:
			return true
		default:
			return *gi > *gj
		}
	})

	return &dto.AnalyticsIndex{Subjects: cards, Stats: indexStats(cards)}, nil
}

// Detail returns the per-enrollment analytics view for the owning student.
func (s *AnalyticsService) Detail(ctx context.Context, studentID, enrollmentID string) (*dto.AnalyticsDetail, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}

	subject, err := s.subjects.FindByID(ctx, enrollment.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	grades, err := s.grades.ListByEnrollment(ctx, models.GradeFilter{EnrollmentID: enrollmentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	records, err := s.attendance.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	var active *models.Intervention
	if found, err := s.interventions.FindActiveByEnrollment(ctx, enrollmentID); err == nil {
		active = found
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intervention")
	}

	overall := OverallPercentage(grades)
	attendance := SummarizeAttendance(records)

	lowScoring := 0
	breakdown := make([]dto.GradeBreakdownRow, 0, len(grades))
	for _, grade := range grades {
		pct := Percentage(grade.Score, grade.TotalScore)
		if pct != nil && *pct < 70 {
			lowScoring++
		}
		breakdown = append(breakdown, dto.GradeBreakdownRow{
			ID:             grade.ID,
			AssignmentKey:  grade.AssignmentKey,
			AssignmentName: grade.AssignmentName,
			CategoryID:     grade.CategoryID,
			Score:          grade.Score,
			TotalScore:     grade.TotalScore,
			Percentage:     pct,
			Quarter:        grade.Quarter,
			RecordedAt:     grade.CreatedAt.Format("Jan 02, 2006"),
		})
	}

	return &dto.AnalyticsDetail{
		EnrollmentID: enrollmentID,
		Subject: dto.SubjectInfo{
			ID:          subject.ID,
			Name:        subject.Name,
			TeacherName: enrollment.TeacherName,
			Section:     subject.Section,
			SchoolYear:  subject.SchoolYear,
		},
		OverallGrade:   overall,
		QuarterlyRows:  quarterRows(grades),
		GradeBreakdown: breakdown,
		Attendance:     attendance,
		Intervention:   InterventionProgressOf(active),
		Suggestions:    Suggestions(overall, attendance.Rate, lowScoring),
	}, nil
}

func quarterRows(grades []models.Grade) []dto.QuarterRow {
	byQuarter := GroupByQuarter(grades)
	quarters := make([]int, 0, len(byQuarter))
	for quarter := range byQuarter {
		quarters = append(quarters, quarter)
	}
	sort.Ints(quarters)

	rows := make([]dto.QuarterRow, 0, len(quarters))
	for _, quarter := range quarters {
		group := byQuarter[quarter]
		rows = append(rows, dto.QuarterRow{
			Quarter:         fmt.Sprintf("Q%d", quarter),
			QuarterNum:      quarter,
			Grade:           group.Percentage,
			Remarks:         QuarterRemarks(group.Percentage),
			AssignmentCount: group.Count,
		})
	}
	return rows
}

// cardStatus flags a subject card: critical below 70, warning below 75.
func cardStatus(grade *float64) string {
	switch {
	case grade == nil:
		return "good"
	case *grade < 70:
		return "critical"
	case *grade < 75:
		return "warning"
	default:
		return "good"
	}
}

func indexStats(cards []dto.SubjectCard) dto.AnalyticsStats {
	stats := dto.AnalyticsStats{TotalSubjects: len(cards)}
	sum, graded := 0.0, 0
	for _, card := range cards {
		if card.Grade == nil {
			continue
		}
		sum += *card.Grade
		graded++
		if *card.Grade < 75 {
			stats.SubjectsAtRisk++
		}
		if *card.Grade >= 90 {
			stats.SubjectsExcelling++
		}
	}
	if graded > 0 {
		avg := math.Round(sum/float64(graded)*10) / 10
		stats.OverallGrade = &avg
	}
	return stats
}
