package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
	"github.com/noah-isme/sma-aris-api/pkg/export"
	"github.com/noah-isme/sma-aris-api/pkg/storage"
)

type exportEnrollmentRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.EnrollmentDetail, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.EnrollmentDetail, error)
}

type exportSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// ExportService renders teacher-facing risk exports.
type ExportService struct {
	enrollments exportEnrollmentRepository
	subjects    exportSubjectRepository
	risk        *RiskService
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	archive     *storage.Archive
	enabled     bool
	logger      *zap.Logger
}

// NewExportService constructs an ExportService. The archive is optional and
// receives a copy of every rendered file.
func NewExportService(enrollments exportEnrollmentRepository, subjects exportSubjectRepository, risk *RiskService, archive *storage.Archive, enabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enrollments: enrollments,
		subjects:    subjects,
		risk:        risk,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		archive:     archive,
		enabled:     enabled,
		logger:      logger,
	}
}

// RiskListCSV renders every enrollment across the teacher's subjects as a
// risk-assessment CSV.
func (s *ExportService) RiskListCSV(ctx context.Context, teacherID string) ([]byte, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	enrollments, err := s.enrollments.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	reports, err := s.risk.BuildReports(ctx, enrollments)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(reports))
	for i, report := range reports {
		rows = append(rows, map[string]string{
			"Student":             enrollments[i].StudentName,
			"Subject":             report.SubjectName,
			"Current Grade":       formatGrade(report.CurrentGrade),
			"Expected Grade":      formatGrade(report.ExpectedGrade),
			"Attendance Rate":     strconv.FormatFloat(report.AttendanceRate, 'f', -1, 64),
			"Trend":               string(report.Trend),
			"Risk Level":          string(report.RiskLevel),
			"Missing Work":        strconv.Itoa(report.MissingWork),
			"Active Intervention": interventionCell(report.Intervention),
		})
	}

	payload, err := s.csv.Render(export.Dataset{
		Headers: []string{"Student", "Subject", "Current Grade", "Expected Grade", "Attendance Rate", "Trend", "Risk Level", "Missing Work", "Active Intervention"},
		Rows:    rows,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV")
	}
	s.archiveCopy(fmt.Sprintf("risk-list/%s-%s.csv", teacherID, time.Now().Format("20060102-150405")), payload)
	return payload, nil
}

// SubjectRiskPDF renders the per-class risk report for one subject the
// teacher owns.
func (s *ExportService) SubjectRiskPDF(ctx context.Context, teacherID, subjectID string) ([]byte, string, error) {
	if !s.enabled {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	if subject.TeacherID != teacherID {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another teacher")
	}

	enrollments, err := s.enrollments.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	reports, err := s.risk.BuildReports(ctx, enrollments)
	if err != nil {
		return nil, "", err
	}

	stats := summarize(reports)
	summary := []string{
		fmt.Sprintf("Students: %d", stats.Total),
		fmt.Sprintf("High risk: %d", stats.HighRisk),
		fmt.Sprintf("Medium risk: %d", stats.MediumRisk),
		fmt.Sprintf("Low risk: %d", stats.LowRisk),
	}

	rows := make([]map[string]string, 0, len(reports))
	for i, report := range reports {
		rows = append(rows, map[string]string{
			"Student":    enrollments[i].StudentName,
			"Grade":      formatGrade(report.CurrentGrade),
			"Attendance": strconv.FormatFloat(report.AttendanceRate, 'f', -1, 64) + "%",
			"Trend":      string(report.Trend),
			"Risk":       string(report.RiskLevel),
			"Missing":    strconv.Itoa(report.MissingWork),
		})
	}

	title := "Risk Report - " + subject.Name
	if subject.Section != nil && *subject.Section != "" {
		title += " (" + *subject.Section + ")"
	}
	payload, err := s.pdf.Render(export.Dataset{
		Headers: []string{"Student", "Grade", "Attendance", "Trend", "Risk", "Missing"},
		Rows:    rows,
	}, title, summary)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF")
	}
	s.archiveCopy(fmt.Sprintf("subjects/%s-%s.pdf", subjectID, time.Now().Format("20060102-150405")), payload)
	return payload, title, nil
}

// archiveCopy keeps a best-effort copy of the rendered export. Failures never
// block the download.
func (s *ExportService) archiveCopy(filename string, payload []byte) {
	if s.archive == nil {
		return
	}
	if _, err := s.archive.Save(filename, payload); err != nil {
		s.logger.Warn("export archive write failed", zap.String("filename", filename), zap.Error(err))
	}
}

func formatGrade(grade *float64) string {
	if grade == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*grade, 'f', -1, 64)
}

func interventionCell(progress *dto.InterventionProgress) string {
	if progress == nil {
		return "none"
	}
	return fmt.Sprintf("%s (%d/%d tasks)", progress.TypeLabel, progress.CompletedTasks, progress.TotalTasks)
}
