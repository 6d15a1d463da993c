package dto

import "github.com/noah-isme/sma-aris-api/internal/models"

// StudentSummary is one student row on the teacher dashboard.
type StudentSummary struct {
	EnrollmentID   string               `json:"enrollment_id"`
	StudentID      string               `json:"student_id"`
	StudentName    string               `json:"student_name"`
	SubjectName    string               `json:"subject_name"`
	Grade          *float64             `json:"grade"`
	AttendanceRate float64              `json:"attendance_rate"`
	Trend          models.Trend         `json:"trend"`
	RiskLevel      models.RiskLevel     `json:"risk_level"`
	Intervention   *InterventionProgress `json:"intervention,omitempty"`
}

// DashboardStats is the headline counters block.
type DashboardStats struct {
	StudentsAtRisk int      `json:"students_at_risk"`
	AverageGrade   *float64 `json:"average_grade"`
	NeedsAttention int      `json:"needs_attention"`
	RecentDeclines int      `json:"recent_declines"`
}

// PriorityStudents buckets students by dashboard severity.
type PriorityStudents struct {
	Critical  []StudentSummary `json:"critical"`
	Warning   []StudentSummary `json:"warning"`
	WatchList []StudentSummary `json:"watch_list"`
}

// RecentIntervention is one recent-activity entry.
type RecentIntervention struct {
	ID          string                    `json:"id"`
	StudentName string                    `json:"student_name"`
	SubjectName string                    `json:"subject_name"`
	Type        models.InterventionType   `json:"type"`
	TypeLabel   string                    `json:"type_label"`
	Status      models.InterventionStatus `json:"status"`
	CreatedAt   string                    `json:"created_at"`
}

// TeacherDashboard is the teacher overview payload.
type TeacherDashboard struct {
	Stats             DashboardStats       `json:"stats"`
	PriorityStudents  PriorityStudents     `json:"priority_students"`
	GradeDistribution map[string]int       `json:"grade_distribution"`
	RecentActivity    []RecentIntervention `json:"recent_activity"`
}
