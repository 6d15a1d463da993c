package dto

import "github.com/noah-isme/sma-aris-api/internal/models"

// GroupBreakdown aggregates grades within one category or quarter.
type GroupBreakdown struct {
	Score      float64  `json:"score"`
	Total      float64  `json:"total"`
	Percentage *float64 `json:"percentage"`
	Count      int      `json:"count"`
}

// RecentGrade is one of the latest scored assignments shown on a risk card.
type RecentGrade struct {
	ID             string   `json:"id"`
	AssignmentName string   `json:"assignment_name"`
	CategoryID     string   `json:"category_id"`
	Score          float64  `json:"score"`
	TotalScore     float64  `json:"total_score"`
	Percentage     *float64 `json:"percentage"`
	Quarter        int      `json:"quarter"`
	RecordedAt     string   `json:"recorded_at"`
}

// RiskReport is the full per-enrollment risk assessment.
type RiskReport struct {
	EnrollmentID   string                    `json:"enrollment_id"`
	SubjectID      string                    `json:"subject_id"`
	SubjectName    string                    `json:"subject_name"`
	Section        *string                   `json:"section,omitempty"`
	TeacherName    string                    `json:"teacher_name"`
	CurrentGrade   *float64                  `json:"current_grade"`
	ExpectedGrade  *float64                  `json:"expected_grade"`
	AttendanceRate float64                   `json:"attendance_rate"`
	Attendance     models.AttendanceSummary  `json:"attendance"`
	Trend          models.Trend              `json:"trend"`
	RiskLevel      models.RiskLevel          `json:"risk_level"`
	RiskReasons    []string                  `json:"risk_reasons"`
	MissingWork    int                       `json:"missing_work"`
	ByCategory     map[string]GroupBreakdown `json:"grades_by_category"`
	ByQuarter      map[int]GroupBreakdown    `json:"grades_by_quarter"`
	RecentGrades   []RecentGrade             `json:"recent_grades"`
	Intervention   *InterventionProgress     `json:"intervention,omitempty"`
}

// RiskSummary counts enrollments per risk level.
type RiskSummary struct {
	Total      int `json:"total"`
	HighRisk   int `json:"high_risk"`
	MediumRisk int `json:"medium_risk"`
	LowRisk    int `json:"low_risk"`
	AtRisk     int `json:"at_risk"`
}

// RiskOverview is the student risk page payload, sorted high-risk first.
type RiskOverview struct {
	Subjects []RiskReport `json:"subjects"`
	Stats    RiskSummary  `json:"stats"`
}
