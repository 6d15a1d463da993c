package dto

import "github.com/noah-isme/sma-aris-api/internal/models"

// SubjectCard is one row of the student analytics index.
type SubjectCard struct {
	EnrollmentID    string   `json:"enrollment_id"`
	SubjectID       string   `json:"subject_id"`
	SubjectName     string   `json:"subject_name"`
	TeacherName     string   `json:"teacher_name"`
	Grade           *float64 `json:"grade"`
	AttendanceRate  float64  `json:"attendance_rate"`
	Status          string   `json:"status"`
	HasIntervention bool     `json:"has_intervention"`
	GradeCount      int      `json:"grade_count"`
}

// AnalyticsStats summarises the student's standing across all subjects.
type AnalyticsStats struct {
	OverallGrade      *float64 `json:"overall_grade"`
	TotalSubjects     int      `json:"total_subjects"`
	SubjectsAtRisk    int      `json:"subjects_at_risk"`
	SubjectsExcelling int      `json:"subjects_excelling"`
}

// AnalyticsIndex is the student analytics overview payload.
type AnalyticsIndex struct {
	Subjects []SubjectCard  `json:"subjects"`
	Stats    AnalyticsStats `json:"stats"`
}

// QuarterRow is one per-quarter performance row.
type QuarterRow struct {
	Quarter         string   `json:"quarter"`
	QuarterNum      int      `json:"quarter_num"`
	Grade           *float64 `json:"grade"`
	Remarks         string   `json:"remarks"`
	AssignmentCount int      `json:"assignment_count"`
}

// GradeBreakdownRow is one scored assignment in the detail view.
type GradeBreakdownRow struct {
	ID             string   `json:"id"`
	AssignmentKey  string   `json:"assignment_key"`
	AssignmentName string   `json:"assignment_name"`
	CategoryID     string   `json:"category_id"`
	Score          float64  `json:"score"`
	TotalScore     float64  `json:"total_score"`
	Percentage     *float64 `json:"percentage"`
	Quarter        int      `json:"quarter"`
	RecordedAt     string   `json:"recorded_at"`
}

// InterventionProgress summarises the enrollment's intervention for views.
type InterventionProgress struct {
	ID             string                    `json:"id"`
	Type           models.InterventionType   `json:"type"`
	TypeLabel      string                    `json:"type_label"`
	Status         models.InterventionStatus `json:"status"`
	Notes          *string                   `json:"notes,omitempty"`
	Tasks          []models.InterventionTask `json:"tasks"`
	CompletedTasks int                       `json:"completed_tasks"`
	TotalTasks     int                       `json:"total_tasks"`
}

// Suggestion is one advisory message for the student.
type Suggestion struct {
	Type    string `json:"type"`
	Icon    string `json:"icon"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SubjectInfo describes the subject heading of the detail view.
type SubjectInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	TeacherName string  `json:"teacher_name"`
	Section     *string `json:"section,omitempty"`
	SchoolYear  string  `json:"school_year"`
}

// AnalyticsDetail is the per-enrollment analytics payload.
type AnalyticsDetail struct {
	EnrollmentID   string                   `json:"enrollment_id"`
	Subject        SubjectInfo              `json:"subject"`
	OverallGrade   *float64                 `json:"overall_grade"`
	QuarterlyRows  []QuarterRow             `json:"quarterly_grades"`
	GradeBreakdown []GradeBreakdownRow      `json:"grade_breakdown"`
	Attendance     models.AttendanceSummary `json:"attendance"`
	Intervention   *InterventionProgress    `json:"intervention,omitempty"`
	Suggestions    []Suggestion             `json:"suggestions"`
}
