package models

import "time"

// Grade is one scored assignment within an enrollment. A grade is unique per
// (enrollment_id, assignment_key, quarter); total_score must be positive for
// the entry to contribute to percentages. A zero score is counted as missing
// work by the risk heuristics.
type Grade struct {
	ID             string    `db:"id" json:"id"`
	EnrollmentID   string    `db:"enrollment_id" json:"enrollment_id"`
	AssignmentKey  string    `db:"assignment_key" json:"assignment_key"`
	AssignmentName string    `db:"assignment_name" json:"assignment_name"`
	CategoryID     string    `db:"category_id" json:"category_id"`
	Score          float64   `db:"score" json:"score"`
	TotalScore     float64   `db:"total_score" json:"total_score"`
	Quarter        int       `db:"quarter" json:"quarter"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// GradeFilter provides filters for listing grades.
type GradeFilter struct {
	EnrollmentID string
	CategoryID   string
	Quarter      int
}
