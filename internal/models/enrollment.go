package models

import "time"

// Enrollment captures a student's registration to one subject offering for a
// school year. The current_* columns are an advisory snapshot refreshed after
// grade/attendance writes; views always recompute from raw records.
type Enrollment struct {
	ID                    string     `db:"id" json:"id"`
	StudentID             string     `db:"student_id" json:"student_id"`
	SubjectID             string     `db:"subject_id" json:"subject_id"`
	RiskStatus            *RiskLevel `db:"risk_status" json:"risk_status,omitempty"`
	CurrentGrade          *float64   `db:"current_grade" json:"current_grade,omitempty"`
	CurrentAttendanceRate *float64   `db:"current_attendance_rate" json:"current_attendance_rate,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and subject info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string  `db:"student_name" json:"student_name"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	Section     *string `db:"section" json:"section,omitempty"`
	TeacherID   string  `db:"teacher_id" json:"teacher_id"`
	TeacherName string  `db:"teacher_name" json:"teacher_name"`
}

// EnrollmentSnapshot carries the advisory cached fields written back after a
// grade or attendance mutation.
type EnrollmentSnapshot struct {
	RiskStatus     RiskLevel
	CurrentGrade   *float64
	AttendanceRate float64
}
