package dto

import "github.com/noah-isme/sma-aris-api/internal/models"

// CreateSubjectRequest is the payload for creating a subject.
type CreateSubjectRequest struct {
	Name       string                 `json:"name" validate:"required,min=2,max=120"`
	Section    *string                `json:"section,omitempty"`
	GradeLevel *string                `json:"grade_level,omitempty"`
	Strand     *string                `json:"strand,omitempty"`
	Track      *string                `json:"track,omitempty"`
	RoomNumber *string                `json:"room_number,omitempty"`
	SchoolYear string                 `json:"school_year" validate:"required"`
	Color      *string                `json:"color,omitempty"`
	Categories []models.GradeCategory `json:"grade_categories,omitempty"`
}

// UpdateSubjectRequest is the payload for updating a subject.
type UpdateSubjectRequest struct {
	Name       string                 `json:"name" validate:"required,min=2,max=120"`
	Section    *string                `json:"section,omitempty"`
	GradeLevel *string                `json:"grade_level,omitempty"`
	Strand     *string                `json:"strand,omitempty"`
	Track      *string                `json:"track,omitempty"`
	RoomNumber *string                `json:"room_number,omitempty"`
	SchoolYear string                 `json:"school_year" validate:"required"`
	Color      *string                `json:"color,omitempty"`
	Categories []models.GradeCategory `json:"grade_categories,omitempty"`
}

// EnrollStudentRequest registers a student into a subject.
type EnrollStudentRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
}

// RecordGradeRequest is one scored assignment write.
type RecordGradeRequest struct {
	EnrollmentID   string  `json:"enrollment_id" validate:"required,uuid4"`
	AssignmentKey  string  `json:"assignment_key" validate:"required,max=160"`
	AssignmentName string  `json:"assignment_name" validate:"required,max=160"`
	CategoryID     string  `json:"category_id" validate:"required,max=80"`
	Score          float64 `json:"score" validate:"gte=0"`
	TotalScore     float64 `json:"total_score" validate:"gt=0"`
	Quarter        int     `json:"quarter" validate:"required,min=1,max=4"`
}

// BulkGradesRequest writes a batch of grades for one subject.
type BulkGradesRequest struct {
	SubjectID string               `json:"subject_id" validate:"required,uuid4"`
	Grades    []RecordGradeRequest `json:"grades" validate:"required,min=1,dive"`
}

// AttendanceEntry is one student's status for the day sheet.
type AttendanceEntry struct {
	EnrollmentID string                  `json:"enrollment_id" validate:"required,uuid4"`
	Status       models.AttendanceStatus `json:"status" validate:"required"`
}

// RecordAttendanceRequest records one day's sheet for a subject.
type RecordAttendanceRequest struct {
	SubjectID string            `json:"subject_id" validate:"required,uuid4"`
	Date      string            `json:"date" validate:"required,datetime=2006-01-02"`
	Entries   []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// CreateInterventionRequest starts an intervention on an enrollment.
type CreateInterventionRequest struct {
	EnrollmentID string                  `json:"enrollment_id" validate:"required,uuid4"`
	Type         models.InterventionType `json:"type" validate:"required"`
	Notes        *string                 `json:"notes,omitempty"`
	Tasks        []string                `json:"tasks,omitempty" validate:"omitempty,dive,required,max=300"`
}

// AddTaskRequest appends a checklist item to an intervention.
type AddTaskRequest struct {
	Description string `json:"description" validate:"required,max=300"`
}
