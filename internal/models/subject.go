package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Subject is a teacher-owned class offering for one school year.
type Subject struct {
	ID         string        `db:"id" json:"id"`
	TeacherID  string        `db:"teacher_id" json:"teacher_id"`
	Name       string        `db:"name" json:"name"`
	Section    *string       `db:"section" json:"section,omitempty"`
	GradeLevel *string       `db:"grade_level" json:"grade_level,omitempty"`
	Strand     *string       `db:"strand" json:"strand,omitempty"`
	Track      *string       `db:"track" json:"track,omitempty"`
	RoomNumber *string       `db:"room_number" json:"room_number,omitempty"`
	SchoolYear string        `db:"school_year" json:"school_year"`
	Color      *string       `db:"color" json:"color,omitempty"`
	Categories CategoryList  `db:"grade_categories" json:"grade_categories"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// SubjectDetail enriches Subject with teacher and roster info.
type SubjectDetail struct {
	Subject
	TeacherName     string `db:"teacher_name" json:"teacher_name"`
	EnrollmentCount int    `db:"enrollment_count" json:"enrollment_count"`
}

// GradeCategory is a weighted bucket of assignment templates, e.g.
// Written Works at 0.30. Weights are stored as 0-1 fractions.
type GradeCategory struct {
	ID     string               `json:"id"`
	Label  string               `json:"label"`
	Weight float64              `json:"weight"`
	Tasks  []AssignmentTemplate `json:"tasks"`
}

// AssignmentTemplate names one expected assignment under a category.
type AssignmentTemplate struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Total      float64 `json:"total"`
	CategoryID string  `json:"category_id"`
}

// FlatAssignment is an assignment template flattened with back-references
// to its owning category.
type FlatAssignment struct {
	ID             string  `json:"id"`
	Label          string  `json:"label"`
	Total          float64 `json:"total"`
	CategoryID     string  `json:"category_id"`
	CategoryLabel  string  `json:"category_label"`
	CategoryWeight float64 `json:"category_weight"`
}

// GradeStructure pairs normalized categories with their flattened assignments.
type GradeStructure struct {
	Categories  []GradeCategory  `json:"categories"`
	Assignments []FlatAssignment `json:"assignments"`
}

// CategoryList is a JSONB-persisted list of grade categories.
type CategoryList []GradeCategory

// Value implements driver.Valuer for JSONB storage.
func (l CategoryList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage.
func (l *CategoryList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported grade_categories type %T", src)
	}
}
