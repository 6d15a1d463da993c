package dto

import "github.com/noah-isme/sma-aris-api/internal/models"

// SubjectResponse pairs a subject with its flattened grade structure, so the
// gradebook page can render the assignment grid without re-deriving it.
type SubjectResponse struct {
	Subject        *models.Subject       `json:"subject"`
	GradeStructure models.GradeStructure `json:"grade_structure"`
}
