package dto

// InterventionFeedItem is one entry of the student intervention feed.
type InterventionFeedItem struct {
	EnrollmentID string               `json:"enrollment_id"`
	SubjectName  string               `json:"subject_name"`
	TeacherName  string               `json:"teacher_name"`
	Intervention InterventionProgress `json:"intervention"`
}

// TaskCompletionResult reports the outcome of completing a checklist task.
type TaskCompletionResult struct {
	TaskID                string `json:"task_id"`
	InterventionID        string `json:"intervention_id"`
	InterventionCompleted bool   `json:"intervention_completed"`
}
