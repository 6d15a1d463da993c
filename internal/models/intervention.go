package models

import "time"

// InterventionType is the tiered taxonomy of support actions.
type InterventionType string

// Tier 1 are low-touch automated nudges, Tier 2 structured actions, Tier 3
// high-touch escalations.
const (
	InterventionAutomatedNudge    InterventionType = "automated_nudge"   // Tier 1
	InterventionAcademicQuiz      InterventionType = "academic_quiz"     // Tier 1
	InterventionTaskList          InterventionType = "task_list"         // Tier 2
	InterventionExtensionGrant    InterventionType = "extension_grant"   // Tier 2
	InterventionParentContact     InterventionType = "parent_contact"    // Tier 2
	InterventionAcademicAgreement InterventionType = "academic_agreement" // Tier 3
	InterventionOneOnOneMeeting   InterventionType = "one_on_one_meeting" // Tier 3
	InterventionCounselorReferral InterventionType = "counselor_referral" // Tier 3
)

var interventionTypeLabels = map[InterventionType]string{
	InterventionAutomatedNudge:    "Tier 1: Reminder Nudge",
	InterventionAcademicQuiz:      "Tier 1: Academic Quiz",
	InterventionTaskList:          "Tier 2: Goal Checklist",
	InterventionExtensionGrant:    "Tier 2: Deadline Extension",
	InterventionParentContact:     "Tier 2: Parent Contact",
	InterventionAcademicAgreement: "Tier 3: Academic Agreement",
	InterventionOneOnOneMeeting:   "Tier 3: One-on-One Meeting",
	InterventionCounselorReferral: "Tier 3: Counselor Referral",
}

// Valid returns true when the type is part of the taxonomy.
func (t InterventionType) Valid() bool {
	_, ok := interventionTypeLabels[t]
	return ok
}

// Label returns the human-readable tiered label, falling back to the raw key
// for unknown stored values.
func (t InterventionType) Label() string {
	if label, ok := interventionTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Tier returns the escalation tier (1-3), or 0 for unknown types.
func (t InterventionType) Tier() int {
	switch t {
	case InterventionAutomatedNudge, InterventionAcademicQuiz:
		return 1
	case InterventionTaskList, InterventionExtensionGrant, InterventionParentContact:
		return 2
	case InterventionAcademicAgreement, InterventionOneOnOneMeeting, InterventionCounselorReferral:
		return 3
	default:
		return 0
	}
}

// InterventionStatus is the intervention lifecycle state.
type InterventionStatus string

const (
	InterventionStatusActive    InterventionStatus = "ACTIVE"
	InterventionStatusCompleted InterventionStatus = "COMPLETED"
)

// Intervention is a support action attached to an enrollment. At most one
// ACTIVE intervention may exist per enrollment, enforced by a partial unique
// index in the data layer.
type Intervention struct {
	ID           string             `db:"id" json:"id"`
	EnrollmentID string             `db:"enrollment_id" json:"enrollment_id"`
	Type         InterventionType   `db:"type" json:"type"`
	Status       InterventionStatus `db:"status" json:"status"`
	Notes        *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`

	Tasks []InterventionTask `db:"-" json:"tasks,omitempty"`
}

// InterventionTask is a checklist item under an intervention. Created by a
// teacher, completed by the owning student.
type InterventionTask struct {
	ID             string    `db:"id" json:"id"`
	InterventionID string    `db:"intervention_id" json:"intervention_id"`
	Description    string    `db:"description" json:"description"`
	IsCompleted    bool      `db:"is_completed" json:"is_completed"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// InterventionTaskDetail resolves a task back to the owning student so the
// completion path can check ownership before writing.
type InterventionTaskDetail struct {
	InterventionTask
	EnrollmentID string             `db:"enrollment_id" json:"enrollment_id"`
	StudentID    string             `db:"student_id" json:"student_id"`
	Status       InterventionStatus `db:"status" json:"status"`
}
