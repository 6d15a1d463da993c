package models

import "time"

// NotificationType classifies in-app student notifications.
type NotificationType string

const (
	NotificationNudge     NotificationType = "nudge"
	NotificationFeedback  NotificationType = "feedback"
	NotificationTask      NotificationType = "task"
	NotificationAlert     NotificationType = "alert"
	NotificationExtension NotificationType = "extension"
)

var notificationTypeLabels = map[NotificationType]string{
	NotificationNudge:     "Reminder Nudge",
	NotificationFeedback:  "Teacher Feedback",
	NotificationTask:      "New Task Assigned",
	NotificationAlert:     "Important Alert",
	NotificationExtension: "Deadline Extension",
}

// Valid returns true when the type is a supported value.
func (t NotificationType) Valid() bool {
	_, ok := notificationTypeLabels[t]
	return ok
}

// Label returns the display label, falling back to the raw key.
func (t NotificationType) Label() string {
	if label, ok := notificationTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// StudentNotification is a message delivered to a student, optionally linked
// to an intervention and a sending teacher.
type StudentNotification struct {
	ID             string           `db:"id" json:"id"`
	UserID         string           `db:"user_id" json:"user_id"`
	SenderID       *string          `db:"sender_id" json:"sender_id,omitempty"`
	InterventionID *string          `db:"intervention_id" json:"intervention_id,omitempty"`
	Type           NotificationType `db:"type" json:"type"`
	Title          string           `db:"title" json:"title"`
	Message        string           `db:"message" json:"message"`
	IsRead         bool             `db:"is_read" json:"is_read"`
	ReadAt         *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// StudentNotificationDetail enriches a notification with sender and subject
// context for the student feed.
type StudentNotificationDetail struct {
	StudentNotification
	SenderName  *string `db:"sender_name" json:"sender_name,omitempty"`
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
}

// NotificationFilter provides filters for listing notifications.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Types      []NotificationType
	Limit      int
}
