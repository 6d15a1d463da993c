package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-aris-api/internal/models"
)

// NotificationRepository handles student notification persistence.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.StudentNotification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	notification.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO student_notifications (id, user_id, sender_id, intervention_id, type, title, message, is_read, created_at)
        VALUES (:id, :user_id, :sender_id, :intervention_id, :type, :title, :message, :is_read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns the user's notifications newest first, enriched with
// sender name and the subject the linked intervention belongs to.
func (r *NotificationRepository) ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.StudentNotificationDetail, error) {
	query := `SELECT n.id, n.user_id, n.sender_id, n.intervention_id, n.type, n.title, n.message, n.is_read, n.read_at, n.created_at,
            u.full_name AS sender_name,
            s.name AS subject_name
        FROM student_notifications n
        LEFT JOIN users u ON u.id = n.sender_id
        LEFT JOIN interventions i ON i.id = n.intervention_id
        LEFT JOIN enrollments e ON e.id = i.enrollment_id
        LEFT JOIN subjects s ON s.id = e.subject_id
        WHERE n.user_id = ?`
	args := []interface{}{filter.UserID}
	if filter.UnreadOnly {
		query += " AND n.is_read = false"
	}
	if len(filter.Types) > 0 {
		query += " AND n.type IN (?)"
		args = append(args, filter.Types)
	}
	query += " ORDER BY n.created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	query, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build notification list: %w", err)
	}

	var notifications []models.StudentNotificationDetail
	if err := r.db.SelectContext(ctx, &notifications, r.db.Rebind(query), expanded...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flips a notification to read for its owner, keeping the first
// read_at on repeat calls. Returns the number of rows updated so callers can
// distinguish missing or foreign rows.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (int64, error) {
	const query = `UPDATE student_notifications
        SET is_read = true, read_at = COALESCE(read_at, $3)
        WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	return res.RowsAffected()
}

// MarkAllRead marks every unread notification of the user as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	const query = `UPDATE student_notifications
        SET is_read = true, read_at = $2
        WHERE user_id = $1 AND is_read = false`
	res, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.RowsAffected()
}

// UnreadCount returns the user's unread notification count.
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM student_notifications WHERE user_id = $1 AND is_read = false`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
