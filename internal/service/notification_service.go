package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
	"github.com/noah-isme/sma-aris-api/pkg/jobs"
	"github.com/noah-isme/sma-aris-api/pkg/mailer"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.StudentNotification) error
	ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.StudentNotificationDetail, error)
	MarkRead(ctx context.Context, id, userID string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type notificationUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// InterventionNotice carries everything needed to notify a student about an
// intervention event.
type InterventionNotice struct {
	Intervention *models.Intervention
	StudentID    string
	StudentName  string
	SenderID     string
	SenderName   string
	SubjectName  string
}

type emailJob struct {
	Notice InterventionNotice
}

// NotificationService creates in-app notification rows and dispatches the
// matching emails through the background queue. Delivery is best effort; a
// failed send never propagates to the caller.
type NotificationService struct {
	repo    notificationRepository
	users   notificationUserRepository
	mailer  mailer.Mailer
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService and its email queue.
// Call Start before enqueueing and Stop on shutdown.
func NewNotificationService(repo notificationRepository, users notificationUserRepository, m mailer.Mailer, metrics *MetricsService, queueCfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, users: users, mailer: m, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("notification-email", s.handleEmailJob, queueCfg)
	return s
}

// Start launches the email worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the email worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyIntervention writes the in-app row and queues the email for an
// intervention event. Errors are logged and swallowed so the originating
// mutation never rolls back on notification trouble.
func (s *NotificationService) NotifyIntervention(ctx context.Context, notice InterventionNotice) {
	notificationType, title := noticeHeading(notice)
	senderID := notice.SenderID
	row := &models.StudentNotification{
		UserID:         notice.StudentID,
		SenderID:       &senderID,
		InterventionID: &notice.Intervention.ID,
		Type:           notificationType,
		Title:          title,
		Message:        noticeBody(notice),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Warn("failed to create student notification",
			zap.String("student_id", notice.StudentID),
			zap.String("intervention_id", notice.Intervention.ID),
			zap.Error(err))
	} else if s.metrics != nil {
		s.metrics.RecordNotification(string(notificationType), "in_app")
	}

	if s.mailer == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "intervention-email",
		Payload: emailJob{Notice: notice},
	}); err != nil {
		s.logger.Warn("failed to enqueue notification email", zap.Error(err))
	}
}

// List returns the user's notifications.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.StudentNotificationDetail, error) {
	for _, t := range filter.Types {
		if !t.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown notification type "+string(t))
		}
	}
	notifications, err := s.repo.ListByUser(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead marks one notification as read for its owner.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	affected, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return affected, nil
}

// UnreadCount returns the user's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return count, nil
}

func (s *NotificationService) handleEmailJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(emailJob)
	if !ok {
		s.logger.Error("unexpected email job payload", zap.String("job_id", job.ID))
		return nil
	}
	notice := payload.Notice

	student, err := s.users.FindByID(ctx, notice.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("email skipped, student missing", zap.String("student_id", notice.StudentID))
			return nil
		}
		return fmt.Errorf("load student for email: %w", err)
	}

	msg := mailer.Message{
		ToName:    student.FullName,
		ToAddress: student.Email,
		Subject:   emailSubject(notice),
		TextBody:  noticeBody(notice),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordNotification(string(emailSubtype(notice.Intervention.Type)), "email")
	}
	return nil
}

// emailSubtype maps the intervention taxonomy onto the mail template keys.
func emailSubtype(t models.InterventionType) string {
	switch t {
	case models.InterventionAutomatedNudge, models.InterventionAcademicQuiz:
		return "nudge"
	case models.InterventionTaskList:
		return "task"
	case models.InterventionExtensionGrant:
		return "extension"
	case models.InterventionAcademicAgreement:
		return "agreement"
	case models.InterventionOneOnOneMeeting:
		return "meeting"
	default:
		return "general"
	}
}

func emailSubject(notice InterventionNotice) string {
	teacherName := notice.SenderName
	if teacherName == "" {
		teacherName = "Your Teacher"
	}
	switch emailSubtype(notice.Intervention.Type) {
	case "nudge":
		return "📚 Academic Reminder from " + teacherName
	case "task":
		return "📋 New Goals Assigned - " + notice.SubjectName
	case "extension":
		return "⏰ Deadline Extension Granted - " + notice.SubjectName
	case "agreement":
		return "📄 Academic Agreement Recorded - " + notice.SubjectName
	case "meeting":
		return "💬 Intervention Meeting Scheduled - " + notice.SubjectName
	default:
		return "📢 Important Notice from " + teacherName
	}
}

func noticeHeading(notice InterventionNotice) (models.NotificationType, string) {
	label := notice.Intervention.Type.Label()
	switch emailSubtype(notice.Intervention.Type) {
	case "nudge":
		return models.NotificationNudge, label + " - " + notice.SubjectName
	case "task":
		return models.NotificationTask, label + " - " + notice.SubjectName
	case "extension":
		return models.NotificationExtension, label + " - " + notice.SubjectName
	default:
		return models.NotificationAlert, label + " - " + notice.SubjectName
	}
}

func noticeBody(notice InterventionNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your teacher %s started %q for %s.", notice.SenderName, notice.Intervention.Type.Label(), notice.SubjectName)
	if notes := notice.Intervention.Notes; notes != nil && *notes != "" {
		fmt.Fprintf(&b, "\n\nNotes: %s", *notes)
	}
	if len(notice.Intervention.Tasks) > 0 {
		b.WriteString("\n\nGoals:")
		for _, task := range notice.Intervention.Tasks {
			fmt.Fprintf(&b, "\n- %s", task.Description)
		}
	}
	return b.String()
}
