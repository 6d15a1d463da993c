package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
	"github.com/noah-isme/sma-aris-api/pkg/jobs"
	"github.com/noah-isme/sma-aris-api/pkg/mailer"
)

type mockNotificationRepo struct {
	created   []models.StudentNotification
	read      map[string]int64
	allRead   int64
	unread    int
	listItems []models.StudentNotificationDetail
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.StudentNotification) error {
	notification.ID = "n-1"
	m.created = append(m.created, *notification)
	return nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.StudentNotificationDetail, error) {
	return m.listItems, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) (int64, error) {
	return m.read[id], nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return m.allRead, nil
}

func (m *mockNotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	return m.unread, nil
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
	done     chan struct{}
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	if m.done != nil {
		close(m.done)
	}
	return nil
}

func strPtr(s string) *string { return &s }

func notice(interventionType models.InterventionType) InterventionNotice {
	return InterventionNotice{
		Intervention: &models.Intervention{
			ID:     "iv-1",
			Type:   interventionType,
			Status: models.InterventionStatusActive,
			Notes:  strPtr("Let's get back on track."),
			Tasks: []models.InterventionTask{
				{Description: "Finish worksheet 3"},
			},
		},
		StudentID:   "st-1",
		StudentName: "Student One",
		SenderID:    "t-1",
		SenderName:  "Mr. Reyes",
		SubjectName: "Mathematics",
	}
}

func TestNotifyInterventionWritesInAppRow(t *testing.T) {
	repo := &mockNotificationRepo{}
	service := NewNotificationService(repo, &mockAuthUserRepo{}, nil, nil, jobs.QueueConfig{Logger: zap.NewNop()}, zap.NewNop())

	service.NotifyIntervention(context.Background(), notice(models.InterventionTaskList))

	require.Len(t, repo.created, 1)
	row := repo.created[0]
	assert.Equal(t, "st-1", row.UserID)
	assert.Equal(t, models.NotificationTask, row.Type)
	assert.Equal(t, "Tier 2: Goal Checklist - Mathematics", row.Title)
	assert.Contains(t, row.Message, "Notes: Let's get back on track.")
	assert.Contains(t, row.Message, "- Finish worksheet 3")
}

func TestNotifyInterventionSendsEmail(t *testing.T) {
	repo := &mockNotificationRepo{}
	users := &mockAuthUserRepo{
		byID: map[string]*models.User{
			"st-1": {ID: "st-1", Email: "student@school.edu", FullName: "Student One", Role: models.RoleStudent},
		},
	}
	m := &recordingMailer{done: make(chan struct{})}
	service := NewNotificationService(repo, users, m, nil, jobs.QueueConfig{Workers: 1, Logger: zap.NewNop()}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.Start(ctx)
	defer service.Stop()

	service.NotifyIntervention(ctx, notice(models.InterventionExtensionGrant))

	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("email was never sent")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.messages, 1)
	assert.Equal(t, "student@school.edu", m.messages[0].ToAddress)
	assert.Equal(t, "⏰ Deadline Extension Granted - Mathematics", m.messages[0].Subject)
}

func TestEmailSubjectPerType(t *testing.T) {
	cases := map[models.InterventionType]string{
		models.InterventionAutomatedNudge:    "📚 Academic Reminder from Mr. Reyes",
		models.InterventionAcademicQuiz:      "📚 Academic Reminder from Mr. Reyes",
		models.InterventionTaskList:          "📋 New Goals Assigned - Mathematics",
		models.InterventionExtensionGrant:    "⏰ Deadline Extension Granted - Mathematics",
		models.InterventionAcademicAgreement: "📄 Academic Agreement Recorded - Mathematics",
		models.InterventionOneOnOneMeeting:   "💬 Intervention Meeting Scheduled - Mathematics",
		models.InterventionParentContact:     "📢 Important Notice from Mr. Reyes",
		models.InterventionCounselorReferral: "📢 Important Notice from Mr. Reyes",
	}
	for interventionType, expected := range cases {
		assert.Equal(t, expected, emailSubject(notice(interventionType)), string(interventionType))
	}
}

func TestEmailSubjectAnonymousSender(t *testing.T) {
	n := notice(models.InterventionAutomatedNudge)
	n.SenderName = ""
	assert.Equal(t, "📚 Academic Reminder from Your Teacher", emailSubject(n))
}

func TestNotificationServiceListRejectsUnknownType(t *testing.T) {
	service := NewNotificationService(&mockNotificationRepo{}, &mockAuthUserRepo{}, nil, nil, jobs.QueueConfig{Logger: zap.NewNop()}, zap.NewNop())

	_, err := service.List(context.Background(), models.NotificationFilter{
		UserID: "st-1",
		Types:  []models.NotificationType{"spam"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceMarkReadNotFound(t *testing.T) {
	repo := &mockNotificationRepo{read: map[string]int64{"n-1": 1}}
	service := NewNotificationService(repo, &mockAuthUserRepo{}, nil, nil, jobs.QueueConfig{Logger: zap.NewNop()}, zap.NewNop())

	require.NoError(t, service.MarkRead(context.Background(), "n-1", "st-1"))

	err := service.MarkRead(context.Background(), "n-2", "st-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
