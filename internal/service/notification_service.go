package service

import (
	"context"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
	"github.com/noah-isme/campus-portal-api/pkg/mail"
)

// JobTypeNotificationEmail is the queue job that mails a notification copy.
const JobTypeNotificationEmail = "notification.email"

type notificationRepository interface {
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	FindForUser(ctx context.Context, id, userID string) (*models.Notification, error)
	CreateBatch(ctx context.Context, items []models.Notification) error
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	Delete(ctx context.Context, id, userID string) error
}

type recipientDirectory interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// Note is the content of a notification produced by the portal itself.
type Note struct {
	Title    string
	Message  string
	Category models.NotificationCategory
	Link     *string
	Email    bool
}

// SendNotificationRequest targets either one user or every active user of a role.
type SendNotificationRequest struct {
	UserID    string                      `json:"user_id" validate:"omitempty,uuid"`
	Role      models.UserRole             `json:"role" validate:"omitempty,oneof=SUPERADMIN ADMIN INSTRUCTOR STUDENT"`
	Title     string                      `json:"title" validate:"required,max=200"`
	Message   string                      `json:"message" validate:"required"`
	Category  models.NotificationCategory `json:"category" validate:"omitempty,oneof=GENERAL ACADEMIC PAYMENT INSCRIPTION EVENT"`
	Link      *string                     `json:"link" validate:"omitempty,max=512"`
	SendEmail bool                        `json:"send_email"`
}

// NotificationService manages user inboxes and optional e-mail copies.
type NotificationService struct {
	repo      notificationRepository
	users     recipientDirectory
	queue     jobEnqueuer
	metrics   *MetricsService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService wires the notification service. queue may be nil,
// in which case e-mail copies are skipped. Inbox writes invalidate cached
// dashboards through cache.
func NewNotificationService(repo notificationRepository, users recipientDirectory, queue jobEnqueuer, metrics *MetricsService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:      repo,
		users:     users,
		queue:     queue,
		metrics:   metrics,
		cache:     cache,
		validator: ensureValidator(validate),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns the caller's inbox, newest first, and the unread count.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, int, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, 0, appErrors.Internal(err, "failed to list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, filter.UserID)
	if err != nil {
		return nil, nil, 0, appErrors.Internal(err, "failed to count unread notifications")
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), unread, nil
}

// UnreadCount returns the number of unread notifications of a user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to count unread notifications")
	}
	return count, nil
}

// Send delivers an administrator notification and returns the number of recipients.
func (s *NotificationService) Send(ctx context.Context, req SendNotificationRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, invalid(err, "invalid notification payload")
	}
	if (req.UserID == "") == (req.Role == "") {
		return 0, appErrors.Clone(appErrors.ErrValidation, "exactly one of user_id or role is required")
	}

	var (
		recipients []models.User
		err        error
	)
	if req.UserID != "" {
		recipients, err = s.users.FindByIDs(ctx, []string{req.UserID})
		if err != nil {
			return 0, appErrors.Internal(err, "failed to load recipient")
		}
		if len(recipients) == 0 {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
	} else {
		recipients, err = s.users.ListActiveByRole(ctx, req.Role)
		if err != nil {
			return 0, appErrors.Internal(err, "failed to load recipients")
		}
	}

	category := req.Category
	if category == "" {
		category = models.NotificationCategoryGeneral
	}
	note := Note{
		Title:    strings.TrimSpace(req.Title),
		Message:  strings.TrimSpace(req.Message),
		Category: category,
		Link:     normalizeOptional(req.Link),
		Email:    req.SendEmail,
	}
	if err := s.deliver(ctx, recipients, note); err != nil {
		return 0, err
	}
	return len(recipients), nil
}

// Notify places a portal generated note in one user's inbox.
// Unknown users are skipped.
func (s *NotificationService) Notify(ctx context.Context, userID string, note Note) error {
	recipients, err := s.users.FindByIDs(ctx, []string{userID})
	if err != nil {
		return appErrors.Internal(err, "failed to load recipient")
	}
	if len(recipients) == 0 {
		s.logger.Warn("notification recipient not found", zap.String("user_id", userID))
		return nil
	}
	if note.Category == "" {
		note.Category = models.NotificationCategoryGeneral
	}
	return s.deliver(ctx, recipients, note)
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	if err := s.repo.MarkRead(ctx, id, userID, s.now()); err != nil {
		return nil, lookupError(err, "notification not found", "failed to mark notification read")
	}
	s.invalidate(ctx)
	n, err := s.repo.FindForUser(ctx, id, userID)
	if err != nil {
		return nil, lookupError(err, "notification not found", "failed to load notification")
	}
	return n, nil
}

// MarkAllRead flags the caller's whole inbox as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, appErrors.Internal(err, "failed to mark notifications read")
	}
	if updated > 0 {
		s.invalidate(ctx)
	}
	return updated, nil
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return lookupError(err, "notification not found", "failed to delete notification")
	}
	s.invalidate(ctx)
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, recipients []models.User, note Note) error {
	if len(recipients) == 0 {
		return nil
	}
	items := make([]models.Notification, 0, len(recipients))
	for _, user := range recipients {
		items = append(items, models.Notification{
			UserID:   user.ID,
			Title:    note.Title,
			Message:  note.Message,
			Category: note.Category,
			Link:     note.Link,
		})
	}
	if err := s.repo.CreateBatch(ctx, items); err != nil {
		return appErrors.Internal(err, "failed to create notifications")
	}
	s.metrics.RecordNotifications(string(note.Category), len(items))
	s.invalidate(ctx)

	if note.Email {
		s.enqueueEmails(recipients, note)
	}
	return nil
}

func (s *NotificationService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, cachePrefixDashboard+"*")
}

func (s *NotificationService) enqueueEmails(recipients []models.User, note Note) {
	if s.queue == nil {
		s.logger.Warn("email requested but no queue is configured", zap.Int("recipients", len(recipients)))
		return
	}
	for _, user := range recipients {
		if user.Email == "" {
			continue
		}
		msg := mail.Message{
			To:       []netmail.Address{{Name: user.FullName, Address: user.Email}},
			Subject:  note.Title,
			Text:     emailBody(note),
			Category: strings.ToLower(string(note.Category)),
		}
		if err := s.queue.Enqueue(jobs.Job{Type: JobTypeNotificationEmail, Payload: msg}); err != nil {
			s.logger.Warn("failed to enqueue notification email", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
}

func emailBody(note Note) string {
	if note.Link == nil {
		return note.Message
	}
	return fmt.Sprintf("%s\n\n%s", note.Message, *note.Link)
}

// NewEmailJobHandler delivers queued notification e-mails through sender.
func NewEmailJobHandler(sender mail.Sender, metrics *MetricsService) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(mail.Message)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		err := sender.Send(ctx, msg)
		metrics.RecordMail(err)
		return err
	}
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type notifier interface {
	Notify(ctx context.Context, userID string, note Note) error
}

// studentNotifier resolves a student's account before notifying it.
// Students without a linked account are skipped.
type studentNotifier struct {
	students studentLookup
	notifier notifier
	logger   *zap.Logger
}

func (n studentNotifier) notify(ctx context.Context, studentID string, note Note) {
	if n.notifier == nil || n.students == nil {
		return
	}
	student, err := n.students.FindByID(ctx, studentID)
	if err != nil {
		n.logger.Warn("failed to resolve student for notification", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if student.UserID == nil {
		return
	}
	if err := n.notifier.Notify(ctx, *student.UserID, note); err != nil {
		n.logger.Warn("failed to notify student", zap.String("student_id", studentID), zap.Error(err))
	}
}
