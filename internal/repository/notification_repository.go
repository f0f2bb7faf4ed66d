package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const notificationColumns = `id, user_id, title, message, category, link, read, read_at, created_at`

// NotificationRepository stores user inbox messages.
type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// List returns a user's notifications newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var where conditions
	where.add("user_id = $%d", filter.UserID)
	if filter.UnreadOnly {
		where.add("read = $%d", false)
	}
	if filter.Category != "" {
		where.add("category = $%d", filter.Category)
	}
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT %d OFFSET %d", notificationColumns, where.where(), limit, offset)
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications"+where.where(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return items, total, nil
}

// CountUnread returns the unread count of a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}

// FindForUser returns a notification owned by userID.
func (r *NotificationRepository) FindForUser(ctx context.Context, id, userID string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 AND user_id = $2`
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return &n, nil
}

// CreateBatch inserts notifications in one transaction.
func (r *NotificationRepository) CreateBatch(ctx context.Context, items []models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notifications: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].CreatedAt = now
	}
	const query = `INSERT INTO notifications (id, user_id, title, message, category, link, read, read_at, created_at) VALUES (:id, :user_id, :title, :message, :category, :link, :read, :read_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, items); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notifications: %w", err)
	}
	return nil
}

// MarkRead flags one notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	const query = `UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, $3) WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID, at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return affectedOrNotFound(res)
}

// MarkAllRead flags every unread notification of a user and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	const query = `UPDATE notifications SET read = TRUE, read_at = $2 WHERE user_id = $1 AND read = FALSE`
	res, err := r.db.ExecContext(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}

// Delete removes a notification owned by userID.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return affectedOrNotFound(res)
}
