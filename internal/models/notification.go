package models

import "time"

// NotificationCategory groups notifications in the inbox.
type NotificationCategory string

const (
	NotificationCategoryGeneral     NotificationCategory = "GENERAL"
	NotificationCategoryAcademic    NotificationCategory = "ACADEMIC"
	NotificationCategoryPayment     NotificationCategory = "PAYMENT"
	NotificationCategoryInscription NotificationCategory = "INSCRIPTION"
	NotificationCategoryEvent       NotificationCategory = "EVENT"
)

// Notification is an inbox message addressed to one user.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	UserID    string               `db:"user_id" json:"user_id"`
	Title     string               `db:"title" json:"title"`
	Message   string               `db:"message" json:"message"`
	Category  NotificationCategory `db:"category" json:"category"`
	Link      *string              `db:"link" json:"link,omitempty"`
	Read      bool                 `db:"read" json:"read"`
	ReadAt    *time.Time           `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}

// NotificationFilter lists one user's inbox.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Category   NotificationCategory
	Page       int
	PageSize   int
}
