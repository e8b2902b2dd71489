package notify

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("notification not found")

type (
	// Notification is an in-app message for a user (e.g. an instructor
	// being told a student's progress changed).
	Notification struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		Message   string    `json:"message"`
		IsRead    bool      `json:"is_read"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		QueryNotificationsByUser(ctx context.Context, userID string) ([]Notification, error)
		MarkNotificationRead(ctx context.Context, id string) (Notification, error)
	}

	ServiceInterface interface {
		Notify(ctx context.Context, userID, message string) error
		QueryForUser(ctx context.Context, userID string) ([]Notification, error)
		MarkRead(ctx context.Context, id string) (Notification, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Notify(ctx context.Context, userID, message string) error {
	_, err := svc.repo.CreateNotification(ctx, Notification{
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// QueryForUser returns the user's notifications, newest first.
func (svc *service) QueryForUser(ctx context.Context, userID string) ([]Notification, error) {
	return svc.repo.QueryNotificationsByUser(ctx, userID)
}

func (svc *service) MarkRead(ctx context.Context, id string) (Notification, error) {
	return svc.repo.MarkNotificationRead(ctx, id)
}
