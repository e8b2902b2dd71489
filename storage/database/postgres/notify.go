package pgrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimux/elimisha/core/notify"
)

type notifyRepository struct {
	db *sqlx.DB
}

var _ notify.Repository = (*notifyRepository)(nil) // interface compliance check

func NewNotifyRepository(db *sqlx.DB) *notifyRepository {
	return &notifyRepository{db: db}
}

type notificationRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Message   string    `db:"message"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

func (row notificationRow) toNotification() notify.Notification {
	return notify.Notification{
		ID:        row.ID,
		UserID:    row.UserID,
		Message:   row.Message,
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
	}
}

const notificationColumns = "id, user_id, message, is_read, created_at"

func (repo notifyRepository) CreateNotification(ctx context.Context, n notify.Notification) (notify.Notification, error) {
	query := `
		INSERT INTO notifications (user_id, message, created_at)
		VALUES ($1, $2, $3)
		RETURNING ` + notificationColumns
	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, query, n.UserID, n.Message, n.CreatedAt.UTC()); err != nil {
		return notify.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return row.toNotification(), nil
}

func (repo notifyRepository) QueryNotificationsByUser(ctx context.Context, userID string) ([]notify.Notification, error) {
	var rows []notificationRow
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE user_id = $1 ORDER BY created_at DESC", notificationColumns)
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	ns := make([]notify.Notification, 0, len(rows))
	for _, row := range rows {
		ns = append(ns, row.toNotification())
	}
	return ns, nil
}

func (repo notifyRepository) MarkNotificationRead(ctx context.Context, id string) (notify.Notification, error) {
	query := fmt.Sprintf("UPDATE notifications SET is_read = true WHERE id = $1 RETURNING %s", notificationColumns)
	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return notify.Notification{}, notify.ErrNotFound
		}
		return notify.Notification{}, errors.Wrap(err, "marking notification read")
	}
	return row.toNotification(), nil
}
