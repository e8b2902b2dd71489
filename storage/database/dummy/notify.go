package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mwalimux/elimisha/core/notify"
)

type notifyRepository struct {
	db *notifyTable
}

var _ notify.Repository = (*notifyRepository)(nil) // interface compliance check

func NewNotifyRepository(db *DB) *notifyRepository {
	return &notifyRepository{db: db.notify}
}

func (repo *notifyRepository) CreateNotification(ctx context.Context, n notify.Notification) (notify.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n.ID = uuid.New().String()
	repo.db.table[n.ID] = &n
	return n, nil
}

func (repo *notifyRepository) QueryNotificationsByUser(ctx context.Context, userID string) ([]notify.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ns := make([]notify.Notification, 0)
	for _, n := range repo.db.table {
		if n.UserID == userID {
			ns = append(ns, *n)
		}
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].CreatedAt.After(ns[j].CreatedAt) })
	return ns, nil
}

func (repo *notifyRepository) MarkNotificationRead(ctx context.Context, id string) (notify.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.table[id]
	if !ok {
		return notify.Notification{}, notify.ErrNotFound
	}
	n.IsRead = true
	return *n, nil
}
