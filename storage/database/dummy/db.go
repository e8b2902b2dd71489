package dummydb

import (
	"sync"

	"github.com/mwalimux/elimisha/core/assess"
	"github.com/mwalimux/elimisha/core/course"
	"github.com/mwalimux/elimisha/core/enroll"
	"github.com/mwalimux/elimisha/core/notify"
	"github.com/mwalimux/elimisha/core/sponsor"
	"github.com/mwalimux/elimisha/core/user"
)

// dummydb is an in-memory database used by tests and local dev.
// Each table guards itself with an embedded RWMutex; the sponsor
// tables additionally serialize balance mutations per account.
type (
	DB struct {
		user    *userTable
		course  *courseTable
		enroll  *enrollTable
		assess  *assessTable
		sponsor *sponsorTables
		notify  *notifyTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	enrollTable struct {
		sync.RWMutex
		table    map[string]*enroll.Enrollment
		payments map[string]*enroll.PaymentTransaction
	}

	assessTable struct {
		sync.RWMutex
		table       map[string]*assess.Assessment
		submissions map[string]*assess.Submission
	}

	sponsorTables struct {
		sync.RWMutex
		accounts     map[string]*sponsor.Account
		entries      []sponsor.Entry
		sponsorships map[string]*sponsor.Sponsorship
		accountLocks map[string]*sync.Mutex
	}

	notifyTable struct {
		sync.RWMutex
		table map[string]*notify.Notification
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:   &userTable{table: make(map[string]*user.User)},
		course: &courseTable{table: make(map[string]*course.Course)},
		enroll: &enrollTable{
			table:    make(map[string]*enroll.Enrollment),
			payments: make(map[string]*enroll.PaymentTransaction),
		},
		assess: &assessTable{
			table:       make(map[string]*assess.Assessment),
			submissions: make(map[string]*assess.Submission),
		},
		sponsor: &sponsorTables{
			accounts:     make(map[string]*sponsor.Account),
			sponsorships: make(map[string]*sponsor.Sponsorship),
			accountLocks: make(map[string]*sync.Mutex),
		},
		notify: &notifyTable{table: make(map[string]*notify.Notification)},
	}
	return db, nil
}
