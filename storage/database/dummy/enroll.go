package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core"
	"github.com/mwalimux/elimisha/core/enroll"
)

type enrollRepository struct {
	db      *enrollTable
	courses *courseTable
}

var _ enroll.Repository = (*enrollRepository)(nil) // interface compliance check

func NewEnrollRepository(db *DB) *enrollRepository {
	return &enrollRepository{db: db.enroll, courses: db.course}
}

// courseInfo resolves display names and instructors without holding the
// enrollment lock.
func (repo *enrollRepository) courseInfo() (names map[string]string, instructors map[string]string) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	names = make(map[string]string, len(repo.courses.table))
	instructors = make(map[string]string, len(repo.courses.table))
	for id, crs := range repo.courses.table {
		names[id] = crs.Name
		instructors[id] = crs.InstructorID
	}
	return names, instructors
}

func (repo *enrollRepository) query(names map[string]string) []enroll.Enrollment {
	enrs := make([]enroll.Enrollment, 0, len(repo.db.table))
	for _, enr := range repo.db.table {
		e := *enr
		e.CourseName = names[e.CourseID]
		enrs = append(enrs, e)
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.Before(enrs[j].EnrolledAt) })
	return enrs
}

func (repo *enrollRepository) CreateEnrollment(ctx context.Context, enr enroll.Enrollment) (enroll.Enrollment, error) {
	names, _ := repo.courseInfo()

	repo.db.Lock()
	defer repo.db.Unlock()

	enr.ID = uuid.New().String()
	repo.db.table[enr.ID] = &enr

	res := enr
	res.CourseName = names[res.CourseID]
	return res, nil
}

func (repo *enrollRepository) GetEnrollmentByID(ctx context.Context, id string) (enroll.Enrollment, error) {
	names, _ := repo.courseInfo()

	repo.db.RLock()
	defer repo.db.RUnlock()

	if enr, ok := repo.db.table[id]; ok {
		res := *enr
		res.CourseName = names[res.CourseID]
		return res, nil
	}
	return enroll.Enrollment{}, enroll.ErrNotFound
}

func (repo *enrollRepository) EnrollmentExists(ctx context.Context, studentID, courseID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, enr := range repo.db.table {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *enrollRepository) FilterEnrollments(ctx context.Context, filter enroll.QueryFilter, ordering ...core.DBOrdering) ([]enroll.Enrollment, error) {
	names, instructors := repo.courseInfo()

	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]enroll.Enrollment, 0)
	for _, enr := range repo.query(names) {
		if matchesEnrollFilter(enr, filter, instructors) {
			enrs = append(enrs, enr)
		}
	}
	return enrs, nil
}

func matchesEnrollFilter(enr enroll.Enrollment, filter enroll.QueryFilter, instructors map[string]string) bool {
	if filter.StudentID != "" && enr.StudentID != filter.StudentID {
		return false
	}
	if filter.CourseID != "" && enr.CourseID != filter.CourseID {
		return false
	}
	if filter.InstructorID != "" && instructors[enr.CourseID] != filter.InstructorID {
		return false
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(enr.CourseName), search) {
			return false
		}
	}
	return true
}

func (repo *enrollRepository) UpdateEnrollmentProgress(ctx context.Context, id string, progress decimal.Decimal) (enroll.Enrollment, error) {
	names, _ := repo.courseInfo()

	repo.db.Lock()
	defer repo.db.Unlock()

	enr, ok := repo.db.table[id]
	if !ok {
		return enroll.Enrollment{}, enroll.ErrNotFound
	}
	enr.Progress = progress

	res := *enr
	res.CourseName = names[res.CourseID]
	return res, nil
}

func (repo *enrollRepository) CountEnrollments(ctx context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.table), nil
}

func (repo *enrollRepository) CreatePaymentTransaction(ctx context.Context, txn enroll.PaymentTransaction) (enroll.PaymentTransaction, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	txn.ID = uuid.New().String()
	repo.db.payments[txn.ID] = &txn
	return txn, nil
}

func (repo *enrollRepository) HasCompletedPayment(ctx context.Context, studentID, courseID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, txn := range repo.db.payments {
		if txn.StudentID == studentID && txn.CourseID == courseID && txn.Status == enroll.PaymentCompleted {
			return true, nil
		}
	}
	return false, nil
}
