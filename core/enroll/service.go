package enroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core"
	"github.com/mwalimux/elimisha/core/course"
)

var (
	// errors
	ErrNotFound        = errors.New("enrollment not found")
	ErrAlreadyEnrolled = errors.New("you are already enrolled in this course")
	ErrPaymentRequired = errors.New("this is a paid course; you must pay or have sponsorship to enroll")
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
		EnrollmentExists(ctx context.Context, studentID, courseID string) (bool, error)
		FilterEnrollments(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Enrollment, error)
		UpdateEnrollmentProgress(ctx context.Context, id string, progress decimal.Decimal) (Enrollment, error)
		CountEnrollments(ctx context.Context) (int, error)

		CreatePaymentTransaction(ctx context.Context, txn PaymentTransaction) (PaymentTransaction, error)
		HasCompletedPayment(ctx context.Context, studentID, courseID string) (bool, error)
	}

	// SponsorshipChecker reports whether a student holds a sponsorship
	// covering a course. Implemented by the sponsor service.
	SponsorshipChecker interface {
		HasSponsorship(ctx context.Context, studentID, courseID string) (bool, error)
	}

	// Notifier delivers in-app notifications. Implemented by the notify service.
	Notifier interface {
		Notify(ctx context.Context, userID, message string) error
	}

	ServiceInterface interface {
		Enroll(ctx context.Context, studentID, courseID string) (Enrollment, error)
		GetByID(ctx context.Context, id string) (Enrollment, error)
		Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Enrollment, error)
		UpdateProgress(ctx context.Context, id string, progress decimal.Decimal) (Enrollment, error)
		IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
		SimulatePayment(ctx context.Context, studentID, courseID string) (Enrollment, error)
		Count(ctx context.Context) (int, error)
	}

	service struct {
		repo       Repository
		courseSvc  course.ServiceInterface
		sponsorChk SponsorshipChecker
		notifier   Notifier
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, courseSvc course.ServiceInterface, sponsorChk SponsorshipChecker, notifier Notifier) *service {
	return &service{repo: repo, courseSvc: courseSvc, sponsorChk: sponsorChk, notifier: notifier}
}

// Enroll adds the student to a course. Paid courses require an existing
// sponsorship (course-scoped or unscoped) or a completed payment.
func (svc *service) Enroll(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	if exists, err := svc.repo.EnrollmentExists(ctx, studentID, courseID); err != nil {
		return Enrollment{}, err
	} else if exists {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
	}

	if crs.Chargeable() {
		covered, err := svc.isCovered(ctx, studentID, courseID)
		if err != nil {
			return Enrollment{}, err
		}
		if !covered {
			return Enrollment{}, ErrPaymentRequired
		}
	}

	enr := Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		Progress:   decimal.Zero,
		EnrolledAt: time.Now().UTC(),
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

func (svc *service) isCovered(ctx context.Context, studentID, courseID string) (bool, error) {
	if sponsored, err := svc.sponsorChk.HasSponsorship(ctx, studentID, courseID); err != nil {
		return false, err
	} else if sponsored {
		return true, nil
	}
	return svc.repo.HasCompletedPayment(ctx, studentID, courseID)
}

func (svc *service) GetByID(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Enrollment, error) {
	return svc.repo.FilterEnrollments(ctx, filter, ordering...)
}

// UpdateProgress sets an enrollment's progress (0..100) and notifies
// the course's instructor.
func (svc *service) UpdateProgress(ctx context.Context, id string, progress decimal.Decimal) (Enrollment, error) {
	if progress.IsNegative() || progress.GreaterThan(decimal.NewFromInt(100)) {
		return Enrollment{}, core.NewValidationError(nil,
			core.FieldError{Field: "progress", Error: "progress must be between 0 and 100"})
	}

	enr, err := svc.repo.UpdateEnrollmentProgress(ctx, id, progress)
	if err != nil {
		return Enrollment{}, err
	}

	// best effort; progress is saved either way
	if crs, err := svc.courseSvc.GetByID(ctx, enr.CourseID); err == nil {
		_ = svc.notifier.Notify(ctx, crs.InstructorID,
			fmt.Sprintf("A student reached %s%% progress in %s.", progress.StringFixed(0), crs.Name))
	}
	return enr, nil
}

// SimulatePayment completes a fake payment for a paid course and
// enrolls the student. Free courses enroll directly. Dev/testing helper.
func (svc *service) SimulatePayment(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	if exists, err := svc.repo.EnrollmentExists(ctx, studentID, courseID); err != nil {
		return Enrollment{}, err
	} else if exists {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
	}

	if crs.Chargeable() {
		txn := PaymentTransaction{
			StudentID: studentID,
			CourseID:  courseID,
			Amount:    crs.Price,
			Method:    "Cash", // just for testing
			Status:    PaymentCompleted,
			Reference: fmt.Sprintf("DEV-%s", uuid.New().String()),
			CreatedAt: time.Now().UTC(),
		}
		if _, err := svc.repo.CreatePaymentTransaction(ctx, txn); err != nil {
			return Enrollment{}, err
		}
	}

	enr := Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		Progress:   decimal.Zero,
		EnrolledAt: time.Now().UTC(),
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

// IsEnrolled reports whether the student has an enrollment in the course.
func (svc *service) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	return svc.repo.EnrollmentExists(ctx, studentID, courseID)
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountEnrollments(ctx)
}
