package assess

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core"
)

var (
	// errors
	ErrNotFound           = errors.New("assessment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNotEnrolled        = errors.New("you are not enrolled in this course")
)

type (
	Repository interface {
		CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		GetAssessmentByID(ctx context.Context, id string) (Assessment, error)
		QueryAssessmentsByCourse(ctx context.Context, courseIDs ...string) ([]Assessment, error)
		QueryAllAssessments(ctx context.Context) ([]Assessment, error)
		// QueryAssessmentsDueBefore lists assessments whose due date falls
		// between now and the deadline.
		QueryAssessmentsDueBefore(ctx context.Context, deadline time.Time) ([]Assessment, error)

		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		QuerySubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error)
		QuerySubmissionsByCourseInstructor(ctx context.Context, instructorID string) ([]Submission, error)
		QueryAllSubmissions(ctx context.Context) ([]Submission, error)
		SetSubmissionGrade(ctx context.Context, id string, grade decimal.Decimal) (Submission, error)
	}

	// EnrollmentChecker reports whether a student is enrolled in a course.
	// Implemented by the enrollment service's repository-backed check.
	EnrollmentChecker interface {
		IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, na NewAssessment) (Assessment, error)
		GetByID(ctx context.Context, id string) (Assessment, error)
		QueryByCourse(ctx context.Context, courseIDs ...string) ([]Assessment, error)
		QueryAll(ctx context.Context) ([]Assessment, error)
		QueryDueSoon(ctx context.Context, within time.Duration) ([]Assessment, error)

		Submit(ctx context.Context, studentID string, ns NewSubmission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		QuerySubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error)
		QuerySubmissionsByInstructor(ctx context.Context, instructorID string) ([]Submission, error)
		QueryAllSubmissions(ctx context.Context) ([]Submission, error)
		Grade(ctx context.Context, submissionID string, grade decimal.Decimal) (Submission, error)
	}

	service struct {
		repo     Repository
		enrolled EnrollmentChecker
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, enrolled EnrollmentChecker) *service {
	return &service{repo: repo, enrolled: enrolled}
}

func (svc *service) Create(ctx context.Context, na NewAssessment) (Assessment, error) {
	a := Assessment{
		CourseID:    na.CourseID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateAssessment(ctx, a)
}

func (svc *service) GetByID(ctx context.Context, id string) (Assessment, error) {
	return svc.repo.GetAssessmentByID(ctx, id)
}

func (svc *service) QueryByCourse(ctx context.Context, courseIDs ...string) ([]Assessment, error) {
	return svc.repo.QueryAssessmentsByCourse(ctx, courseIDs...)
}

func (svc *service) QueryAll(ctx context.Context) ([]Assessment, error) {
	return svc.repo.QueryAllAssessments(ctx)
}

// QueryDueSoon lists assessments due within the given window; used by
// the due-date reminder command.
func (svc *service) QueryDueSoon(ctx context.Context, within time.Duration) ([]Assessment, error) {
	return svc.repo.QueryAssessmentsDueBefore(ctx, time.Now().UTC().Add(within))
}

// Submit records a student's work; the student must be enrolled in the
// assessment's course.
func (svc *service) Submit(ctx context.Context, studentID string, ns NewSubmission) (Submission, error) {
	a, err := svc.repo.GetAssessmentByID(ctx, ns.AssessmentID)
	if err != nil {
		return Submission{}, err
	}

	if ok, err := svc.enrolled.IsEnrolled(ctx, studentID, a.CourseID); err != nil {
		return Submission{}, err
	} else if !ok {
		return Submission{}, core.NewValidationError(ErrNotEnrolled)
	}

	s := Submission{
		AssessmentID: ns.AssessmentID,
		StudentID:    studentID,
		Content:      ns.Content,
		SubmittedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateSubmission(ctx, s)
}

func (svc *service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

func (svc *service) QuerySubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error) {
	return svc.repo.QuerySubmissionsByStudent(ctx, studentID)
}

func (svc *service) QuerySubmissionsByInstructor(ctx context.Context, instructorID string) ([]Submission, error) {
	return svc.repo.QuerySubmissionsByCourseInstructor(ctx, instructorID)
}

func (svc *service) QueryAllSubmissions(ctx context.Context) ([]Submission, error) {
	return svc.repo.QueryAllSubmissions(ctx)
}

// Grade sets a submission's grade; must be between 0 and 100.
func (svc *service) Grade(ctx context.Context, submissionID string, grade decimal.Decimal) (Submission, error) {
	if grade.IsNegative() || grade.GreaterThan(decimal.NewFromInt(100)) {
		return Submission{}, core.NewValidationError(nil,
			core.FieldError{Field: "grade", Error: "grade must be between 0 and 100"})
	}
	return svc.repo.SetSubmissionGrade(ctx, submissionID, grade)
}
