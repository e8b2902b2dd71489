package enroll

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core"
)

// Payment statuses
const (
	PaymentPending   = "Pending"
	PaymentCompleted = "Completed"
	PaymentFailed    = "Failed"
)

type (
	// Enrollment tracks a student's membership and progress in a course.
	// Unique per (student, course).
	Enrollment struct {
		ID         string          `json:"id"`
		StudentID  string          `json:"student_id"`
		CourseID   string          `json:"course_id"`
		CourseName string          `json:"course_name,omitempty"`
		Progress   decimal.Decimal `json:"progress"` // 0..100
		EnrolledAt time.Time       `json:"enrolled_at"` // UTC
	}

	// PaymentTransaction records a (simulated) course payment.
	PaymentTransaction struct {
		ID        string          `json:"id"`
		StudentID string          `json:"student_id"`
		CourseID  string          `json:"course_id"`
		Amount    decimal.Decimal `json:"amount"`
		Method    string          `json:"payment_method"`
		Status    string          `json:"status"`
		Reference string          `json:"reference"`
		CreatedAt time.Time       `json:"created_at"` // UTC
	}
)

// NewEnrollment contains information needed to enroll in a course.
// The student is always the authenticated caller; a student ID in the
// payload is ignored to prevent identity spoofing.
type NewEnrollment struct {
	CourseID string `json:"course" validate:"required"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.CourseID = core.CleanString(ne.CourseID)
	return validate.Struct(ne)
}

type QueryFilter struct {
	StudentID    string `query:"student"`
	CourseID     string `query:"course"`
	InstructorID string `query:"-"` // set from the caller's identity, not the query string
	Search       string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.CourseID == "" && qf.InstructorID == "" && qf.Search == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
