package assess

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core"
)

type (
	// Assessment belongs to a course; only its instructor creates them.
	Assessment struct {
		ID          string    `json:"id"`
		CourseID    string    `json:"course_id"`
		Title       string    `json:"title"`
		Description string    `json:"description,omitempty"`
		DueDate     time.Time `json:"due_date"` // UTC
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	// Submission is a student's answer to an assessment. Grade is unset
	// until the instructor grades it.
	Submission struct {
		ID           string           `json:"id"`
		AssessmentID string           `json:"assessment_id"`
		StudentID    string           `json:"student_id"`
		Content      string           `json:"content"`
		Grade        *decimal.Decimal `json:"grade,omitempty"` // 0..100
		SubmittedAt  time.Time        `json:"submitted_at"` // UTC
	}
)

// NewAssessment contains information needed to create a new Assessment.
type NewAssessment struct {
	CourseID    string    `json:"course" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

func (na *NewAssessment) Validate(validate *validator.Validate) error {
	na.CourseID = core.CleanString(na.CourseID)
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// NewSubmission contains information needed to submit work.
type NewSubmission struct {
	AssessmentID string `json:"assessment" validate:"required"`
	Content      string `json:"content" validate:"required"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.AssessmentID = core.CleanString(ns.AssessmentID)
	return validate.Struct(ns)
}
