package sponsor

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core"
)

// Entry kinds
const (
	KindAdd    = "ADD"
	KindDeduct = "DEDUCT"
)

type (
	// Account holds a sponsor's prepaid balance. One per sponsor;
	// Balance never goes below zero and is only mutated through the
	// ledger primitives.
	Account struct {
		ID        string          `json:"id"`
		SponsorID string          `json:"sponsor_id"`
		Balance   decimal.Decimal `json:"balance"`
		CreatedAt time.Time       `json:"created_at"` // UTC
	}

	// Entry is an immutable record of a single balance-affecting event.
	// Entries are append-only; they are never updated or deleted.
	Entry struct {
		ID           string          `json:"id"`
		AccountID    string          `json:"account_id"`
		Kind         string          `json:"kind"` // ADD | DEDUCT
		Amount       decimal.Decimal `json:"amount"`
		BalanceAfter decimal.Decimal `json:"balance_after"`
		Description  string          `json:"description,omitempty"`
		CreatedAt    time.Time       `json:"created_at"` // UTC
	}

	// Sponsorship commits funds from a sponsor to a student, optionally
	// scoped to a course. Never modified after creation.
	Sponsorship struct {
		ID        string          `json:"id"`
		AccountID string          `json:"account_id"`
		StudentID string          `json:"student_id"`
		CourseID  string          `json:"course_id,omitempty"` // empty: funds the student generally
		Amount    decimal.Decimal `json:"amount"`
		CreatedAt time.Time       `json:"created_at"` // UTC
	}
)

// ParseAmount parses a caller-supplied monetary amount. The amount must
// be a positive decimal with at most 2 fractional digits; anything else
// is ErrInvalidAmount. Amounts are never floats.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(core.CleanString(s))
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if !d.IsPositive() || !d.Equal(d.Round(2)) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// NewSponsorship contains information needed to create a new Sponsorship.
type NewSponsorship struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id"`
	Amount    string `json:"amount" validate:"required"`
}

func (ns *NewSponsorship) Validate(validate *validator.Validate) (decimal.Decimal, error) {
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.CourseID = core.CleanString(ns.CourseID)
	if err := validate.Struct(ns); err != nil {
		return decimal.Decimal{}, err
	}
	return ParseAmount(ns.Amount)
}

type SponsorshipFilter struct {
	StudentID string `query:"student"`
	CourseID  string `query:"course"`
}

func (sf *SponsorshipFilter) IsEmpty() bool {
	return sf.StudentID == "" && sf.CourseID == ""
}

type (
	// StudentProgress is one sponsored student's enrollment snapshot,
	// supplied by the enrollment subsystem through the repository.
	EnrollmentProgress struct {
		CourseID   string          `json:"course_id"`
		CourseName string          `json:"course_name"`
		Progress   decimal.Decimal `json:"progress"`
		EnrolledAt time.Time       `json:"enrolled_at"`
	}

	SponsoredStudent struct {
		StudentID       string               `json:"student_id"`
		SponsoredCourse string               `json:"sponsored_course,omitempty"`
		SponsoredAmount decimal.Decimal      `json:"sponsored_amount"`
		Enrollments     []EnrollmentProgress `json:"enrollments"`
	}

	// Dashboard aggregates a sponsor's impact.
	Dashboard struct {
		SponsorID             string             `json:"sponsor_id"`
		Balance               decimal.Decimal    `json:"balance"`
		TotalSponsoredAmount  decimal.Decimal    `json:"total_sponsored_amount"`
		TotalFundsAdded       decimal.Decimal    `json:"total_funds_added"`
		TotalFundsDeducted    decimal.Decimal    `json:"total_funds_deducted"`
		TotalStudentsSponsored int               `json:"total_students_sponsored"`
		AverageProgress       decimal.Decimal    `json:"average_student_progress"`
		Students              []SponsoredStudent `json:"students"`
	}
)
