package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core"
)

// Difficulty levels
const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

var Difficulties = []string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

type Course struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Difficulty   string          `json:"difficulty_level"`
	InstructorID string          `json:"instructor_id"`
	IsPaid       bool            `json:"is_paid"`
	Price        decimal.Decimal `json:"price"`
	CreatedAt    time.Time       `json:"created_at"` // UTC
}

// Chargeable reports whether enrolling requires payment or sponsorship.
func (c Course) Chargeable() bool {
	return c.IsPaid || c.Price.IsPositive()
}

// NewCourse contains information needed to create a new Course.
// Description may be left blank; it is then generated.
type NewCourse struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Difficulty  string          `json:"difficulty_level" validate:"required,difficulty"`
	IsPaid      bool            `json:"is_paid"`
	Price       decimal.Decimal `json:"price"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	if nc.Price.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "price", Error: "price cannot be negative"})
	}
	return nil
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Difficulty  string           `json:"difficulty_level" validate:"omitempty,difficulty"`
	IsPaid      *bool            `json:"is_paid"`
	Price       *decimal.Decimal `json:"price"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Description = core.CleanString(uc.Description)
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.Price != nil && uc.Price.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "price", Error: "price cannot be negative"})
	}
	return nil
}

type QueryFilter struct {
	Search       string `query:"search"` // matches name or difficulty
	InstructorID string `query:"instructor"`
	Difficulty   string `query:"difficulty_level"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.InstructorID == "" && qf.Difficulty == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Difficulty = core.CleanString(qf.Difficulty)
}
