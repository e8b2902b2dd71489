package course

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core"
	"github.com/mwalimux/elimisha/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("course not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		QueryAllCourses(ctx context.Context, ordering ...core.DBOrdering) ([]Course, error)
		QueryCoursesByInstructor(ctx context.Context, instructorID string) ([]Course, error)
		FilterCourses(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course, isPaid *bool, price *decimal.Decimal) (Course, error)
		CountCourses(ctx context.Context) (int, error)
	}

	// DescriptionGenerator writes a course description when the
	// instructor did not provide one. Implementations live in services/ai.
	DescriptionGenerator interface {
		GenerateDescription(ctx context.Context, name, difficulty string) (string, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, instructorID string, nc NewCourse) (Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		QueryForUser(ctx context.Context, usr user.User, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Count(ctx context.Context) (int, error)
	}

	service struct {
		repo    Repository
		descGen DescriptionGenerator
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, descGen DescriptionGenerator) *service {
	return &service{repo: repo, descGen: descGen}
}

func (svc *service) Create(ctx context.Context, instructorID string, nc NewCourse) (Course, error) {
	desc := nc.Description
	if desc == "" {
		var err error
		if desc, err = svc.descGen.GenerateDescription(ctx, nc.Name, nc.Difficulty); err != nil {
			return Course{}, pkgerrors.Wrap(err, "generating course description")
		}
	}

	crs := Course{
		Name:         nc.Name,
		Description:  desc,
		Difficulty:   nc.Difficulty,
		InstructorID: instructorID,
		IsPaid:       nc.IsPaid,
		Price:        nc.Price.Round(2),
		CreatedAt:    time.Now().UTC(),
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// QueryForUser scopes the course list by role: instructors only see
// their own courses; everyone else sees all.
func (svc *service) QueryForUser(ctx context.Context, usr user.User, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	if usr.IsInstructor() && !usr.IsAdmin() {
		return svc.repo.QueryCoursesByInstructor(ctx, usr.ID)
	}
	if filter.IsEmpty() {
		return svc.repo.QueryAllCourses(ctx, ordering...)
	}
	return svc.repo.FilterCourses(ctx, filter, ordering...)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs := Course{
		ID:          id,
		Name:        uc.Name,
		Description: uc.Description,
		Difficulty:  uc.Difficulty,
	}
	price := uc.Price
	if price != nil {
		rounded := price.Round(2)
		price = &rounded
	}
	return svc.repo.UpdateCourse(ctx, crs, uc.IsPaid, price)
}

func (svc *service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountCourses(ctx)
}
