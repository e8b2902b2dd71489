package pgrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core"
	"github.com/mwalimux/elimisha/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID           string          `db:"id"`
	Name         string          `db:"name"`
	Description  string          `db:"description"`
	Difficulty   string          `db:"difficulty_level"`
	InstructorID string          `db:"instructor_id"`
	IsPaid       bool            `db:"is_paid"`
	Price        decimal.Decimal `db:"price"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (row courseRow) toCourse() course.Course {
	return course.Course{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		Difficulty:   row.Difficulty,
		InstructorID: row.InstructorID,
		IsPaid:       row.IsPaid,
		Price:        row.Price,
		CreatedAt:    row.CreatedAt,
	}
}

func toCourses(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const courseColumns = "id, name, description, difficulty_level, instructor_id, is_paid, price, created_at"

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query := `
		INSERT INTO courses (name, description, difficulty_level, instructor_id, is_paid, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + courseColumns
	var row courseRow
	err := repo.db.GetContext(ctx, &row, query,
		crs.Name, crs.Description, crs.Difficulty, crs.InstructorID, crs.IsPaid, crs.Price, crs.CreatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course by id")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) QueryAllCourses(ctx context.Context, ordering ...core.DBOrdering) ([]course.Course, error) {
	var rows []courseRow
	query := fmt.Sprintf("SELECT %s FROM courses%s", courseColumns, orderByClause(ordering, "created_at"))
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return toCourses(rows), nil
}

func (repo courseRepository) QueryCoursesByInstructor(ctx context.Context, instructorID string) ([]course.Course, error) {
	var rows []courseRow
	query := fmt.Sprintf("SELECT %s FROM courses WHERE instructor_id = $1 ORDER BY created_at", courseColumns)
	if err := repo.db.SelectContext(ctx, &rows, query, instructorID); err != nil {
		return nil, errors.Wrap(err, "querying courses by instructor")
	}
	return toCourses(rows), nil
}

func (repo courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR difficulty_level ILIKE %[1]s)", p))
	}
	if filter.InstructorID != "" {
		conds = append(conds, "instructor_id = "+arg(filter.InstructorID))
	}
	if filter.Difficulty != "" {
		conds = append(conds, "LOWER(difficulty_level) = LOWER("+arg(filter.Difficulty)+")")
	}

	query := fmt.Sprintf("SELECT %s FROM courses", courseColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderByClause(ordering, "created_at")

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering courses")
	}
	return toCourses(rows), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, isPaid *bool, price *decimal.Decimal) (course.Course, error) {
	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if crs.Name != "" {
		set("name", crs.Name)
	}
	if crs.Description != "" {
		set("description", crs.Description)
	}
	if crs.Difficulty != "" {
		set("difficulty_level", crs.Difficulty)
	}
	if isPaid != nil {
		set("is_paid", *isPaid)
	}
	if price != nil {
		set("price", *price)
	}
	if len(sets) == 0 {
		return repo.GetCourseByID(ctx, crs.ID)
	}

	args = append(args, crs.ID)
	query := fmt.Sprintf(
		"UPDATE courses SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), courseColumns,
	)
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "updating course")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) CountCourses(ctx context.Context) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM courses"); err != nil {
		return 0, errors.Wrap(err, "counting courses")
	}
	return count, nil
}
