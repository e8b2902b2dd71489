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
	"github.com/mwalimux/elimisha/core/enroll"
)

type enrollRepository struct {
	db *sqlx.DB
}

var _ enroll.Repository = (*enrollRepository)(nil) // interface compliance check

func NewEnrollRepository(db *sqlx.DB) *enrollRepository {
	return &enrollRepository{db: db}
}

type enrollmentRow struct {
	ID         string          `db:"id"`
	StudentID  string          `db:"student_id"`
	CourseID   string          `db:"course_id"`
	CourseName string          `db:"course_name"`
	Progress   decimal.Decimal `db:"progress"`
	EnrolledAt time.Time       `db:"enrolled_at"`
}

func (row enrollmentRow) toEnrollment() enroll.Enrollment {
	return enroll.Enrollment{
		ID:         row.ID,
		StudentID:  row.StudentID,
		CourseID:   row.CourseID,
		CourseName: row.CourseName,
		Progress:   row.Progress,
		EnrolledAt: row.EnrolledAt,
	}
}

func toEnrollments(rows []enrollmentRow) []enroll.Enrollment {
	enrs := make([]enroll.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.toEnrollment())
	}
	return enrs
}

// trapNoRowsErr maps psql "no rows" err to enroll.ErrNotFound
func (repo enrollRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return enroll.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const enrollmentColumns = "e.id, e.student_id, e.course_id, c.name AS course_name, e.progress, e.enrolled_at"
const enrollmentFrom = "FROM enrollments e JOIN courses c ON c.id = e.course_id"

func (repo enrollRepository) CreateEnrollment(ctx context.Context, enr enroll.Enrollment) (enroll.Enrollment, error) {
	query := `
		INSERT INTO enrollments (student_id, course_id, progress, enrolled_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	var id string
	err := repo.db.GetContext(ctx, &id, query, enr.StudentID, enr.CourseID, enr.Progress, enr.EnrolledAt.UTC())
	if err != nil {
		return enroll.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return repo.GetEnrollmentByID(ctx, id)
}

func (repo enrollRepository) GetEnrollmentByID(ctx context.Context, id string) (enroll.Enrollment, error) {
	var row enrollmentRow
	query := fmt.Sprintf("SELECT %s %s WHERE e.id = $1", enrollmentColumns, enrollmentFrom)
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return enroll.Enrollment{}, repo.trapNoRowsErr(err, "getting enrollment by id")
	}
	return row.toEnrollment(), nil
}

func (repo enrollRepository) EnrollmentExists(ctx context.Context, studentID, courseID string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)"
	if err := repo.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return exists, nil
}

func (repo enrollRepository) FilterEnrollments(ctx context.Context, filter enroll.QueryFilter, ordering ...core.DBOrdering) ([]enroll.Enrollment, error) {
	conds := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StudentID != "" {
		conds = append(conds, "e.student_id = "+arg(filter.StudentID))
	}
	if filter.CourseID != "" {
		conds = append(conds, "e.course_id = "+arg(filter.CourseID))
	}
	if filter.InstructorID != "" {
		conds = append(conds, "c.instructor_id = "+arg(filter.InstructorID))
	}
	if filter.Search != "" {
		conds = append(conds, "c.name ILIKE "+arg("%"+filter.Search+"%"))
	}

	query := fmt.Sprintf("SELECT %s %s", enrollmentColumns, enrollmentFrom)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderByClause(ordering, "e.enrolled_at")

	var rows []enrollmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering enrollments")
	}
	return toEnrollments(rows), nil
}

func (repo enrollRepository) UpdateEnrollmentProgress(ctx context.Context, id string, progress decimal.Decimal) (enroll.Enrollment, error) {
	query := "UPDATE enrollments SET progress = $1 WHERE id = $2 RETURNING id"
	var updatedID string
	if err := repo.db.GetContext(ctx, &updatedID, query, progress, id); err != nil {
		return enroll.Enrollment{}, repo.trapNoRowsErr(err, "updating enrollment progress")
	}
	return repo.GetEnrollmentByID(ctx, updatedID)
}

func (repo enrollRepository) CountEnrollments(ctx context.Context) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM enrollments"); err != nil {
		return 0, errors.Wrap(err, "counting enrollments")
	}
	return count, nil
}

func (repo enrollRepository) CreatePaymentTransaction(ctx context.Context, txn enroll.PaymentTransaction) (enroll.PaymentTransaction, error) {
	query := `
		INSERT INTO payment_transactions (student_id, course_id, amount, payment_method, status, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id string
	err := repo.db.GetContext(ctx, &id, query,
		txn.StudentID, txn.CourseID, txn.Amount, txn.Method, txn.Status, txn.Reference, txn.CreatedAt.UTC(),
	)
	if err != nil {
		return enroll.PaymentTransaction{}, errors.Wrap(err, "inserting payment transaction")
	}
	txn.ID = id
	return txn, nil
}

func (repo enrollRepository) HasCompletedPayment(ctx context.Context, studentID, courseID string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM payment_transactions WHERE student_id = $1 AND course_id = $2 AND status = $3)"
	if err := repo.db.GetContext(ctx, &exists, query, studentID, courseID, enroll.PaymentCompleted); err != nil {
		return false, errors.Wrap(err, "checking completed payment")
	}
	return exists, nil
}
