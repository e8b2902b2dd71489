package pgrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core/assess"
)

type assessRepository struct {
	db *sqlx.DB
}

var _ assess.Repository = (*assessRepository)(nil) // interface compliance check

func NewAssessRepository(db *sqlx.DB) *assessRepository {
	return &assessRepository{db: db}
}

type assessmentRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     time.Time `db:"due_date"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row assessmentRow) toAssessment() assess.Assessment {
	return assess.Assessment{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Title:       row.Title,
		Description: row.Description,
		DueDate:     row.DueDate,
		CreatedAt:   row.CreatedAt,
	}
}

func toAssessments(rows []assessmentRow) []assess.Assessment {
	assessments := make([]assess.Assessment, 0, len(rows))
	for _, row := range rows {
		assessments = append(assessments, row.toAssessment())
	}
	return assessments
}

type submissionRow struct {
	ID           string           `db:"id"`
	AssessmentID string           `db:"assessment_id"`
	StudentID    string           `db:"student_id"`
	Content      string           `db:"content"`
	Grade        *decimal.Decimal `db:"grade"`
	SubmittedAt  time.Time        `db:"submitted_at"`
}

func (row submissionRow) toSubmission() assess.Submission {
	return assess.Submission{
		ID:           row.ID,
		AssessmentID: row.AssessmentID,
		StudentID:    row.StudentID,
		Content:      row.Content,
		Grade:        row.Grade,
		SubmittedAt:  row.SubmittedAt,
	}
}

func toSubmissions(rows []submissionRow) []assess.Submission {
	subs := make([]assess.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toSubmission())
	}
	return subs
}

const assessmentColumns = "id, course_id, title, description, due_date, created_at"
const submissionColumns = "id, assessment_id, student_id, content, grade, submitted_at"

func (repo assessRepository) CreateAssessment(ctx context.Context, a assess.Assessment) (assess.Assessment, error) {
	query := `
		INSERT INTO assessments (course_id, title, description, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + assessmentColumns
	var row assessmentRow
	err := repo.db.GetContext(ctx, &row, query, a.CourseID, a.Title, a.Description, a.DueDate.UTC(), a.CreatedAt.UTC())
	if err != nil {
		return assess.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	return row.toAssessment(), nil
}

func (repo assessRepository) GetAssessmentByID(ctx context.Context, id string) (assess.Assessment, error) {
	var row assessmentRow
	query := fmt.Sprintf("SELECT %s FROM assessments WHERE id = $1", assessmentColumns)
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return assess.Assessment{}, assess.ErrNotFound
		}
		return assess.Assessment{}, errors.Wrap(err, "getting assessment by id")
	}
	return row.toAssessment(), nil
}

func (repo assessRepository) QueryAssessmentsByCourse(ctx context.Context, courseIDs ...string) ([]assess.Assessment, error) {
	if len(courseIDs) == 0 {
		return []assess.Assessment{}, nil
	}
	var rows []assessmentRow
	query := fmt.Sprintf("SELECT %s FROM assessments WHERE course_id = ANY($1) ORDER BY due_date", assessmentColumns)
	if err := repo.db.SelectContext(ctx, &rows, query, pq.Array(courseIDs)); err != nil {
		return nil, errors.Wrap(err, "querying assessments by course")
	}
	return toAssessments(rows), nil
}

func (repo assessRepository) QueryAllAssessments(ctx context.Context) ([]assess.Assessment, error) {
	var rows []assessmentRow
	query := fmt.Sprintf("SELECT %s FROM assessments ORDER BY due_date", assessmentColumns)
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	return toAssessments(rows), nil
}

func (repo assessRepository) QueryAssessmentsDueBefore(ctx context.Context, deadline time.Time) ([]assess.Assessment, error) {
	var rows []assessmentRow
	query := fmt.Sprintf(
		"SELECT %s FROM assessments WHERE due_date > (now() AT TIME ZONE 'utc') AND due_date < $1 ORDER BY due_date",
		assessmentColumns,
	)
	if err := repo.db.SelectContext(ctx, &rows, query, deadline.UTC()); err != nil {
		return nil, errors.Wrap(err, "querying due assessments")
	}
	return toAssessments(rows), nil
}

func (repo assessRepository) CreateSubmission(ctx context.Context, s assess.Submission) (assess.Submission, error) {
	query := `
		INSERT INTO submissions (assessment_id, student_id, content, submitted_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + submissionColumns
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, query, s.AssessmentID, s.StudentID, s.Content, s.SubmittedAt.UTC())
	if err != nil {
		return assess.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return row.toSubmission(), nil
}

func (repo assessRepository) GetSubmissionByID(ctx context.Context, id string) (assess.Submission, error) {
	var row submissionRow
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE id = $1", submissionColumns)
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return assess.Submission{}, assess.ErrSubmissionNotFound
		}
		return assess.Submission{}, errors.Wrap(err, "getting submission by id")
	}
	return row.toSubmission(), nil
}

func (repo assessRepository) QuerySubmissionsByStudent(ctx context.Context, studentID string) ([]assess.Submission, error) {
	var rows []submissionRow
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE student_id = $1 ORDER BY submitted_at", submissionColumns)
	if err := repo.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, errors.Wrap(err, "querying submissions by student")
	}
	return toSubmissions(rows), nil
}

func (repo assessRepository) QuerySubmissionsByCourseInstructor(ctx context.Context, instructorID string) ([]assess.Submission, error) {
	var rows []submissionRow
	query := `
		SELECT s.id, s.assessment_id, s.student_id, s.content, s.grade, s.submitted_at
		FROM submissions s
		JOIN assessments a ON a.id = s.assessment_id
		JOIN courses c ON c.id = a.course_id
		WHERE c.instructor_id = $1
		ORDER BY s.submitted_at`
	if err := repo.db.SelectContext(ctx, &rows, query, instructorID); err != nil {
		return nil, errors.Wrap(err, "querying submissions by instructor")
	}
	return toSubmissions(rows), nil
}

func (repo assessRepository) QueryAllSubmissions(ctx context.Context) ([]assess.Submission, error) {
	var rows []submissionRow
	query := fmt.Sprintf("SELECT %s FROM submissions ORDER BY submitted_at", submissionColumns)
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return toSubmissions(rows), nil
}

func (repo assessRepository) SetSubmissionGrade(ctx context.Context, id string, grade decimal.Decimal) (assess.Submission, error) {
	query := fmt.Sprintf("UPDATE submissions SET grade = $1 WHERE id = $2 RETURNING %s", submissionColumns)
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, query, grade, id); err != nil {
		if err == sql.ErrNoRows {
			return assess.Submission{}, assess.ErrSubmissionNotFound
		}
		return assess.Submission{}, errors.Wrap(err, "grading submission")
	}
	return row.toSubmission(), nil
}
