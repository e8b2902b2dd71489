package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core/assess"
)

type assessRepository struct {
	db      *assessTable
	courses *courseTable
}

var _ assess.Repository = (*assessRepository)(nil) // interface compliance check

func NewAssessRepository(db *DB) *assessRepository {
	return &assessRepository{db: db.assess, courses: db.course}
}

func (repo *assessRepository) queryAssessments() []assess.Assessment {
	assessments := make([]assess.Assessment, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		assessments = append(assessments, *a)
	}
	sort.Slice(assessments, func(i, j int) bool { return assessments[i].DueDate.Before(assessments[j].DueDate) })
	return assessments
}

func (repo *assessRepository) querySubmissions() []assess.Submission {
	subs := make([]assess.Submission, 0, len(repo.db.submissions))
	for _, s := range repo.db.submissions {
		subs = append(subs, *s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs
}

func (repo *assessRepository) CreateAssessment(ctx context.Context, a assess.Assessment) (assess.Assessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *assessRepository) GetAssessmentByID(ctx context.Context, id string) (assess.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return assess.Assessment{}, assess.ErrNotFound
}

func (repo *assessRepository) QueryAssessmentsByCourse(ctx context.Context, courseIDs ...string) ([]assess.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = true
	}

	assessments := make([]assess.Assessment, 0)
	for _, a := range repo.queryAssessments() {
		if wanted[a.CourseID] {
			assessments = append(assessments, a)
		}
	}
	return assessments, nil
}

func (repo *assessRepository) QueryAllAssessments(ctx context.Context) ([]assess.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryAssessments(), nil
}

func (repo *assessRepository) QueryAssessmentsDueBefore(ctx context.Context, deadline time.Time) ([]assess.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	now := time.Now().UTC()
	assessments := make([]assess.Assessment, 0)
	for _, a := range repo.queryAssessments() {
		if a.DueDate.After(now) && a.DueDate.Before(deadline) {
			assessments = append(assessments, a)
		}
	}
	return assessments, nil
}

func (repo *assessRepository) CreateSubmission(ctx context.Context, s assess.Submission) (assess.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = uuid.New().String()
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *assessRepository) GetSubmissionByID(ctx context.Context, id string) (assess.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return *s, nil
	}
	return assess.Submission{}, assess.ErrSubmissionNotFound
}

func (repo *assessRepository) QuerySubmissionsByStudent(ctx context.Context, studentID string) ([]assess.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]assess.Submission, 0)
	for _, s := range repo.querySubmissions() {
		if s.StudentID == studentID {
			subs = append(subs, s)
		}
	}
	return subs, nil
}

func (repo *assessRepository) QuerySubmissionsByCourseInstructor(ctx context.Context, instructorID string) ([]assess.Submission, error) {
	instructorCourses := make(map[string]bool)
	repo.courses.RLock()
	for id, crs := range repo.courses.table {
		if crs.InstructorID == instructorID {
			instructorCourses[id] = true
		}
	}
	repo.courses.RUnlock()

	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]assess.Submission, 0)
	for _, s := range repo.querySubmissions() {
		if a, ok := repo.db.table[s.AssessmentID]; ok && instructorCourses[a.CourseID] {
			subs = append(subs, s)
		}
	}
	return subs, nil
}

func (repo *assessRepository) QueryAllSubmissions(ctx context.Context) ([]assess.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.querySubmissions(), nil
}

func (repo *assessRepository) SetSubmissionGrade(ctx context.Context, id string, grade decimal.Decimal) (assess.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.submissions[id]
	if !ok {
		return assess.Submission{}, assess.ErrSubmissionNotFound
	}
	s.Grade = &grade
	return *s, nil
}
