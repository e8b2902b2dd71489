package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mwalimux/elimisha/core/course"
	"github.com/mwalimux/elimisha/core/enroll"
	"github.com/mwalimux/elimisha/core/notify"
	"github.com/mwalimux/elimisha/core/sponsor"
	"github.com/mwalimux/elimisha/core/user"
	dummydb "github.com/mwalimux/elimisha/storage/database/dummy"
)

func TestEnrollmentFlow(t *testing.T) {
	app, db := setup(t)
	ctx := context.Background()

	instructor := createUser(t, "Instructor", "teachGuy", "teach@test.cd", "LolC@t123", user.InstructorRoles, true)
	student := createUser(t, "Student", "studentA", "student@test.cd", "LolC@t123", user.StudentRoles, true)
	spnsr := createUser(t, "Sponsor", "sponsorA", "sponsor@test.cd", "LolC@t123", user.SponsorRoles, true)

	courseRepo := dummydb.NewCourseRepository(db)
	free, err := courseRepo.CreateCourse(ctx, course.Course{
		Name: "Go 101", Difficulty: "beginner", InstructorID: instructor.ID,
	})
	assert.NoError(t, err)
	paid, err := courseRepo.CreateCourse(ctx, course.Course{
		Name: "Distributed Systems", Difficulty: "advanced", InstructorID: instructor.ID,
		IsPaid: true, Price: decimal.RequireFromString("49.99"),
	})
	assert.NoError(t, err)

	var enr enroll.Enrollment

	t.Run("free course enrolls directly", func(t *testing.T) {
		body := []byte(`{"course": "` + free.ID + `"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", getToken(t, student), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
		assert.Equal(t, student.ID, enr.StudentID)
		assert.True(t, enr.Progress.IsZero())
	})

	t.Run("duplicate enrollment is rejected", func(t *testing.T) {
		body := []byte(`{"course": "` + free.ID + `"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", getToken(t, student), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: enroll.ErrAlreadyEnrolled.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("paid course requires payment or sponsorship", func(t *testing.T) {
		body := []byte(`{"course": "` + paid.ID + `"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", getToken(t, student), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: enroll.ErrPaymentRequired.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("sponsorship unlocks the paid course", func(t *testing.T) {
		// the sponsor funds the student for this course
		spRepo := dummydb.NewSponsorRepository(db)
		svc := sponsor.NewService(spRepo)
		acct, err := svc.CreateAccount(ctx, spnsr.ID)
		assert.NoError(t, err)
		_, err = svc.AddFunds(ctx, acct.ID, decimal.RequireFromString("100"), "")
		assert.NoError(t, err)
		_, err = svc.CreateSponsorship(ctx, acct.ID, student.ID, paid.ID, decimal.RequireFromString("49.99"))
		assert.NoError(t, err)

		body := []byte(`{"course": "` + paid.ID + `"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", getToken(t, student), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("progress update notifies the instructor", func(t *testing.T) {
		body := []byte(`{"progress": 75}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/enrollments/"+enr.ID+"/progress", getToken(t, student), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated enroll.Enrollment
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "75", updated.Progress.String())

		req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", getToken(t, instructor))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var notifs []notify.Notification
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifs))
		assert.NotEmpty(t, notifs)
		assert.False(t, notifs[0].IsRead)
	})

	t.Run("progress is capped at 100", func(t *testing.T) {
		body := []byte(`{"progress": 101}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/enrollments/"+enr.ID+"/progress", getToken(t, student), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("students cannot update someone else's progress", func(t *testing.T) {
		other := createUser(t, "Other", "otherGuy", "otherguy@test.cd", "LolC@t123", user.StudentRoles, true)
		body := []byte(`{"progress": 10}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/enrollments/"+enr.ID+"/progress", getToken(t, other), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("instructor sees only their course enrollments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments", getToken(t, instructor))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var enrs []enroll.Enrollment
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enrs))
		assert.Len(t, enrs, 2)
		for _, e := range enrs {
			assert.NotEmpty(t, e.CourseName)
		}
	})

	t.Run("sponsor needs a sponsored student to list enrollments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments", getToken(t, spnsr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/enrollments?student="+student.ID, getToken(t, spnsr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var enrs []enroll.Enrollment
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enrs))
		assert.Len(t, enrs, 2)
	})
}

func TestSimulatePayment(t *testing.T) {
	app, db := setup(t)
	ctx := context.Background()

	student := createUser(t, "Student", "studentA", "student@test.cd", "LolC@t123", user.StudentRoles, true)

	paid, err := dummydb.NewCourseRepository(db).CreateCourse(ctx, course.Course{
		Name: "Distributed Systems", Difficulty: "advanced",
		IsPaid: true, Price: decimal.RequireFromString("49.99"),
	})
	assert.NoError(t, err)

	body := []byte(`{"course": "` + paid.ID + `"}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/simulate-payment", getToken(t, student), body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var enr enroll.Enrollment
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
	assert.Equal(t, paid.ID, enr.CourseID)
}
