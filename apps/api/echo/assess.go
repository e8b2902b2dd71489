package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core/assess"
	"github.com/mwalimux/elimisha/core/course"
	"github.com/mwalimux/elimisha/core/enroll"
	"github.com/mwalimux/elimisha/core/policy"
	"github.com/mwalimux/elimisha/core/user"
)

type assessApi struct {
	svc       assess.ServiceInterface
	courseSvc course.ServiceInterface
	enrollSvc enroll.ServiceInterface
	usrSvc    user.ServiceInterface
	validate  *validator.Validate
}

func registerAssessAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assessApi{
		svc:       deps.AssessSvc,
		courseSvc: deps.CourseSvc,
		enrollSvc: deps.EnrollSvc,
		usrSvc:    deps.UserSvc,
		validate:  deps.Validate,
	}

	ag := g.Group("/assessments", jwt)
	ag.POST("", api.create)
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)

	sg := g.Group("/submissions", jwt)
	sg.POST("", api.submit)
	sg.GET("", api.querySubmissions)
	sg.GET("/:id", api.retrieveSubmission)
	sg.PUT("/:id/grade", api.grade)
}

func (api *assessApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data assess.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), data.CourseID)
	if err != nil {
		return err
	}
	if !policy.Allow(ctxUsr, policy.ActionCreateAssessment, policy.Resource{InstructorID: crs.InstructorID}) {
		return errHttpForbidden
	}

	a, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

// query scopes assessments to the caller: students see those of courses
// they are enrolled in, instructors those of their own courses, admins
// everything. An explicit ?course=<id> narrows further.
func (api *assessApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if courseID := ctx.QueryParam("course"); courseID != "" {
		assessments, err := api.svc.QueryByCourse(ctx.Request().Context(), courseID)
		if err != nil {
			return errors.Wrap(err, "querying assessments by course")
		}
		return ctx.JSON(http.StatusOK, assessments)
	}

	var assessments []assess.Assessment
	switch {
	case ctxUsr.IsAdmin():
		assessments, err = api.svc.QueryAll(ctx.Request().Context())
	case ctxUsr.IsInstructor():
		courseIDs, cErr := api.instructorCourseIDs(ctx, ctxUsr)
		if cErr != nil {
			return cErr
		}
		assessments, err = api.svc.QueryByCourse(ctx.Request().Context(), courseIDs...)
	default:
		courseIDs, cErr := api.enrolledCourseIDs(ctx, ctxUsr)
		if cErr != nil {
			return cErr
		}
		assessments, err = api.svc.QueryByCourse(ctx.Request().Context(), courseIDs...)
	}
	if err != nil {
		return errors.Wrap(err, "querying assessments")
	}
	if assessments == nil {
		assessments = []assess.Assessment{}
	}
	return ctx.JSON(http.StatusOK, assessments)
}

func (api *assessApi) instructorCourseIDs(ctx echo.Context, ctxUsr user.User) ([]string, error) {
	courses, err := api.courseSvc.QueryForUser(ctx.Request().Context(), ctxUsr, course.QueryFilter{InstructorID: ctxUsr.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying instructor courses")
	}
	ids := make([]string, 0, len(courses))
	for _, crs := range courses {
		ids = append(ids, crs.ID)
	}
	return ids, nil
}

func (api *assessApi) enrolledCourseIDs(ctx echo.Context, ctxUsr user.User) ([]string, error) {
	enrs, err := api.enrollSvc.Filter(ctx.Request().Context(), enroll.QueryFilter{StudentID: ctxUsr.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	ids := make([]string, 0, len(enrs))
	for _, enr := range enrs {
		ids = append(ids, enr.CourseID)
	}
	return ids, nil
}

func (api *assessApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessApi) submit(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !policy.Allow(ctxUsr, policy.ActionSubmitWork, policy.Resource{}) {
		return errHttpForbidden
	}

	var data assess.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// the submitting student is always the authenticated caller
	sub, err := api.svc.Submit(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assessApi) querySubmissions(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var subs []assess.Submission
	switch {
	case ctxUsr.IsAdmin():
		subs, err = api.svc.QueryAllSubmissions(ctx.Request().Context())
	case ctxUsr.IsInstructor():
		subs, err = api.svc.QuerySubmissionsByInstructor(ctx.Request().Context(), ctxUsr.ID)
	default:
		subs, err = api.svc.QuerySubmissionsByStudent(ctx.Request().Context(), ctxUsr.ID)
	}
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []assess.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assessApi) retrieveSubmission(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !(ctxUsr.IsAdmin() || ctxUsr.IsInstructor() || sub.StudentID == ctxUsr.ID) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *assessApi) grade(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	a, err := api.svc.GetByID(ctx.Request().Context(), sub.AssessmentID)
	if err != nil {
		return err
	}
	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), a.CourseID)
	if err != nil {
		return err
	}
	if !policy.Allow(ctxUsr, policy.ActionGradeSubmission, policy.Resource{InstructorID: crs.InstructorID}) {
		return errHttpForbidden
	}

	var data GradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}

	sub, err = api.svc.Grade(ctx.Request().Context(), sub.ID, data.Grade)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

type GradeRequest struct {
	Grade decimal.Decimal `json:"grade"`
}
