package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core/enroll"
	"github.com/mwalimux/elimisha/core/policy"
	"github.com/mwalimux/elimisha/core/sponsor"
	"github.com/mwalimux/elimisha/core/user"
)

type enrollApi struct {
	svc        enroll.ServiceInterface
	usrSvc     user.ServiceInterface
	sponsorSvc sponsor.ServiceInterface
	validate   *validator.Validate
}

func registerEnrollAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := enrollApi{
		svc:        deps.EnrollSvc,
		usrSvc:     deps.UserSvc,
		sponsorSvc: deps.SponsorSvc,
		validate:   deps.Validate,
	}

	eg := g.Group("/enrollments", jwt)
	eg.POST("", api.create)
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id/progress", api.updateProgress)
	eg.POST("/simulate-payment", api.simulatePayment)
}

func (api *enrollApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !policy.Allow(ctxUsr, policy.ActionEnroll, policy.Resource{}) {
		return errHttpForbidden
	}

	var data enroll.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// the enrolled student is always the authenticated caller
	enr, err := api.svc.Enroll(ctx.Request().Context(), ctxUsr.ID, data.CourseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

// query scopes the listing to the caller: students see their own
// enrollments, instructors those of their courses, sponsors those of
// their sponsored students, admins everything.
func (api *enrollApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !policy.Allow(ctxUsr, policy.ActionViewEnrollments, policy.Resource{}) {
		return errHttpForbidden
	}

	filter := new(enroll.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []enroll.Enrollment{})
	}
	filter.Clean()

	switch {
	case ctxUsr.IsAdmin():
		// no extra scoping
	case ctxUsr.IsInstructor():
		filter.InstructorID = ctxUsr.ID
	case ctxUsr.IsSponsor():
		if err := api.checkSponsoredStudent(ctx, ctxUsr, filter.StudentID); err != nil {
			return err
		}
	default:
		filter.StudentID = ctxUsr.ID
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, "enrolled_at", "progress")

	enrs, err := api.svc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []enroll.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

// checkSponsoredStudent requires the sponsor to name a student they
// actively sponsor.
func (api *enrollApi) checkSponsoredStudent(ctx echo.Context, ctxUsr user.User, studentID string) error {
	if studentID == "" {
		return errHttpForbidden
	}
	acct, err := api.sponsorSvc.GetAccountBySponsor(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return err
	}
	sps, err := api.sponsorSvc.QuerySponsorships(ctx.Request().Context(), acct.ID, sponsor.SponsorshipFilter{StudentID: studentID})
	if err != nil {
		return errors.Wrap(err, "querying sponsorships")
	}
	if len(sps) == 0 {
		return errHttpForbidden
	}
	return nil
}

func (api *enrollApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !(ctxUsr.IsAdmin() || ctxUsr.IsInstructor() || enr.StudentID == ctxUsr.ID) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollApi) updateProgress(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !policy.Allow(ctxUsr, policy.ActionUpdateProgress, policy.Resource{OwnerID: enr.StudentID}) {
		return errHttpForbidden
	}

	var data ProgressRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressRequest")
	}

	enr, err = api.svc.UpdateProgress(ctx.Request().Context(), enr.ID, data.Progress)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollApi) simulatePayment(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !policy.Allow(ctxUsr, policy.ActionEnroll, policy.Resource{}) {
		return errHttpForbidden
	}

	var data enroll.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.SimulatePayment(ctx.Request().Context(), ctxUsr.ID, data.CourseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

type ProgressRequest struct {
	Progress decimal.Decimal `json:"progress"`
}
