package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core/course"
	"github.com/mwalimux/elimisha/core/enroll"
	"github.com/mwalimux/elimisha/core/sponsor"
	"github.com/mwalimux/elimisha/core/user"
)

type analyticsApi struct {
	usrSvc     user.ServiceInterface
	courseSvc  course.ServiceInterface
	enrollSvc  enroll.ServiceInterface
	sponsorSvc sponsor.ServiceInterface
}

func registerAnalyticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := analyticsApi{
		usrSvc:     deps.UserSvc,
		courseSvc:  deps.CourseSvc,
		enrollSvc:  deps.EnrollSvc,
		sponsorSvc: deps.SponsorSvc,
	}

	g.GET("/analytics", api.retrieve, jwt, adminMiddleware())
}

type AnalyticsResponse struct {
	Users                int             `json:"users"`
	Courses              int             `json:"courses"`
	Enrollments          int             `json:"enrollments"`
	SponsorAccounts      int             `json:"sponsor_accounts"`
	TotalSponsoredAmount decimal.Decimal `json:"total_sponsored_amount"`
}

func (api *analyticsApi) retrieve(ctx echo.Context) error {
	c := ctx.Request().Context()
	var (
		resp AnalyticsResponse
		err  error
	)
	if resp.Users, err = api.usrSvc.Count(c); err != nil {
		return errors.Wrap(err, "counting users")
	}
	if resp.Courses, err = api.courseSvc.Count(c); err != nil {
		return errors.Wrap(err, "counting courses")
	}
	if resp.Enrollments, err = api.enrollSvc.Count(c); err != nil {
		return errors.Wrap(err, "counting enrollments")
	}
	if resp.SponsorAccounts, err = api.sponsorSvc.CountAccounts(c); err != nil {
		return errors.Wrap(err, "counting sponsor accounts")
	}
	if resp.TotalSponsoredAmount, err = api.sponsorSvc.TotalSponsoredAmount(c); err != nil {
		return errors.Wrap(err, "summing sponsorships")
	}
	return ctx.JSON(http.StatusOK, resp)
}
