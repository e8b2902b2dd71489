package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mwalimux/elimisha/core"
	"github.com/mwalimux/elimisha/core/policy"
	"github.com/mwalimux/elimisha/core/sponsor"
	"github.com/mwalimux/elimisha/core/user"
)

type sponsorApi struct {
	svc      sponsor.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerSponsorAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := sponsorApi{
		svc:      deps.SponsorSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/sponsor/accounts", jwt)
	sg.POST("", api.createAccount)
	sg.GET("", api.queryAccounts)

	dg := sg.Group("/:id")
	dg.GET("", api.retrieveAccount)
	dg.POST("/add-funds", api.addFunds)
	dg.POST("/deduct-funds", api.deductFunds)
	dg.GET("/transactions", api.listTransactions)
	dg.POST("/sponsorships", api.createSponsorship)
	dg.GET("/sponsorships", api.querySponsorships)
	dg.GET("/dashboard", api.dashboard)
}

// getAccountForAction loads the account and checks the caller against
// the policy for the given action.
func (api *sponsorApi) getAccountForAction(ctx echo.Context, action policy.Action) (sponsor.Account, error) {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return sponsor.Account{}, errors.Wrap(err, "getting context user")
	}
	acct, err := api.svc.GetAccount(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return sponsor.Account{}, err
	}
	if !policy.Allow(ctxUsr, action, policy.Resource{OwnerID: acct.SponsorID}) {
		return sponsor.Account{}, errHttpForbidden
	}
	return acct, nil
}

func (api *sponsorApi) createAccount(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data CreateAccountRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateAccountRequest")
	}

	// sponsors open their own account; admins may open one for any sponsor
	sponsorID := ctxUsr.ID
	if data.SponsorID != "" && ctxUsr.IsAdmin() {
		sponsorID = core.CleanString(data.SponsorID)
	}
	if !policy.Allow(ctxUsr, policy.ActionCreateAccount, policy.Resource{OwnerID: sponsorID}) {
		return errHttpForbidden
	}

	acct, err := api.svc.CreateAccount(ctx.Request().Context(), sponsorID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, acct)
}

func (api *sponsorApi) queryAccounts(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if ctxUsr.IsAdmin() {
		accts, err := api.svc.QueryAllAccounts(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "querying sponsor accounts")
		}
		return ctx.JSON(http.StatusOK, accts)
	}

	acct, err := api.svc.GetAccountBySponsor(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, []sponsor.Account{acct})
}

func (api *sponsorApi) retrieveAccount(ctx echo.Context) error {
	acct, err := api.getAccountForAction(ctx, policy.ActionViewLedger)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *sponsorApi) addFunds(ctx echo.Context) error {
	acct, err := api.getAccountForAction(ctx, policy.ActionAddFunds)
	if err != nil {
		return err
	}

	var data AmountRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AmountRequest")
	}
	amount, err := data.Validate(api.validate)
	if err != nil {
		return err
	}

	acct, err = api.svc.AddFunds(ctx.Request().Context(), acct.ID, amount, data.Note)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *sponsorApi) deductFunds(ctx echo.Context) error {
	acct, err := api.getAccountForAction(ctx, policy.ActionDeductFunds)
	if err != nil {
		return err
	}

	var data AmountRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AmountRequest")
	}
	amount, err := data.Validate(api.validate)
	if err != nil {
		return err
	}

	acct, err = api.svc.DeductFunds(ctx.Request().Context(), acct.ID, amount, data.Note)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *sponsorApi) listTransactions(ctx echo.Context) error {
	acct, err := api.getAccountForAction(ctx, policy.ActionViewLedger)
	if err != nil {
		return err
	}

	entries, err := api.svc.ListTransactions(ctx.Request().Context(), acct.ID)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []sponsor.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *sponsorApi) createSponsorship(ctx echo.Context) error {
	acct, err := api.getAccountForAction(ctx, policy.ActionSponsorStudent)
	if err != nil {
		return err
	}

	var data sponsor.NewSponsorship
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSponsorship")
	}
	amount, err := data.Validate(api.validate)
	if err != nil {
		return err
	}

	// the sponsored student must exist
	if _, err := api.usrSvc.GetByID(ctx.Request().Context(), data.StudentID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student not found"})
		}
		return errors.Wrap(err, "finding student by ID")
	}

	sp, err := api.svc.CreateSponsorship(ctx.Request().Context(), acct.ID, data.StudentID, data.CourseID, amount)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sp)
}

func (api *sponsorApi) querySponsorships(ctx echo.Context) error {
	acct, err := api.getAccountForAction(ctx, policy.ActionViewLedger)
	if err != nil {
		return err
	}

	filter := new(sponsor.SponsorshipFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []sponsor.Sponsorship{})
	}

	sps, err := api.svc.QuerySponsorships(ctx.Request().Context(), acct.ID, *filter)
	if err != nil {
		return errors.Wrap(err, "querying sponsorships")
	}
	if sps == nil {
		sps = []sponsor.Sponsorship{}
	}
	return ctx.JSON(http.StatusOK, sps)
}

func (api *sponsorApi) dashboard(ctx echo.Context) error {
	acct, err := api.getAccountForAction(ctx, policy.ActionViewDashboard)
	if err != nil {
		return err
	}

	dash, err := api.svc.Dashboard(ctx.Request().Context(), acct.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dash)
}

type (
	CreateAccountRequest struct {
		SponsorID string `json:"sponsor_id"`
	}

	// AmountRequest carries a monetary amount as a string; floats are
	// never accepted on the wire.
	AmountRequest struct {
		Amount string `json:"amount" validate:"required"`
		Note   string `json:"note"`
	}
)

func (ar *AmountRequest) Validate(validate *validator.Validate) (decimal.Decimal, error) {
	ar.Note = core.CleanString(ar.Note)
	if err := validate.Struct(ar); err != nil {
		return decimal.Decimal{}, err
	}
	return sponsor.ParseAmount(ar.Amount)
}
