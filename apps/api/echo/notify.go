package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimux/elimisha/core/notify"
	"github.com/mwalimux/elimisha/core/user"
)

type notifyApi struct {
	svc    notify.ServiceInterface
	usrSvc user.ServiceInterface
}

func registerNotifyAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := notifyApi{
		svc:    deps.NotifySvc,
		usrSvc: deps.UserSvc,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.PUT("/:id/read", api.markRead)
}

func (api *notifyApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notifs, err := api.svc.QueryForUser(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notify.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notifyApi) markRead(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// callers can only touch their own notifications
	id := ctx.Param("id")
	notifs, err := api.svc.QueryForUser(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	var owned bool
	for _, n := range notifs {
		if n.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		return errHttpNotFound
	}

	notif, err := api.svc.MarkRead(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, notif)
}
