package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-lms/core/dashboard"
	"github.com/trezcool/masomo-lms/core/user"
)

type dashboardApi struct {
	usrSvc *user.Service
	svc    *dashboard.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := dashboardApi{usrSvc: opts.UserSvc, svc: opts.DashboardSvc}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/admin", api.admin, adminMiddleware())
	dg.GET("/teacher", api.teacher, teacherMiddleware())
	dg.GET("/student", api.student, studentMiddleware())
}

func (api *dashboardApi) admin(ctx echo.Context) error {
	topN, err := queryInt(ctx, "top", dashboard.DefaultTopN)
	if err != nil {
		return err
	}
	data, err := api.svc.Admin(ctx.Request().Context(), topN)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *dashboardApi) teacher(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	data, err := api.svc.Teacher(ctx.Request().Context(), usr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *dashboardApi) student(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	data, err := api.svc.Student(ctx.Request().Context(), usr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, data)
}
