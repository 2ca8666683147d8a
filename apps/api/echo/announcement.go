package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/announcement"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/user"
)

const (
	defaultAnnouncementsLimit = 50
	errUnknownCourse          = "unknown course"
)

type announcementApi struct {
	usrSvc   *user.Service
	crsSvc   *course.Service
	svc      *announcement.Service
	validate *validator.Validate
}

func registerAnnouncementAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := announcementApi{
		usrSvc:   opts.UserSvc,
		crsSvc:   opts.CourseSvc,
		svc:      opts.AnnouncementSvc,
		validate: opts.Validate,
	}

	ag := g.Group("/announcements", jwt)
	ag.GET("", api.query)
	ag.POST("", api.create, teacherOrAdminMiddleware())
	ag.DELETE("/:id", api.destroy)
}

// Handlers

// query lists the announcements visible to the current user:
// admins see them all, teachers the school-wide ones and those of their courses,
// students the school-wide ones and those of the courses they are enrolled in.
func (api *announcementApi) query(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	limit, err := queryInt(ctx, limitParam, defaultAnnouncementsLimit)
	if err != nil {
		return err
	}
	courseID := ctx.QueryParam("course_id")

	var anns []announcement.Announcement
	switch {
	case usr.IsAdmin():
		var filter *announcement.QueryFilter
		if courseID != "" {
			filter = &announcement.QueryFilter{CourseIDs: []string{courseID}}
		}
		anns, err = api.svc.Query(reqCtx, filter, limit)
	case usr.IsTeacher():
		courses, cErr := api.crsSvc.Query(reqCtx, &course.QueryFilter{TeacherID: usr.ID}, nil)
		if cErr != nil {
			return cErr
		}
		filter := &announcement.QueryFilter{CourseIDs: []string{}, SchoolWide: courseID == ""}
		for _, crs := range courses {
			if courseID == "" || courseID == crs.ID {
				filter.CourseIDs = append(filter.CourseIDs, crs.ID)
			}
		}
		anns, err = api.svc.Query(reqCtx, filter, limit)
	case usr.IsStudent():
		anns, err = api.svc.QueryForStudent(reqCtx, usr.ID, courseID, limit)
	default:
		anns, err = api.svc.Query(reqCtx, &announcement.QueryFilter{CourseIDs: []string{}, SchoolWide: courseID == ""}, limit)
	}
	if err != nil {
		return err
	}
	if anns == nil {
		anns = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

// create lets admins post anywhere, and teachers post to their own courses only.
func (api *announcementApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data announcement.NewAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if data.CourseID != "" {
		crs, err := api.crsSvc.GetByID(ctx.Request().Context(), data.CourseID)
		if err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				return core.NewFieldError("course_id", errUnknownCourse)
			}
			return errors.Wrap(err, "finding course")
		}
		if !(usr.IsAdmin() || crs.IsOwnedBy(usr.ID)) {
			return errHttpForbidden
		}
	} else if !usr.IsAdmin() {
		return errHttpForbidden
	}

	ann, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *announcementApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	ann, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if !(usr.IsAdmin() || ann.AuthorID == usr.ID) {
		return errHttpForbidden
	}
	if err = api.svc.Delete(ctx.Request().Context(), ann); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
