package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/progress"
	"github.com/trezcool/masomo-lms/core/user"
)

const (
	errFileRequired = "a file is required"
	errNotAnImage   = "the file must be an image"
	errUnknownUser  = "unknown teacher"
)

type courseApi struct {
	usrSvc   *user.Service
	svc      *course.Service
	progSvc  *progress.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt, optionalJWT echo.MiddlewareFunc, ldr *loader, opts *Options) {
	api := courseApi{
		usrSvc:   opts.UserSvc,
		svc:      opts.CourseSvc,
		progSvc:  opts.ProgressSvc,
		validate: opts.Validate,
	}

	// route level middlewares: groups sharing the `/:id` prefix would override each other's routes
	public := []echo.MiddlewareFunc{optionalJWT, ldr.courseMiddleware}
	managers := []echo.MiddlewareFunc{jwt, ldr.courseMiddleware, managerMiddleware}
	students := []echo.MiddlewareFunc{jwt, studentMiddleware(), ldr.courseMiddleware}

	cg := g.Group("/courses")
	cg.GET("", api.query, optionalJWT)
	cg.POST("", api.create, jwt, teacherOrAdminMiddleware())

	cg.GET("/:id", api.retrieve, public...)
	cg.PUT("/:id", api.update, managers...)
	cg.DELETE("/:id", api.destroy, managers...)
	cg.PUT("/:id/cover", api.setCover, managers...)

	cg.GET("/:id/lessons", api.queryLessons, public...)
	cg.POST("/:id/lessons", api.createLesson, managers...)
	cg.GET("/:id/lessons/:lessonID", api.retrieveLesson, append(public, ldr.lessonMiddleware)...)
	cg.PUT("/:id/lessons/:lessonID", api.updateLesson, append(managers, ldr.lessonMiddleware)...)
	cg.DELETE("/:id/lessons/:lessonID", api.destroyLesson, append(managers, ldr.lessonMiddleware)...)

	cg.POST("/:id/lessons/:lessonID/complete", api.completeLesson, append(students, ldr.lessonMiddleware)...)
	cg.GET("/:id/progress", api.progress, append(students, ldr.enrolledOrManagerMiddleware)...)
}

// Handlers

// query lists the published courses; admins see every course and teachers also see their own.
func (api *courseApi) query(ctx echo.Context) error {
	isPublished, err := queryBool(ctx, "is_published")
	if err != nil {
		return err
	}
	filter := &course.QueryFilter{
		Search:      ctx.QueryParam("search"),
		TeacherID:   ctx.QueryParam("teacher_id"),
		IsPublished: isPublished,
	}
	filter.Clean()

	published := true
	if isAuthenticated(ctx) {
		usr, err := getContextUser(ctx, api.usrSvc)
		if err != nil {
			return err
		}
		if !(usr.IsAdmin() || (filter.TeacherID != "" && filter.TeacherID == usr.ID)) {
			filter.IsPublished = &published
		}
	} else {
		filter.IsPublished = &published
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, course.OrderingFields...)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return err
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if !ctxUsr.IsAdmin() {
		// teachers always teach the courses they create
		data.TeacherID = ""
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}
	if data.TeacherID != "" {
		if err = api.checkTeacher(ctx, data.TeacherID); err != nil {
			return err
		}
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) checkTeacher(ctx echo.Context, id string) error {
	teacher, err := api.usrSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewFieldError("teacher_id", errUnknownUser)
		}
		return errors.Wrap(err, "finding teacher")
	}
	if !teacher.IsTeacher() {
		return core.NewFieldError("teacher_id", errUnknownUser)
	}
	return nil
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if data.TeacherID != nil && !ctxUsr.IsAdmin() {
		return errHttpForbidden
	}
	if err = data.Validate(ctx.Request().Context(), crs, api.validate, api.svc); err != nil {
		return err
	}
	if data.TeacherID != nil && *data.TeacherID != "" {
		if err = api.checkTeacher(ctx, *data.TeacherID); err != nil {
			return err
		}
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), crs); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) setCover(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldError("file", errFileRequired)
	}
	if !strings.HasPrefix(file.Header.Get(echo.HeaderContentType), "image/") {
		return core.NewFieldError("file", errNotAnImage)
	}
	src, err := file.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer src.Close()

	crs, err = api.svc.SetCover(ctx.Request().Context(), crs, file.Filename, src)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

// Lessons

func (api *courseApi) queryLessons(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}
	lessons, err := api.svc.QueryLessons(ctx.Request().Context(), crs.ID, !isCourseManager(ctx))
	if err != nil {
		return err
	}
	if lessons == nil {
		lessons = []course.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *courseApi) createLesson(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}

	var data course.NewLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err := api.svc.CreateLesson(ctx.Request().Context(), crs, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *courseApi) retrieveLesson(ctx echo.Context) error {
	lsn, err := contextObject[course.Lesson](ctx, ctxLessonKey)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	lsn, err := contextObject[course.Lesson](ctx, ctxLessonKey)
	if err != nil {
		return err
	}

	var data course.UpdateLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err = api.svc.UpdateLesson(ctx.Request().Context(), lsn, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	lsn, err := contextObject[course.Lesson](ctx, ctxLessonKey)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteLesson(ctx.Request().Context(), lsn); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Progress

func (api *courseApi) completeLesson(ctx echo.Context) error {
	lsn, err := contextObject[course.Lesson](ctx, ctxLessonKey)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	lp, err := api.progSvc.CompleteLesson(ctx.Request().Context(), usr.ID, lsn)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lp)
}

func (api *courseApi) progress(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	cp, err := api.progSvc.CourseProgress(ctx.Request().Context(), usr.ID, crs.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cp)
}
