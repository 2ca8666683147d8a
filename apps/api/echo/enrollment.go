package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/user"
)

type enrollmentApi struct {
	usrSvc   *user.Service
	crsSvc   *course.Service
	svc      *enrollment.Service
	ldr      *loader
	metrics  *metrics
	validate *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, ldr *loader, opts *Options, m *metrics) {
	api := enrollmentApi{
		usrSvc:   opts.UserSvc,
		crsSvc:   opts.CourseSvc,
		svc:      opts.EnrollmentSvc,
		ldr:      ldr,
		metrics:  m,
		validate: opts.Validate,
	}

	cg := g.Group("/courses")
	cg.POST("/:id/enrollment", api.enroll, jwt, studentMiddleware(), ldr.courseMiddleware)
	cg.DELETE("/:id/enrollment", api.drop, jwt, studentMiddleware(), ldr.courseMiddleware)
	cg.GET("/:id/students", api.students, jwt, ldr.courseMiddleware, managerMiddleware)

	eg := g.Group("/enrollments", jwt)
	eg.GET("", api.query)
	eg.PUT("/:id", api.updateStatus)
}

// Handlers

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), usr, crs)
	if err != nil {
		return err
	}
	api.metrics.enrollmentChanged(enr.Status)
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) drop(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	enr, err := api.svc.Drop(ctx.Request().Context(), usr.ID, crs.ID)
	if err != nil {
		return err
	}
	api.metrics.enrollmentChanged(enr.Status)
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) students(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}
	students, err := api.svc.Students(ctx.Request().Context(), crs.ID, api.usrSvc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

// query lists all the enrollments for admins, those of their courses for teachers
// and their own for students.
func (api *enrollmentApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	filter := &enrollment.QueryFilter{StudentID: ctx.QueryParam("student_id")}
	if status := ctx.QueryParam("status"); status != "" {
		filter.Statuses = []string{status}
	}
	if courseID := ctx.QueryParam("course_id"); courseID != "" {
		filter.CourseIDs = []string{courseID}
	}

	switch {
	case usr.IsAdmin():
	case usr.IsTeacher():
		courses, err := api.crsSvc.Query(ctx.Request().Context(), &course.QueryFilter{TeacherID: usr.ID}, nil)
		if err != nil {
			return err
		}
		owned := make([]string, 0, len(courses))
		for _, crs := range courses {
			if filter.CourseIDs == nil || filter.CourseIDs[0] == crs.ID {
				owned = append(owned, crs.ID)
			}
		}
		if len(owned) == 0 {
			return ctx.JSON(http.StatusOK, []enrollment.Enrollment{})
		}
		filter.CourseIDs = owned
	default:
		filter.StudentID = usr.ID
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, enrollment.OrderingFields...)

	enrs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return err
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) updateStatus(ctx echo.Context) error {
	enr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.ldr.loadCourse(ctx, enr.CourseID); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return enrollment.ErrNotFound
		}
		return err
	}
	if !isCourseManager(ctx) {
		return errHttpForbidden
	}

	var data enrollment.UpdateStatus
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	enr, err = api.svc.UpdateStatus(ctx.Request().Context(), enr, data.Status)
	if err != nil {
		return err
	}
	api.metrics.enrollmentChanged(enr.Status)
	return ctx.JSON(http.StatusOK, enr)
}
