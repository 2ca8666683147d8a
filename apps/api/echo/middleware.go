package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/assignment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/user"
)

// context keys of the objects loaded by the middlewares below
const (
	ctxObjectKey     = "object"
	ctxCourseKey     = "course"
	ctxManagerKey    = "courseManager"
	ctxLessonKey     = "lesson"
	ctxQuizKey       = "quiz"
	ctxAssignmentKey = "assignment"
)

func contextObject[T any](ctx echo.Context, key string) (T, error) {
	obj, ok := ctx.Get(key).(T)
	if !ok {
		return obj, errors.Wrapf(errObjNotFoundInCtx, "retrieving %s from context", key)
	}
	return obj, nil
}

// isCourseManager reports whether the current user teaches the context course or is an admin.
func isCourseManager(ctx echo.Context) bool {
	manager, _ := ctx.Get(ctxManagerKey).(bool)
	return manager
}

func claimsMiddleware(allowed func(Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if allowed(claims) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func teacherMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.IsTeacher })
}

func teacherOrAdminMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.IsTeacher || c.IsAdmin })
}

func studentMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.IsStudent })
}

// loader loads the objects addressed by the request path into the echo.Context,
// hiding the unpublished ones from everyone but their course's managers.
type loader struct {
	usrSvc *user.Service
	crsSvc *course.Service
	enrSvc *enrollment.Service
	qzSvc  *quiz.Service
	asgSvc *assignment.Service
}

func (l *loader) setCourse(ctx echo.Context, crs course.Course) error {
	var manager bool
	if isAuthenticated(ctx) {
		usr, err := getContextUser(ctx, l.usrSvc)
		if err != nil {
			return err
		}
		manager = usr.IsAdmin() || crs.IsOwnedBy(usr.ID)
	}
	if !crs.IsPublished && !manager {
		return course.ErrNotFound
	}
	ctx.Set(ctxCourseKey, crs)
	ctx.Set(ctxManagerKey, manager)
	return nil
}

func (l *loader) loadCourse(ctx echo.Context, id string) error {
	crs, err := l.crsSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return l.setCourse(ctx, crs)
}

// courseMiddleware loads the course `:id`.
func (l *loader) courseMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := l.loadCourse(ctx, ctx.Param("id")); err != nil {
			return err
		}
		return next(ctx)
	}
}

// lessonMiddleware loads the lesson `:lessonID` of the context course.
func (l *loader) lessonMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		crs, err := contextObject[course.Course](ctx, ctxCourseKey)
		if err != nil {
			return err
		}
		lsn, err := l.crsSvc.GetLesson(ctx.Request().Context(), crs.ID, ctx.Param("lessonID"))
		if err != nil {
			return err
		}
		if !lsn.IsPublished && !isCourseManager(ctx) {
			return course.ErrLessonNotFound
		}
		ctx.Set(ctxLessonKey, lsn)
		return next(ctx)
	}
}

// quizMiddleware loads the quiz `:id` and its course.
func (l *loader) quizMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		qz, err := l.qzSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		if err = l.loadCourse(ctx, qz.CourseID); err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				return quiz.ErrNotFound
			}
			return err
		}
		if !qz.IsPublished && !isCourseManager(ctx) {
			return quiz.ErrNotFound
		}
		ctx.Set(ctxQuizKey, qz)
		return next(ctx)
	}
}

// assignmentMiddleware loads the assignment `:id` and its course.
func (l *loader) assignmentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		asg, err := l.asgSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		if err = l.loadCourse(ctx, asg.CourseID); err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				return assignment.ErrNotFound
			}
			return err
		}
		ctx.Set(ctxAssignmentKey, asg)
		return next(ctx)
	}
}

// managerMiddleware restricts access to the context course's teacher and admins.
func managerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !isCourseManager(ctx) {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

// enrolledOrManagerMiddleware restricts access to the context course's managers and enrolled students.
func (l *loader) enrolledOrManagerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if isCourseManager(ctx) {
			return next(ctx)
		}
		crs, err := contextObject[course.Course](ctx, ctxCourseKey)
		if err != nil {
			return err
		}
		usr, err := getContextUser(ctx, l.usrSvc)
		if err != nil {
			return err
		}
		enrolled, err := l.enrSvc.IsEnrolled(ctx.Request().Context(), crs.ID, usr.ID)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return errHttpForbidden
		}
		return next(ctx)
	}
}
