package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/user"
)

const errUnknownLesson = "unknown lesson"

type quizApi struct {
	usrSvc   *user.Service
	crsSvc   *course.Service
	svc      *quiz.Service
	metrics  *metrics
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, ldr *loader, opts *Options, m *metrics) {
	api := quizApi{
		usrSvc:   opts.UserSvc,
		crsSvc:   opts.CourseSvc,
		svc:      opts.QuizSvc,
		metrics:  m,
		validate: opts.Validate,
	}

	cg := g.Group("/courses")
	cg.GET("/:id/quizzes", api.queryByCourse, jwt, ldr.courseMiddleware, ldr.enrolledOrManagerMiddleware)
	cg.POST("/:id/quizzes", api.create, jwt, ldr.courseMiddleware, managerMiddleware)

	qg := g.Group("/quizzes", jwt)
	qg.GET("/:id", api.retrieve, ldr.quizMiddleware, ldr.enrolledOrManagerMiddleware)
	qg.PUT("/:id", api.update, ldr.quizMiddleware, managerMiddleware)
	qg.DELETE("/:id", api.destroy, ldr.quizMiddleware, managerMiddleware)
	qg.GET("/:id/attempts", api.queryAttempts, ldr.quizMiddleware, ldr.enrolledOrManagerMiddleware)
	qg.POST("/:id/attempts", api.submit, studentMiddleware(), ldr.quizMiddleware)
}

// Handlers

func (api *quizApi) queryByCourse(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}
	quizzes, err := api.svc.QueryByCourse(ctx.Request().Context(), crs.ID, !isCourseManager(ctx))
	if err != nil {
		return err
	}
	if quizzes == nil {
		quizzes = []quiz.Quiz{}
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

// checkLesson verifies that lessonID, if set, is a lesson of crs.
func (api *quizApi) checkLesson(ctx echo.Context, crs course.Course, lessonID string) error {
	if lessonID == "" {
		return nil
	}
	if _, err := api.crsSvc.GetLesson(ctx.Request().Context(), crs.ID, lessonID); err != nil {
		if errors.Cause(err) == course.ErrLessonNotFound {
			return core.NewFieldError("lesson_id", errUnknownLesson)
		}
		return errors.Wrap(err, "finding lesson")
	}
	return nil
}

func (api *quizApi) create(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}

	var data quiz.NewQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if err = api.checkLesson(ctx, crs, data.LessonID); err != nil {
		return err
	}

	qz, err := api.svc.Create(ctx.Request().Context(), crs, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, qz)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	qz, err := contextObject[quiz.Quiz](ctx, ctxQuizKey)
	if err != nil {
		return err
	}
	if !isCourseManager(ctx) {
		qz = qz.WithoutAnswers()
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *quizApi) update(ctx echo.Context) error {
	qz, err := contextObject[quiz.Quiz](ctx, ctxQuizKey)
	if err != nil {
		return err
	}
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}

	var data quiz.UpdateQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if data.LessonID != nil {
		if err = api.checkLesson(ctx, crs, *data.LessonID); err != nil {
			return err
		}
	}

	qz, err = api.svc.Update(ctx.Request().Context(), qz, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *quizApi) destroy(ctx echo.Context) error {
	qz, err := contextObject[quiz.Quiz](ctx, ctxQuizKey)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), qz); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// queryAttempts lists all the attempts for the course's managers, and their own for students.
func (api *quizApi) queryAttempts(ctx echo.Context) error {
	qz, err := contextObject[quiz.Quiz](ctx, ctxQuizKey)
	if err != nil {
		return err
	}

	var studentID string
	if !isCourseManager(ctx) {
		usr, err := getContextUser(ctx, api.usrSvc)
		if err != nil {
			return err
		}
		studentID = usr.ID
	}

	atts, err := api.svc.ListAttempts(ctx.Request().Context(), qz, studentID)
	if err != nil {
		return err
	}
	if atts == nil {
		atts = []quiz.Attempt{}
	}
	return ctx.JSON(http.StatusOK, atts)
}

func (api *quizApi) submit(ctx echo.Context) error {
	qz, err := contextObject[quiz.Quiz](ctx, ctxQuizKey)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data quiz.NewAttempt
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttempt")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	att, err := api.svc.Submit(ctx.Request().Context(), usr.ID, qz, data)
	if err != nil {
		return err
	}
	api.metrics.quizAttempted(att.Passed)
	return ctx.JSON(http.StatusCreated, att)
}
