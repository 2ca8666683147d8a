package echoapi

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/assignment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/user"
)

type assignmentApi struct {
	usrSvc   *user.Service
	svc      *assignment.Service
	ldr      *loader
	metrics  *metrics
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, ldr *loader, opts *Options, m *metrics) {
	api := assignmentApi{
		usrSvc:   opts.UserSvc,
		svc:      opts.AssignmentSvc,
		ldr:      ldr,
		metrics:  m,
		validate: opts.Validate,
	}

	cg := g.Group("/courses")
	cg.GET("/:id/assignments", api.queryByCourse, jwt, ldr.courseMiddleware, ldr.enrolledOrManagerMiddleware)
	cg.POST("/:id/assignments", api.create, jwt, ldr.courseMiddleware, managerMiddleware)

	ag := g.Group("/assignments", jwt)
	ag.GET("/:id", api.retrieve, ldr.assignmentMiddleware, ldr.enrolledOrManagerMiddleware)
	ag.PUT("/:id", api.update, ldr.assignmentMiddleware, managerMiddleware)
	ag.DELETE("/:id", api.destroy, ldr.assignmentMiddleware, managerMiddleware)
	ag.PUT("/:id/attachment", api.setAttachment, ldr.assignmentMiddleware, managerMiddleware)
	ag.GET("/:id/submissions", api.querySubmissions, ldr.assignmentMiddleware, ldr.enrolledOrManagerMiddleware)
	ag.POST("/:id/submissions", api.submit, studentMiddleware(), ldr.assignmentMiddleware)

	sg := g.Group("/submissions", jwt)
	sg.PUT("/:id/grade", api.grade)
}

// formUpload returns the file uploaded as `file`, or nil if there is none.
func formUpload(ctx echo.Context) (*assignment.Upload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, noop, nil
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			return nil, noop, nil
		}
		return nil, noop, errors.Wrap(err, "reading uploaded file")
	}
	src, err := file.Open()
	if err != nil {
		return nil, noop, errors.Wrap(err, "opening uploaded file")
	}
	return &assignment.Upload{Filename: file.Filename, Content: src}, closer(src), nil
}

func closer(f multipart.File) func() {
	return func() { _ = f.Close() }
}

// Handlers

func (api *assignmentApi) queryByCourse(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}
	asgs, err := api.svc.QueryByCourse(ctx.Request().Context(), crs.ID)
	if err != nil {
		return err
	}
	if asgs == nil {
		asgs = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	crs, err := contextObject[course.Course](ctx, ctxCourseKey)
	if err != nil {
		return err
	}

	var data assignment.NewAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.Create(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	asg, err := contextObject[assignment.Assignment](ctx, ctxAssignmentKey)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	asg, err := contextObject[assignment.Assignment](ctx, ctxAssignmentKey)
	if err != nil {
		return err
	}

	var data assignment.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	asg, err = api.svc.Update(ctx.Request().Context(), asg, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	asg, err := contextObject[assignment.Assignment](ctx, ctxAssignmentKey)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), asg); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) setAttachment(ctx echo.Context) error {
	asg, err := contextObject[assignment.Assignment](ctx, ctxAssignmentKey)
	if err != nil {
		return err
	}

	up, closeFile, err := formUpload(ctx)
	if err != nil {
		return err
	}
	defer closeFile()
	if up == nil {
		return core.NewFieldError("file", errFileRequired)
	}

	asg, err = api.svc.SetAttachment(ctx.Request().Context(), asg, *up)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asg)
}

// Submissions

// querySubmissions lists all the submissions for the course's managers, and their own for students.
func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	asg, err := contextObject[assignment.Assignment](ctx, ctxAssignmentKey)
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

	subs, err := api.svc.ListSubmissions(ctx.Request().Context(), asg, studentID)
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

// submit accepts either a JSON body or a multipart form with a `content` field and an optional `file`.
func (api *assignmentApi) submit(ctx echo.Context) error {
	asg, err := contextObject[assignment.Assignment](ctx, ctxAssignmentKey)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data assignment.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	data.Clean()

	up, closeFile, err := formUpload(ctx)
	if err != nil {
		return err
	}
	defer closeFile()

	sub, err := api.svc.Submit(ctx.Request().Context(), usr.ID, asg, data, up)
	if err != nil {
		return err
	}
	api.metrics.submitted()
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	sub, err := api.svc.GetSubmission(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}
	asg, err := api.svc.GetByID(reqCtx, sub.AssignmentID)
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	if err = api.ldr.loadCourse(ctx, asg.CourseID); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return assignment.ErrSubmissionNotFound
		}
		return err
	}
	if !isCourseManager(ctx) {
		return errHttpForbidden
	}

	var data assignment.GradeSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err = api.svc.Grade(reqCtx, asg, sub, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}
