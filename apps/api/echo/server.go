package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/announcement"
	"github.com/trezcool/masomo-lms/core/assignment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/dashboard"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/progress"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/services/storage"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
		// SignalShutdown is called when a handler fails with a core.shutdown error.
		SignalShutdown func()
		// Registry receives the server metrics; a new one is created if nil.
		Registry *prometheus.Registry
		// MediaDir, when set, is served under storagesvc.MediaURLPrefix (local file storage).
		MediaDir string

		UserSvc         *user.Service
		CourseSvc       *course.Service
		EnrollmentSvc   *enrollment.Service
		ProgressSvc     *progress.Service
		QuizSvc         *quiz.Service
		AssignmentSvc   *assignment.Service
		AnnouncementSvc *announcement.Service
		DashboardSvc    *dashboard.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts    *Options
		app     *echo.Echo
		metrics *metrics
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &server{
		opts:    opts,
		app:     echo.New(),
		metrics: newMetrics(reg),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(s.metrics.middleware(s.opts.Translator))
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", s.metrics.handler())
	if s.opts.MediaDir != "" {
		s.app.Static(storagesvc.MediaURLPrefix, s.opts.MediaDir)
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig(conf))
	optionalJWT := middleware.JWTWithConfig(optionalJWTConfig(conf))
	ldr := &loader{
		usrSvc: s.opts.UserSvc,
		crsSvc: s.opts.CourseSvc,
		enrSvc: s.opts.EnrollmentSvc,
		qzSvc:  s.opts.QuizSvc,
		asgSvc: s.opts.AssignmentSvc,
	}

	registerUserAPI(v1, jwt, conf, s.opts.UserSvc, s.opts.Validate)
	registerCourseAPI(v1, jwt, optionalJWT, ldr, s.opts)
	registerEnrollmentAPI(v1, jwt, ldr, s.opts, s.metrics)
	registerQuizAPI(v1, jwt, ldr, s.opts, s.metrics)
	registerAssignmentAPI(v1, jwt, ldr, s.opts, s.metrics)
	registerAnnouncementAPI(v1, jwt, s.opts)
	registerDashboardAPI(v1, jwt, s.opts)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address())
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Masomo API!")
}
