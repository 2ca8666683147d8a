package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/trezcool/masomo-lms/apps/api/echo"
	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/announcement"
	"github.com/trezcool/masomo-lms/core/assignment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/dashboard"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/progress"
	"github.com/trezcool/masomo-lms/core/quiz"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/services/email"
	"github.com/trezcool/masomo-lms/services/logger"
	"github.com/trezcool/masomo-lms/services/storage"
	"github.com/trezcool/masomo-lms/storage/database"
	"github.com/trezcool/masomo-lms/storage/database/sqlboiler"
	"github.com/trezcool/masomo-lms/storage/database/sqlx"
)

func main() {
	if err := run(); err != nil {
		log.Printf("main: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	db, err := setUpDB(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up database: %v", err), err)
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	store, err := storagesvc.New(context.Background(), conf)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up storage: %v", err), err)
		return err
	}
	var mediaDir string
	if local, ok := store.(*storagesvc.LocalStorage); ok {
		mediaDir = local.Dir()
	}
	mailSvc := emailsvc.NewService(conf, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)

	user.LoadCommonPasswords(logger)

	usrSvc := user.NewService(boiledrepos.NewUserRepository(db), mailSvc, conf)
	crsSvc := course.NewService(boiledrepos.NewCourseRepository(db), store, logger)
	enrRepo := boiledrepos.NewEnrollmentRepository(db)
	enrSvc := enrollment.NewService(enrRepo, mailSvc)
	progSvc := progress.NewService(enrRepo, crsSvc, enrSvc)
	qzSvc := quiz.NewService(boiledrepos.NewQuizRepository(db), enrSvc)
	asgSvc := assignment.NewService(boiledrepos.NewAssignmentRepository(db), enrSvc, usrSvc, store, mailSvc, logger)
	annSvc := announcement.NewService(boiledrepos.NewAnnouncementRepository(db), enrSvc)
	crsSvc.OnDelete(asgSvc.DeleteCourseFiles)
	dashSvc := dashboard.NewService(sqlxrepos.NewStatsRepository(db), crsSvc, enrSvc, progSvc, asgSvc, annSvc)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, conf.Database.Name),
	)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		SignalShutdown: func() {
			shutdown <- syscall.SIGTERM
		},
		Registry:        registry,
		MediaDir:        mediaDir,
		UserSvc:         usrSvc,
		CourseSvc:       crsSvc,
		EnrollmentSvc:   enrSvc,
		ProgressSvc:     progSvc,
		QuizSvc:         qzSvc,
		AssignmentSvc:   asgSvc,
		AnnouncementSvc: annSvc,
		DashboardSvc:    dashSvc,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address()))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
			return err
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			return err
		}
	}
	return nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
