package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

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
	"github.com/trezcool/masomo-lms/storage/database/inmem"
)

// Env is the whole domain layer wired on an in-memory database.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Mail       *emailsvc.ConsoleServiceMock
	Storage    *storagesvc.MemoryStorage
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo user.Repository

	UserSvc         *user.Service
	CourseSvc       *course.Service
	EnrollmentSvc   *enrollment.Service
	ProgressSvc     *progress.Service
	QuizSvc         *quiz.Service
	AssignmentSvc   *assignment.Service
	AnnouncementSvc *announcement.Service
	DashboardSvc    *dashboard.Service
}

func NewEnv() *Env {
	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	db := inmemdb.Open()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	store := storagesvc.NewMemoryStorage()

	usrRepo := inmemdb.NewUserRepository(db)
	enrRepo := inmemdb.NewEnrollmentRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	crsSvc := course.NewService(inmemdb.NewCourseRepository(db), store, logger)
	enrSvc := enrollment.NewService(enrRepo, mailSvc)
	progSvc := progress.NewService(enrRepo, crsSvc, enrSvc)
	qzSvc := quiz.NewService(inmemdb.NewQuizRepository(db), enrSvc)
	asgSvc := assignment.NewService(inmemdb.NewAssignmentRepository(db), enrSvc, usrSvc, store, mailSvc, logger)
	annSvc := announcement.NewService(inmemdb.NewAnnouncementRepository(db), enrSvc)
	crsSvc.OnDelete(asgSvc.DeleteCourseFiles)
	dashSvc := dashboard.NewService(inmemdb.NewStatsRepository(db), crsSvc, enrSvc, progSvc, asgSvc, annSvc)

	return &Env{
		Conf:            conf,
		DB:              db,
		Mail:            mailSvc,
		Storage:         store,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		UserRepo:        usrRepo,
		UserSvc:         usrSvc,
		CourseSvc:       crsSvc,
		EnrollmentSvc:   enrSvc,
		ProgressSvc:     progSvc,
		QuizSvc:         qzSvc,
		AssignmentSvc:   asgSvc,
		AnnouncementSvc: annSvc,
		DashboardSvc:    dashSvc,
	}
}

// PrepareDB opens the Postgres database at TEST_DATABASE_URL, migrates it and empties it.
// The test is skipped when TEST_DATABASE_URL is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(dbURL)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}

	// test packages run in parallel against the same database
	ctx := context.Background()
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", testDBLockID); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", testDBLockID)
		_ = conn.Close()
		_ = db.Close()
	})

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	ResetDB(t, db)
	return db
}

const testDBLockID = 20201018

func ResetDB(t *testing.T, db *sqlx.DB) {
	if _, err := db.Exec(`TRUNCATE "user", course CASCADE`); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, svc *course.Service, teacherID, title, code string, published bool) course.Course {
	crs, err := svc.Create(context.Background(), course.NewCourse{Title: title, Code: code, IsPublished: published}, teacherID)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateLesson(t *testing.T, svc *course.Service, crs course.Course, title string, published bool) course.Lesson {
	lsn, err := svc.CreateLesson(context.Background(), crs, course.NewLesson{Title: title, IsPublished: published})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return lsn
}

func Enroll(t *testing.T, svc *enrollment.Service, student user.User, crs course.Course) enrollment.Enrollment {
	enr, err := svc.Enroll(context.Background(), student, crs)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func IntPtr(i int) *int              { return &i }
func BoolPtr(b bool) *bool           { return &b }
func StrPtr(s string) *string        { return &s }
func TimePtr(t time.Time) *time.Time { return &t }
