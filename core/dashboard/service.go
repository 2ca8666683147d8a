package dashboard

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/announcement"
	"github.com/trezcool/masomo-lms/core/assignment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/progress"
)

const (
	DefaultTopN = 5

	recentEnrollmentsLimit = 10
	announcementsLimit     = 5
	dueSoonWindow          = 14 * 24 * time.Hour
)

// NowFunc returns the current time; mocked in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }

type (
	StatsRepository interface {
		Counts(ctx context.Context) (Counts, error)
	}

	Service struct {
		stats   StatsRepository
		crsSvc  *course.Service
		enrSvc  *enrollment.Service
		progSvc *progress.Service
		asgSvc  *assignment.Service
		annSvc  *announcement.Service
	}
)

func NewService(
	stats StatsRepository,
	crsSvc *course.Service,
	enrSvc *enrollment.Service,
	progSvc *progress.Service,
	asgSvc *assignment.Service,
	annSvc *announcement.Service,
) *Service {
	return &Service{
		stats:   stats,
		crsSvc:  crsSvc,
		enrSvc:  enrSvc,
		progSvc: progSvc,
		asgSvc:  asgSvc,
		annSvc:  annSvc,
	}
}

// courseStats pairs each course with its enrollment count.
func (svc *Service) courseStats(ctx context.Context, courses []course.Course) ([]CourseStats, error) {
	ids := make([]string, len(courses))
	for i, crs := range courses {
		ids[i] = crs.ID
	}
	counts, err := svc.enrSvc.CountByCourse(ctx, ids)
	if err != nil {
		return nil, err
	}
	stats := make([]CourseStats, len(courses))
	for i, crs := range courses {
		stats[i] = CourseStats{Course: crs, EnrollmentCount: counts[crs.ID]}
	}
	return stats, nil
}

// TopCourses sorts stats by enrollment count (desc, then title) and returns the first n.
func TopCourses(stats []CourseStats, n int) []CourseStats {
	sorted := make([]CourseStats, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].EnrollmentCount != sorted[j].EnrollmentCount {
			return sorted[i].EnrollmentCount > sorted[j].EnrollmentCount
		}
		return sorted[i].Title < sorted[j].Title
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func (svc *Service) Admin(ctx context.Context, topN int) (Admin, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	counts, err := svc.stats.Counts(ctx)
	if err != nil {
		return Admin{}, errors.Wrap(err, "counting")
	}

	courses, err := svc.crsSvc.Query(ctx, nil, nil)
	if err != nil {
		return Admin{}, err
	}
	stats, err := svc.courseStats(ctx, courses)
	if err != nil {
		return Admin{}, err
	}

	recent, err := svc.enrSvc.Query(
		ctx,
		&enrollment.QueryFilter{Limit: recentEnrollmentsLimit},
		[]core.DBOrdering{{Field: "created_at", Ascending: false}},
	)
	if err != nil {
		return Admin{}, err
	}

	return Admin{
		Counts:            counts,
		TopCourses:        TopCourses(stats, topN),
		RecentEnrollments: recent,
	}, nil
}

func (svc *Service) Teacher(ctx context.Context, teacherID string) (Teacher, error) {
	courses, err := svc.crsSvc.Query(ctx, &course.QueryFilter{TeacherID: teacherID}, nil)
	if err != nil {
		return Teacher{}, err
	}
	stats, err := svc.courseStats(ctx, courses)
	if err != nil {
		return Teacher{}, err
	}

	courseIDs := make([]string, len(courses))
	for i, crs := range courses {
		courseIDs[i] = crs.ID
	}
	studentIDs, err := svc.enrSvc.StudentIDs(ctx, courseIDs, enrollment.CountedStatuses...)
	if err != nil {
		return Teacher{}, err
	}

	pending := []assignment.Submission{}
	if len(courseIDs) > 0 {
		asgs, err := svc.asgSvc.Query(ctx, &assignment.QueryFilter{CourseIDs: courseIDs})
		if err != nil {
			return Teacher{}, err
		}
		asgIDs := make([]string, len(asgs))
		for i, asg := range asgs {
			asgIDs[i] = asg.ID
		}
		pending, err = svc.asgSvc.QuerySubmissions(ctx, &assignment.SubmissionFilter{
			AssignmentIDs: asgIDs,
			Status:        assignment.StatusSubmitted,
		})
		if err != nil {
			return Teacher{}, err
		}
	}

	return Teacher{
		Courses:            stats,
		TotalStudents:      len(studentIDs),
		PendingSubmissions: pending,
	}, nil
}

func (svc *Service) Student(ctx context.Context, studentID string) (Student, error) {
	courseIDs, err := svc.enrSvc.CourseIDs(ctx, studentID)
	if err != nil {
		return Student{}, err
	}
	courses, err := svc.crsSvc.GetManyByID(ctx, courseIDs...)
	if err != nil {
		return Student{}, err
	}
	progs, err := svc.progSvc.ManyCourseProgress(ctx, studentID, courseIDs...)
	if err != nil {
		return Student{}, err
	}
	stdCourses := make([]StudentCourse, len(courses))
	for i, crs := range courses {
		stdCourses[i] = StudentCourse{Course: crs, Progress: progs[crs.ID]}
	}

	dueSoon := []assignment.Assignment{}
	if len(courseIDs) > 0 {
		now := NowFunc()
		asgs, err := svc.asgSvc.Query(ctx, &assignment.QueryFilter{
			CourseIDs: courseIDs,
			DueFrom:   now,
			DueTo:     now.Add(dueSoonWindow),
		})
		if err != nil {
			return Student{}, err
		}
		if len(asgs) > 0 {
			asgIDs := make([]string, len(asgs))
			for i, asg := range asgs {
				asgIDs[i] = asg.ID
			}
			subs, err := svc.asgSvc.QuerySubmissions(ctx, &assignment.SubmissionFilter{
				AssignmentIDs: asgIDs,
				StudentID:     studentID,
			})
			if err != nil {
				return Student{}, err
			}
			submitted := make(map[string]struct{}, len(subs))
			for _, sub := range subs {
				submitted[sub.AssignmentID] = struct{}{}
			}
			for _, asg := range asgs {
				if _, ok := submitted[asg.ID]; !ok {
					dueSoon = append(dueSoon, asg)
				}
			}
		}
	}

	anns, err := svc.annSvc.QueryForStudent(ctx, studentID, "", announcementsLimit)
	if err != nil {
		return Student{}, err
	}

	return Student{
		Courses:       stdCourses,
		DueSoon:       dueSoon,
		Announcements: anns,
	}, nil
}
