package enrollment

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/user"
)

var (
	// errors
	ErrNotFound        = &core.NotFoundError{Resource: "enrollment"}
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	ErrNotEnrolled     = errors.New("not enrolled in this course")
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		// FindEnrollment returns the enrollment of a student in a course, or ErrNotFound.
		FindEnrollment(ctx context.Context, courseID, studentID string) (Enrollment, error)
		// QueryEnrollments applies AND operation on available QueryFilter fields.
		QueryEnrollments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

// Enroll enrolls student in crs. A dropped enrollment is re-activated.
func (svc *Service) Enroll(ctx context.Context, student user.User, crs course.Course) (Enrollment, error) {
	if !crs.IsPublished {
		return Enrollment{}, course.ErrNotFound
	}

	now := time.Now().UTC()
	enr, err := svc.repo.FindEnrollment(ctx, crs.ID, student.ID)
	switch {
	case err == nil:
		if enr.Status != StatusDropped {
			return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
		}
		enr.Status = StatusActive
		enr.UpdatedAt = now
		if enr, err = svc.repo.UpdateEnrollment(ctx, enr); err != nil {
			return Enrollment{}, errors.Wrap(err, "re-activating enrollment")
		}
	case errors.Cause(err) == ErrNotFound:
		enr = Enrollment{
			CourseID:  crs.ID,
			StudentID: student.ID,
			Status:    StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if enr, err = svc.repo.CreateEnrollment(ctx, enr); err != nil {
			return Enrollment{}, errors.Wrap(err, "creating enrollment")
		}
	default:
		return Enrollment{}, errors.Wrap(err, "finding enrollment")
	}

	if student.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject:      "Enrollment Confirmed: " + crs.Title,
			TemplateName: "enrollment_confirmed",
			TemplateData: map[string]string{
				"StudentName": student.Name,
				"CourseID":    crs.ID,
				"CourseTitle": crs.Title,
				"CourseCode":  crs.Code,
			},
		})
	}
	return enr, nil
}

// Drop withdraws the student from the course.
func (svc *Service) Drop(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	enr, err := svc.repo.FindEnrollment(ctx, courseID, studentID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Enrollment{}, core.NewValidationError(ErrNotEnrolled)
		}
		return Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	if enr.Status == StatusDropped {
		return enr, nil
	}
	return svc.UpdateStatus(ctx, enr, StatusDropped)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, id)
}

func (svc *Service) Find(ctx context.Context, courseID, studentID string) (Enrollment, error) {
	return svc.repo.FindEnrollment(ctx, courseID, studentID)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Enrollment, error) {
	enrs, err := svc.repo.QueryEnrollments(ctx, filter, ordering)
	return enrs, errors.Wrap(err, "querying enrollments")
}

func (svc *Service) UpdateStatus(ctx context.Context, enr Enrollment, status string) (Enrollment, error) {
	enr.Status = status
	enr.UpdatedAt = time.Now().UTC()
	enr, err := svc.repo.UpdateEnrollment(ctx, enr)
	return enr, errors.Wrap(err, "updating enrollment")
}

// IsEnrolled reports whether the student has access to the course's content.
func (svc *Service) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	enr, err := svc.repo.FindEnrollment(ctx, courseID, studentID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "finding enrollment")
	}
	return enr.GrantsAccess(), nil
}

// StudentIDs returns the de-duplicated IDs of the students enrolled in any of courseIDs
// with one of the given statuses (AccessStatuses if none).
func (svc *Service) StudentIDs(ctx context.Context, courseIDs []string, statuses ...string) ([]string, error) {
	if len(courseIDs) == 0 {
		return []string{}, nil
	}
	if len(statuses) == 0 {
		statuses = AccessStatuses
	}
	enrs, err := svc.Query(ctx, &QueryFilter{CourseIDs: courseIDs, Statuses: statuses}, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(enrs))
	for _, enr := range enrs {
		ids = append(ids, enr.StudentID)
	}
	return core.UniqueStrings(ids), nil
}

// CourseIDs returns the IDs of the courses the student has access to.
func (svc *Service) CourseIDs(ctx context.Context, studentID string) ([]string, error) {
	enrs, err := svc.Query(ctx, &QueryFilter{StudentID: studentID, Statuses: AccessStatuses}, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(enrs))
	for _, enr := range enrs {
		ids = append(ids, enr.CourseID)
	}
	return ids, nil
}

// CountByCourse counts the enrollments (CountedStatuses) of each of courseIDs.
// Every requested course is present in the result, with 0 if it has no enrollment.
func (svc *Service) CountByCourse(ctx context.Context, courseIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}
	for _, id := range courseIDs {
		counts[id] = 0
	}
	enrs, err := svc.Query(ctx, &QueryFilter{CourseIDs: courseIDs, Statuses: CountedStatuses}, nil)
	if err != nil {
		return nil, err
	}
	for _, enr := range enrs {
		counts[enr.CourseID]++
	}
	return counts, nil
}

// Students returns the students actively enrolled in the course (de-duplicated), with their enrollment status.
// Pending enrollments are listed by Query.
func (svc *Service) Students(ctx context.Context, courseID string, usrSvc *user.Service) ([]Student, error) {
	enrs, err := svc.Query(ctx, &QueryFilter{CourseIDs: []string{courseID}, Statuses: AccessStatuses}, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return nil, err
	}
	byStudent := make(map[string]Enrollment, len(enrs))
	ids := make([]string, 0, len(enrs))
	for _, enr := range enrs {
		if _, ok := byStudent[enr.StudentID]; ok {
			continue
		}
		byStudent[enr.StudentID] = enr
		ids = append(ids, enr.StudentID)
	}

	users, err := usrSvc.GetManyByID(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "getting students")
	}
	usersByID := make(map[string]user.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	students := make([]Student, 0, len(ids))
	for _, id := range ids {
		usr, ok := usersByID[id]
		if !ok {
			continue
		}
		enr := byStudent[id]
		students = append(students, Student{Summary: usr.Summary(), Status: enr.Status, EnrolledAt: enr.CreatedAt})
	}
	return students, nil
}
