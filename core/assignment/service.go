package assignment

import (
	"context"
	"fmt"
	"net/mail"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/enrollment"
	"github.com/trezcool/masomo-lms/core/user"
)

var (
	// errors
	ErrNotFound           = &core.NotFoundError{Resource: "assignment"}
	ErrSubmissionNotFound = &core.NotFoundError{Resource: "submission"}
	ErrNotEnrolled        = errors.New("you must be enrolled in this course")
	ErrEmptySubmission    = errors.New("a submission needs a content or a file")
	ErrAlreadyGraded      = errors.New("this submission has already been graded")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		// QueryAssignments returns the assignments matching filter, ordered by due date.
		QueryAssignments(ctx context.Context, filter *QueryFilter) ([]Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error

		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// FindSubmission returns the submission of a student on an assignment, or ErrSubmissionNotFound.
		FindSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error)
		// QuerySubmissions returns the submissions matching filter, most recent first.
		QuerySubmissions(ctx context.Context, filter *SubmissionFilter) ([]Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)
	}

	Service struct {
		repo    Repository
		enrSvc  *enrollment.Service
		usrSvc  *user.Service
		storage core.FileStorage
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(
	repo Repository,
	enrSvc *enrollment.Service,
	usrSvc *user.Service,
	storage core.FileStorage,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:    repo,
		enrSvc:  enrSvc,
		usrSvc:  usrSvc,
		storage: storage,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *Service) withURL(asg Assignment) Assignment {
	if asg.Attachment != "" {
		asg.AttachmentURL = svc.storage.URL(asg.Attachment)
	}
	return asg
}

func (svc *Service) submissionWithURL(sub Submission) Submission {
	if sub.Attachment != "" {
		sub.AttachmentURL = svc.storage.URL(sub.Attachment)
	}
	return sub
}

func (svc *Service) deleteFile(ctx context.Context, key string) {
	if err := svc.storage.Delete(ctx, key); err != nil {
		svc.logger.Warn(fmt.Sprintf("deleting file %q: %v", key, err), err)
	}
}

func (svc *Service) saveFile(ctx context.Context, prefix string, up *Upload) (string, error) {
	key := fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), path.Ext(up.Filename))
	if _, err := svc.storage.Save(ctx, key, up.Content); err != nil {
		return "", errors.Wrap(err, "saving file")
	}
	return key, nil
}

func (svc *Service) Create(ctx context.Context, courseID string, na NewAssignment) (Assignment, error) {
	now := time.Now().UTC()
	asg := Assignment{
		CourseID:    courseID,
		Title:       na.Title,
		Description: na.Description,
		MaxPoints:   na.MaxPoints,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if na.DueAt != nil {
		due := na.DueAt.UTC()
		asg.DueAt = &due
	}
	asg, err := svc.repo.CreateAssignment(ctx, asg)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return svc.withURL(asg), nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Assignment, error) {
	asgs, err := svc.repo.QueryAssignments(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	for i := range asgs {
		asgs[i] = svc.withURL(asgs[i])
	}
	return asgs, nil
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID string) ([]Assignment, error) {
	return svc.Query(ctx, &QueryFilter{CourseIDs: []string{courseID}})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Assignment, error) {
	asg, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	return svc.withURL(asg), nil
}

func (svc *Service) Update(ctx context.Context, asg Assignment, ua UpdateAssignment) (Assignment, error) {
	if ua.Title != nil {
		asg.Title = *ua.Title
	}
	if ua.Description != nil {
		asg.Description = *ua.Description
	}
	if ua.DueAt != nil {
		due := ua.DueAt.UTC()
		asg.DueAt = &due
	}
	if ua.MaxPoints != nil {
		asg.MaxPoints = *ua.MaxPoints
	}
	asg.UpdatedAt = time.Now().UTC()

	asg, err := svc.repo.UpdateAssignment(ctx, asg)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "updating assignment")
	}
	return svc.withURL(asg), nil
}

// SetAttachment stores a new attachment for the Assignment and removes the previous one.
func (svc *Service) SetAttachment(ctx context.Context, asg Assignment, up Upload) (Assignment, error) {
	key, err := svc.saveFile(ctx, "assignments/"+asg.ID, &up)
	if err != nil {
		return Assignment{}, err
	}

	prev := asg.Attachment
	asg.Attachment = key
	asg.UpdatedAt = time.Now().UTC()
	asg, err = svc.repo.UpdateAssignment(ctx, asg)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if prev != "" {
		svc.deleteFile(ctx, prev)
	}
	return svc.withURL(asg), nil
}

// deleteFiles removes the files of asg and of its submissions (best-effort).
func (svc *Service) deleteFiles(ctx context.Context, asg Assignment) error {
	subs, err := svc.repo.QuerySubmissions(ctx, &SubmissionFilter{AssignmentIDs: []string{asg.ID}})
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	for _, sub := range subs {
		if sub.Attachment != "" {
			svc.deleteFile(ctx, sub.Attachment)
		}
	}
	if asg.Attachment != "" {
		svc.deleteFile(ctx, asg.Attachment)
	}
	return nil
}

// Delete removes the files of the Assignment and of its submissions (best-effort),
// then the Assignment itself.
func (svc *Service) Delete(ctx context.Context, asg Assignment) error {
	if err := svc.deleteFiles(ctx, asg); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteAssignment(ctx, asg.ID), "deleting assignment")
}

// DeleteCourseFiles removes the files of the course's assignments and of their submissions.
// Failures are logged; the rows are left to the course deletion.
func (svc *Service) DeleteCourseFiles(ctx context.Context, courseID string) {
	asgs, err := svc.repo.QueryAssignments(ctx, &QueryFilter{CourseIDs: []string{courseID}})
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("querying assignments of course %s: %v", courseID, err), err)
		return
	}
	for _, asg := range asgs {
		if err = svc.deleteFiles(ctx, asg); err != nil {
			svc.logger.Warn(fmt.Sprintf("deleting files of assignment %s: %v", asg.ID, err), err)
		}
	}
}

// Submissions

// Submit records the work of studentID on asg.
// Submitting again before the work is graded replaces the previous submission.
func (svc *Service) Submit(ctx context.Context, studentID string, asg Assignment, ns NewSubmission, up *Upload) (Submission, error) {
	enrolled, err := svc.enrSvc.IsEnrolled(ctx, asg.CourseID, studentID)
	if err != nil {
		return Submission{}, err
	}
	if !enrolled {
		return Submission{}, core.NewValidationError(ErrNotEnrolled)
	}
	if ns.Content == "" && up == nil {
		return Submission{}, core.NewFieldError("content", ErrEmptySubmission.Error())
	}

	sub, err := svc.repo.FindSubmission(ctx, asg.ID, studentID)
	exists := err == nil
	if err != nil && errors.Cause(err) != ErrSubmissionNotFound {
		return Submission{}, errors.Wrap(err, "finding submission")
	}
	if exists && sub.IsGraded() {
		return Submission{}, core.NewValidationError(ErrAlreadyGraded)
	}

	prevAttachment := sub.Attachment
	sub.Attachment, sub.AttachmentURL = "", ""
	if up != nil {
		key, err := svc.saveFile(ctx, fmt.Sprintf("assignments/%s/submissions/%s", asg.ID, studentID), up)
		if err != nil {
			return Submission{}, err
		}
		sub.Attachment = key
	}
	sub.AssignmentID = asg.ID
	sub.StudentID = studentID
	sub.Content = ns.Content
	sub.Status = StatusSubmitted
	sub.SubmittedAt = time.Now().UTC()

	if exists {
		sub, err = svc.repo.UpdateSubmission(ctx, sub)
	} else {
		sub, err = svc.repo.CreateSubmission(ctx, sub)
	}
	if err != nil {
		return Submission{}, errors.Wrap(err, "saving submission")
	}
	if prevAttachment != "" && prevAttachment != sub.Attachment {
		svc.deleteFile(ctx, prevAttachment)
	}
	return svc.submissionWithURL(sub), nil
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	return svc.submissionWithURL(sub), nil
}

func (svc *Service) QuerySubmissions(ctx context.Context, filter *SubmissionFilter) ([]Submission, error) {
	if filter != nil && filter.AssignmentIDs != nil && len(filter.AssignmentIDs) == 0 {
		return []Submission{}, nil
	}
	subs, err := svc.repo.QuerySubmissions(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	for i := range subs {
		subs[i] = svc.submissionWithURL(subs[i])
	}
	return subs, nil
}

// ListSubmissions returns the submissions on asg; only those of studentID if not empty.
func (svc *Service) ListSubmissions(ctx context.Context, asg Assignment, studentID string) ([]Submission, error) {
	return svc.QuerySubmissions(ctx, &SubmissionFilter{AssignmentIDs: []string{asg.ID}, StudentID: studentID})
}

// Grade grades sub and notifies the student by email.
func (svc *Service) Grade(ctx context.Context, asg Assignment, sub Submission, gs GradeSubmission) (Submission, error) {
	if *gs.Grade > asg.MaxPoints {
		return Submission{}, core.NewFieldError("grade", fmt.Sprintf("grade cannot exceed %d", asg.MaxPoints))
	}

	now := time.Now().UTC()
	grade := *gs.Grade
	sub.Grade = &grade
	sub.Feedback = gs.Feedback
	sub.Status = StatusGraded
	sub.GradedAt = &now
	sub, err := svc.repo.UpdateSubmission(ctx, sub)
	if err != nil {
		return Submission{}, errors.Wrap(err, "updating submission")
	}

	student, err := svc.usrSvc.GetByID(ctx, sub.StudentID)
	switch {
	case err != nil:
		svc.logger.Warn(fmt.Sprintf("notifying grade of submission %s: %v", sub.ID, err), err)
	case student.Email != "":
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject:      "Submission Graded: " + asg.Title,
			TemplateName: "submission_graded",
			TemplateData: map[string]string{
				"StudentName":     student.Name,
				"AssignmentID":    asg.ID,
				"AssignmentTitle": asg.Title,
				"Grade":           strconv.Itoa(grade),
				"MaxPoints":       strconv.Itoa(asg.MaxPoints),
				"Feedback":        sub.Feedback,
			},
		})
	}
	return svc.submissionWithURL(sub), nil
}
