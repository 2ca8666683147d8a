package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-lms/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	asg.ID = newID()
	asg.AttachmentURL = ""
	repo.db.assignments[asg.ID] = asg
	return asg, nil
}

func matchesAssignmentFilter(asg assignment.Assignment, filter *assignment.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.CourseIDs != nil && !containsString(filter.CourseIDs, asg.CourseID) {
		return false
	}
	if !filter.DueFrom.IsZero() && (asg.DueAt == nil || asg.DueAt.Before(filter.DueFrom)) {
		return false
	}
	if !filter.DueTo.IsZero() && (asg.DueAt == nil || asg.DueAt.After(filter.DueTo)) {
		return false
	}
	return true
}

func (repo *assignmentRepository) QueryAssignments(_ context.Context, filter *assignment.QueryFilter) ([]assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	asgs := make([]assignment.Assignment, 0)
	for _, asg := range repo.db.assignments {
		if matchesAssignmentFilter(asg, filter) {
			asgs = append(asgs, asg)
		}
	}
	// due date first (nulls last), then most recent
	sort.SliceStable(asgs, func(i, j int) bool {
		a, b := asgs[i], asgs[j]
		switch {
		case a.DueAt != nil && b.DueAt == nil:
			return true
		case a.DueAt == nil && b.DueAt != nil:
			return false
		case a.DueAt != nil && !a.DueAt.Equal(*b.DueAt):
			return a.DueAt.Before(*b.DueAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return asgs, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return asg, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) UpdateAssignment(_ context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.assignments[asg.ID]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	asg.CourseID = orig.CourseID
	asg.CreatedAt = orig.CreatedAt
	asg.AttachmentURL = ""
	repo.db.assignments[asg.ID] = asg
	return asg, nil
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return assignment.ErrNotFound
	}
	delete(repo.db.assignments, id)
	repo.db.cascadeAssignment(id)
	return nil
}

// Submissions

func (repo *assignmentRepository) CreateSubmission(_ context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sub.ID = newID()
	sub.AttachmentURL = ""
	repo.db.submissions[sub.ID] = sub
	return sub, nil
}

func (repo *assignmentRepository) GetSubmission(_ context.Context, id string) (assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return sub, nil
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) FindSubmission(_ context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sub := range repo.db.submissions {
		if sub.AssignmentID == assignmentID && sub.StudentID == studentID {
			return sub, nil
		}
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) QuerySubmissions(_ context.Context, filter *assignment.SubmissionFilter) ([]assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]assignment.Submission, 0)
	for _, sub := range repo.db.submissions {
		if filter != nil {
			if filter.AssignmentIDs != nil && !containsString(filter.AssignmentIDs, sub.AssignmentID) {
				continue
			}
			if filter.StudentID != "" && sub.StudentID != filter.StudentID {
				continue
			}
			if filter.Status != "" && sub.Status != filter.Status {
				continue
			}
		}
		subs = append(subs, sub)
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *assignmentRepository) UpdateSubmission(_ context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.submissions[sub.ID]
	if !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	sub.AssignmentID = orig.AssignmentID
	sub.StudentID = orig.StudentID
	sub.AttachmentURL = ""
	repo.db.submissions[sub.ID] = sub
	return sub, nil
}
