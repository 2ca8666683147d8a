package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/quiz"
)

type quizRow struct {
	ID          string      `boil:"id"`
	CourseID    string      `boil:"course_id"`
	LessonID    null.String `boil:"lesson_id"`
	Title       string      `boil:"title"`
	Description string      `boil:"description"`
	IsPublished bool        `boil:"is_published"`
	PassMark    int         `boil:"pass_mark"`
	CreatedAt   time.Time   `boil:"created_at"`
	UpdatedAt   time.Time   `boil:"updated_at"`
}

func (row quizRow) unboil() quiz.Quiz {
	return quiz.Quiz{
		ID:          row.ID,
		CourseID:    row.CourseID,
		LessonID:    row.LessonID.String,
		Title:       row.Title,
		Description: row.Description,
		IsPublished: row.IsPublished,
		PassMark:    row.PassMark,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type questionRow struct {
	ID       string            `boil:"id"`
	QuizID   string            `boil:"quiz_id"`
	Prompt   string            `boil:"prompt"`
	Options  types.StringArray `boil:"options"`
	Answer   int               `boil:"answer"`
	Points   int               `boil:"points"`
	Position int               `boil:"position"`
}

func (row questionRow) unboil() quiz.Question {
	answer := row.Answer
	return quiz.Question{
		ID:       row.ID,
		QuizID:   row.QuizID,
		Prompt:   row.Prompt,
		Options:  row.Options,
		Answer:   &answer,
		Points:   row.Points,
		Position: row.Position,
	}
}

type attemptRow struct {
	ID        string           `boil:"id"`
	QuizID    string           `boil:"quiz_id"`
	StudentID string           `boil:"student_id"`
	Answers   types.Int64Array `boil:"answers"`
	Score     int              `boil:"score"`
	MaxScore  int              `boil:"max_score"`
	Passed    bool             `boil:"passed"`
	CreatedAt time.Time        `boil:"created_at"`
}

func (row attemptRow) unboil() quiz.Attempt {
	answers := make([]int, len(row.Answers))
	for i, a := range row.Answers {
		answers[i] = int(a)
	}
	return quiz.Attempt{
		ID:        row.ID,
		QuizID:    row.QuizID,
		StudentID: row.StudentID,
		Answers:   answers,
		Score:     row.Score,
		MaxScore:  row.MaxScore,
		Passed:    row.Passed,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type quizRepository struct {
	exec core.DBExecutor
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(exec core.DBExecutor) *quizRepository {
	return &quizRepository{exec: exec}
}

func (repo quizRepository) insertQuestions(ctx context.Context, qz *quiz.Quiz) error {
	for i := range qz.Questions {
		qn := &qz.Questions[i]
		qn.ID = uuid.New().String()
		qn.QuizID = qz.ID
		var answer int
		if qn.Answer != nil {
			answer = *qn.Answer
		}
		_, err := execRaw(
			ctx, repo.exec,
			`INSERT INTO "question" (id, quiz_id, prompt, options, answer, points, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			qn.ID, qn.QuizID, qn.Prompt, types.StringArray(qn.Options), answer, qn.Points, qn.Position,
		)
		if err != nil {
			return errors.Wrap(err, "inserting question")
		}
	}
	return nil
}

func (repo quizRepository) CreateQuiz(ctx context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	qz.ID = uuid.New().String()
	qz.CreatedAt = qz.CreatedAt.UTC()
	qz.UpdatedAt = qz.UpdatedAt.UTC()
	_, err := execRaw(
		ctx, repo.exec,
		`INSERT INTO "quiz" (id, course_id, lesson_id, title, description, is_published, pass_mark, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		qz.ID, qz.CourseID, null.NewString(qz.LessonID, qz.LessonID != ""), qz.Title, qz.Description,
		qz.IsPublished, qz.PassMark, qz.CreatedAt, qz.UpdatedAt,
	)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	if err = repo.insertQuestions(ctx, &qz); err != nil {
		return quiz.Quiz{}, err
	}
	return qz, nil
}

func (repo quizRepository) QueryQuizzes(ctx context.Context, filter *quiz.QueryFilter) ([]quiz.Quiz, error) {
	var mods []qm.QueryMod
	if filter != nil {
		if filter.CourseIDs != nil {
			ids := validUUIDs(filter.CourseIDs)
			if len(ids) == 0 {
				return []quiz.Quiz{}, nil
			}
			mods = append(mods, whereIn("course_id", ids))
		}
		if filter.PublishedOnly {
			mods = append(mods, qm.Where("is_published = ?", true))
		}
	}
	mods = append(mods, qm.OrderBy("created_at DESC"))

	var rows []quizRow
	if err := newQuery(tableQuiz, mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, row := range rows {
		quizzes = append(quizzes, row.unboil())
	}
	return quizzes, nil
}

func (repo quizRepository) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	if !isUUID(id) {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	var row quizRow
	if err := newQuery(tableQuiz, qm.Where("id = ?", id)).Bind(ctx, repo.exec, &row); err != nil {
		return quiz.Quiz{}, trapNoRowsErr(err, quiz.ErrNotFound, "finding quiz")
	}
	qz := row.unboil()

	var qRows []questionRow
	if err := newQuery(tableQuestion, qm.Where("quiz_id = ?", id), qm.OrderBy("position")).Bind(ctx, repo.exec, &qRows); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "querying questions")
	}
	qz.Questions = make([]quiz.Question, 0, len(qRows))
	for _, qRow := range qRows {
		qz.Questions = append(qz.Questions, qRow.unboil())
	}
	return qz, nil
}

func (repo quizRepository) UpdateQuiz(ctx context.Context, qz quiz.Quiz, replaceQuestions bool) (quiz.Quiz, error) {
	qz.UpdatedAt = qz.UpdatedAt.UTC()
	n, err := execRaw(
		ctx, repo.exec,
		`UPDATE "quiz" SET lesson_id = $2, title = $3, description = $4, is_published = $5, pass_mark = $6,
		updated_at = $7 WHERE id = $1`,
		qz.ID, null.NewString(qz.LessonID, qz.LessonID != ""), qz.Title, qz.Description, qz.IsPublished,
		qz.PassMark, qz.UpdatedAt,
	)
	if err = checkAffected(n, err, quiz.ErrNotFound, "updating quiz"); err != nil {
		return quiz.Quiz{}, err
	}
	if replaceQuestions {
		if _, err = deleteAll(ctx, repo.exec, tableQuestion, qm.Where("quiz_id = ?", qz.ID)); err != nil {
			return quiz.Quiz{}, errors.Wrap(err, "deleting questions")
		}
		if err = repo.insertQuestions(ctx, &qz); err != nil {
			return quiz.Quiz{}, err
		}
	}
	return qz, nil
}

func (repo quizRepository) DeleteQuiz(ctx context.Context, id string) error {
	if !isUUID(id) {
		return quiz.ErrNotFound
	}
	n, err := deleteAll(ctx, repo.exec, tableQuiz, qm.Where("id = ?", id))
	return checkAffected(n, err, quiz.ErrNotFound, "deleting quiz")
}

func (repo quizRepository) CreateAttempt(ctx context.Context, att quiz.Attempt) (quiz.Attempt, error) {
	att.ID = uuid.New().String()
	att.CreatedAt = att.CreatedAt.UTC()
	answers := make(types.Int64Array, len(att.Answers))
	for i, a := range att.Answers {
		answers[i] = int64(a)
	}
	_, err := execRaw(
		ctx, repo.exec,
		`INSERT INTO "quiz_attempt" (id, quiz_id, student_id, answers, score, max_score, passed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		att.ID, att.QuizID, att.StudentID, answers, att.Score, att.MaxScore, att.Passed, att.CreatedAt,
	)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return att, nil
}

func (repo quizRepository) QueryAttempts(ctx context.Context, quizID, studentID string) ([]quiz.Attempt, error) {
	if !isUUID(quizID) {
		return []quiz.Attempt{}, nil
	}
	mods := []qm.QueryMod{qm.Where("quiz_id = ?", quizID)}
	if studentID != "" {
		if !isUUID(studentID) {
			return []quiz.Attempt{}, nil
		}
		mods = append(mods, qm.Where("student_id = ?", studentID))
	}
	mods = append(mods, qm.OrderBy("created_at DESC"))

	var rows []attemptRow
	if err := newQuery(tableAttempt, mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	atts := make([]quiz.Attempt, 0, len(rows))
	for _, row := range rows {
		atts = append(atts, row.unboil())
	}
	return atts, nil
}
