package boiledrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/masomo-lms/core"
)

// Table names
const (
	tableUser         = `"user"`
	tableCourse       = `"course"`
	tableLesson       = `"lesson"`
	tableEnrollment   = `"enrollment"`
	tableProgress     = `"lesson_progress"`
	tableQuiz         = `"quiz"`
	tableQuestion     = `"question"`
	tableAttempt      = `"quiz_attempt"`
	tableAssignment   = `"assignment"`
	tableSubmission   = `"submission"`
	tableAnnouncement = `"announcement"`
)

var dialect = drivers.Dialect{
	LQ: 0x22,
	RQ: 0x22,

	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

// newQuery builds a SELECT query on table.
func newQuery(table string, mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	queries.SetFrom(q, table)
	if len(queries.GetSelect(q)) == 0 {
		queries.SetSelect(q, []string{table + ".*"})
	}
	return q
}

func exists(ctx context.Context, exec core.DBExecutor, table string, mods ...qm.QueryMod) (bool, error) {
	q := newQuery(table, mods...)
	queries.SetSelect(q, nil)
	queries.SetCount(q)
	queries.SetLimit(q, 1)

	var count int64
	if err := q.QueryRowContext(ctx, exec).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func deleteAll(ctx context.Context, exec core.DBExecutor, table string, mods ...qm.QueryMod) (int64, error) {
	q := newQuery(table, mods...)
	queries.SetDelete(q)
	res, err := q.ExecContext(ctx, exec)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func execRaw(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (int64, error) {
	res, err := queries.Raw(query, args...).ExecContext(ctx, exec)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func orderBy(ordering []core.DBOrdering, dflt string) qm.QueryMod {
	if len(ordering) == 0 {
		return qm.OrderBy(dflt)
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return qm.OrderBy(strings.Join(orderList, ", "))
}

// inClause returns "col [NOT ]IN (?, ?, ...)" along with its args.
func inClause(col string, not bool, vals []string) (string, []interface{}) {
	args := make([]interface{}, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	op := " IN ("
	if not {
		op = " NOT IN ("
	}
	return col + op + strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", ") + ")", args
}

// whereIn returns an "IN" clause on col, usable with qm.Or2. vals must not be empty.
func whereIn(col string, vals []string) qm.QueryMod {
	clause, args := inClause(col, false, vals)
	return qm.Where(clause, args...)
}

// whereNotIn returns a "NOT IN" clause on col. vals must not be empty.
func whereNotIn(col string, vals []string) qm.QueryMod {
	clause, args := inClause(col, true, vals)
	return qm.Where(clause, args...)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validUUIDs drops the ids that are not UUIDs, which postgres would reject.
func validUUIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

// trapNoRowsErr maps sql.ErrNoRows to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func checkAffected(n int64, err error, notFound error, msg string) error {
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
