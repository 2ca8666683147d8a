package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-lms/core"
)

const (
	orderingParam = "ordering"
	limitParam    = "limit"

	errInvalidBool = "must be a boolean"
	errInvalidTime = "must be an RFC 3339 date"
	errInvalidInt  = "must be a positive integer"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the "ordering" query param; fields not in allowed are ignored.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	ord.Orderings = core.ParseOrdering(ctx.QueryParam(orderingParam), allowed...)
}

func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewFieldError(name, errInvalidBool)
	}
	return &b, nil
}

func queryTime(ctx echo.Context, name string) (time.Time, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, core.NewFieldError(name, errInvalidTime)
	}
	return t.UTC(), nil
}

// queryInt returns def when the param is missing.
func queryInt(ctx echo.Context, name string, def int) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return def, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return 0, core.NewFieldError(name, errInvalidInt)
	}
	return i, nil
}
