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
	"github.com/trezcool/masomo-lms/core/user"
)

type userRow struct {
	ID           string            `boil:"id"`
	Name         string            `boil:"name"`
	Username     null.String       `boil:"username"`
	Email        null.String       `boil:"email"`
	IsActive     bool              `boil:"is_active"`
	Roles        types.StringArray `boil:"roles"`
	PasswordHash []byte            `boil:"password_hash"`
	CreatedAt    time.Time         `boil:"created_at"`
	UpdatedAt    time.Time         `boil:"updated_at"`
	LastLogin    null.Time         `boil:"last_login"`
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) boil(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		Roles:        roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unboil(row userRow) user.User {
	roles := []string(row.Roles)
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		IsActive:     row.IsActive,
		Roles:        roles,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	return usr
}

func (repo userRepository) unboilSlice(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unboil(row))
	}
	return users
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	if username == "" && email == "" {
		return nil
	}

	var conds []qm.QueryMod
	if username != "" {
		conds = append(conds, qm.Or2(qm.Where("username = ?", username)))
	}
	if email != "" {
		conds = append(conds, qm.Or2(qm.Where("email = ?", email)))
	}
	mods := []qm.QueryMod{qm.Expr(conds...)}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		if ids = validUUIDs(ids); len(ids) > 0 {
			mods = append(mods, whereNotIn("id", ids))
		}
	}

	var rows []userRow
	if err := newQuery(tableUser, mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	if len(rows) > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.boil(usr)
	_, err := execRaw(
		ctx, repo.exec,
		`INSERT INTO "user" (id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.ID, row.Name, row.Username, row.Email, row.IsActive, row.Roles, row.PasswordHash,
		row.CreatedAt, row.UpdatedAt, row.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var mods []qm.QueryMod

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			mods = append(mods, qm.Expr(qm.Where("name ILIKE ? OR username ILIKE ? OR email ILIKE ?", val, val, val)))
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roleMods := make([]qm.QueryMod, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roleMods = append(roleMods, qm.Or2(qm.Where(
					`id IN (SELECT id FROM "user", UNNEST(roles) user_role WHERE user_role ILIKE ?)`, role+"%")))
			}
			mods = append(mods, qm.Expr(roleMods...))
		}
		if filter.IsActive != nil {
			mods = append(mods, qm.Where("is_active = ?", *filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			mods = append(mods, qm.Where("created_at >= ?", filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			mods = append(mods, qm.Where("created_at <= ?", filter.CreatedTo.UTC()))
		}
	}
	mods = append(mods, orderBy(ordering, "created_at DESC"))

	var rows []userRow
	if err := newQuery(tableUser, mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.unboilSlice(rows), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var mod qm.QueryMod
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		mod = qm.Where("id = ?", filter.ID)
	case filter.Username != "":
		mod = qm.Where("username = ?", filter.Username)
	case filter.Email != "":
		mod = qm.Where("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		mod = qm.Where("username = ? OR email = ?", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := newQuery(tableUser, mod, qm.Limit(1)).Bind(ctx, repo.exec, &row); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) GetUsersByID(ctx context.Context, ids ...string) ([]user.User, error) {
	if ids = validUUIDs(ids); len(ids) == 0 {
		return []user.User{}, nil
	}
	var rows []userRow
	if err := newQuery(tableUser, whereIn("id", ids), qm.OrderBy("name")).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "getting users by ID")
	}
	return repo.unboilSlice(rows), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := repo.boil(usr)
	n, err := execRaw(
		ctx, repo.exec,
		`UPDATE "user" SET name = $2, username = $3, email = $4, is_active = $5, roles = $6,
		password_hash = $7, updated_at = $8, last_login = $9 WHERE id = $1`,
		row.ID, row.Name, row.Username, row.Email, row.IsActive, row.Roles, row.PasswordHash,
		row.UpdatedAt, row.LastLogin,
	)
	if err = checkAffected(n, err, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return repo.unboil(row), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	if ids = validUUIDs(ids); len(ids) == 0 {
		return 0, nil
	}
	cnt, err := deleteAll(ctx, repo.exec, tableUser, whereIn("id", ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
