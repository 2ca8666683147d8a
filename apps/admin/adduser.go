package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/user"
)

var roleFlags = map[string][]string{
	"admin":   user.AdminRoles,
	"teacher": user.TeacherRoles,
	"student": user.StudentRoles,
}

// addUser updates or creates an active user.User with the given roles.
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{Username: uname, CreatedAt: now, UpdatedAt: now}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	usr.Email = email
	usr.Roles = roles
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		if err = cli.usrRepo.CheckUsernameUniqueness(ctx, usr.Username, usr.Email); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}
	if err = cli.usrRepo.CheckUsernameUniqueness(ctx, usr.Username, usr.Email, usr); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
