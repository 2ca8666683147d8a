package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/storage/database/inmem"
	"github.com/trezcool/masomo-lms/tests"
)

func setup(t *testing.T) *commandLine {
	origReadPassword, origRunMigrations := readPasswordFunc, runMigrationsFunc
	t.Cleanup(func() {
		readPasswordFunc, runMigrationsFunc = origReadPassword, origRunMigrations
	})
	return &commandLine{usrRepo: inmemdb.NewUserRepository(inmemdb.Open())}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gotCommand string
	runMigrationsFunc = func(db *sql.DB, command string, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "quiz_attempt", "sql"}},
	})
	assert.Equal(t, "create", gotCommand)
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	testutil.CreateUser(t, cli.usrRepo, "Taken", "taken", "taken@test.cd", "", nil, true)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email required", args: []string{"adduser", "-username", "boss"}, pwd: "pwd", wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-username", "boss", "-email", "boss@test.cd", "-role", "king"}, pwd: "pwd", wantErr: errHelp},
		{name: "password required", args: []string{"adduser", "-username", "boss", "-email", "boss@test.cd"}, wantErr: errHelp},
		{name: "email taken", args: []string{"adduser", "-username", "boss", "-email", "taken@test.cd"}, pwd: "pwd", wantErr: user.ErrEmailExists},
		{name: "create admin", args: []string{"adduser", "-username", " Boss ", "-email", "BOSS@test.cd", "-name", "The Boss"}, pwd: "pwd"},
	})

	ctx := context.Background()
	boss, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "boss"})
	require.NoError(t, err)
	assert.Equal(t, "The Boss", boss.Name)
	assert.Equal(t, "boss@test.cd", boss.Email)
	assert.True(t, boss.IsActive)
	assert.True(t, boss.IsAdmin())
	assert.NoError(t, boss.CheckPassword("pwd"))

	t.Run("update existing", func(t *testing.T) {
		mockPassword("new-pwd")
		require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "boss", "-email", "boss@test.cd", "-role", "teacher"}))

		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "boss"})
		require.NoError(t, err)
		assert.Equal(t, boss.ID, usr.ID)
		assert.Equal(t, "The Boss", usr.Name)
		assert.Equal(t, user.TeacherRoles, usr.Roles)
		assert.NoError(t, usr.CheckPassword("new-pwd"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
	})

	refreshed, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("lol"))

	mockPassword("lmao")
	require.NoError(t, cli.run([]string{"admin", "resetpassword", "-username", "AWE@test.cd"}))
	refreshed, err = cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}
