package main

import (
	"fmt"
	"os"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/services/logger"
	"github.com/trezcool/masomo-lms/storage/database"
	"github.com/trezcool/masomo-lms/storage/database/sqlboiler"
)

func main() {
	conf := core.NewConfig()

	logger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger.Enable(!conf.Debug)

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal(fmt.Sprintf("connecting to database: %v", err), err)
	}

	cli := commandLine{
		db:      db.DB,
		usrRepo: boiledrepos.NewUserRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Sync()

	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
