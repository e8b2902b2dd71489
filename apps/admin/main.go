package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/mwalimux/elimisha/core"
	emailsvc "github.com/mwalimux/elimisha/services/email"
	"github.com/mwalimux/elimisha/storage/database"
	pgrepos "github.com/mwalimux/elimisha/storage/database/postgres"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())
	sdb := sqlx.NewDb(db, "postgres")

	// start CLI
	cli := commandLine{
		db:         db,
		usrRepo:    pgrepos.NewUserRepository(sdb),
		enrollRepo: pgrepos.NewEnrollRepository(sdb),
		assessRepo: pgrepos.NewAssessRepository(sdb),
		mailSvc:    emailsvc.NewConsoleService(conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
