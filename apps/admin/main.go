package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/announcement"
	"github.com/trezcool/lumina/core/course"
	logsvc "github.com/trezcool/lumina/services/logger"
	"github.com/trezcool/lumina/storage/database"
	pgrepos "github.com/trezcool/lumina/storage/database/postgres"
	"github.com/trezcool/lumina/storage/seed"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("building zap logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: pgrepos.NewUserRepository(db),
		seeder: seed.NewSeeder(
			course.NewCatalog(pgrepos.NewCourseRepository(db), logger),
			announcement.NewService(pgrepos.NewAnnouncementRepository(db)),
			pgrepos.NewForumRepository(db),
			logger,
		),
	}
	err = cli.run(os.Args)

	_ = db.Close()
	_ = logger.Sync()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		os.Exit(1)
	}
}
