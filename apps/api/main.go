package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	dig_container "github.com/trezcool/lumina/apps/api/di/dig"
	echoapi "github.com/trezcool/lumina/apps/api/echo"
	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/announcement"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/forum"
	"github.com/trezcool/lumina/core/user"
	appfs "github.com/trezcool/lumina/fs"
	logsvc "github.com/trezcool/lumina/services/logger"
	"github.com/trezcool/lumina/services/scheduler"
	"github.com/trezcool/lumina/storage/seed"
)

func main() {
	c := dig_container.New(core.NewConfig)

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger *logsvc.RollbarLogger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sqlx.DB,
		rdb *goredis.Client,
		validate *validator.Validate,
		translator ut.Translator,
		catalog *course.Catalog,
		announcements *announcement.Service,
		posts forum.Repository,
		jobs *scheduler.Scheduler,
		server *echoapi.Server,
	) {
		defer func() { _ = apiLogger.Sync() }()

		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.InitValidators(validate, translator)
		user.InitValidators(validate, translator)

		core.ParseEmailTemplates(appfs.FS, conf, apiLogger)

		user.LoadCommonPasswords(appfs.FS, apiLogger)

		dbLogger := dbLoggerParam.Logger
		if db != nil {
			defer func() {
				if err := db.Close(); err != nil {
					dbLogger.Fatal("Failed to close", err)
				}
			}()
		} else {
			// the memory storage starts from the bundled catalog
			seedMemoryStorage(apiLogger, catalog, announcements, posts)
		}
		if rdb != nil {
			defer func() { _ = rdb.Close() }()
		}
		defer apiLogger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		expvar.NewString("storage").Set(conf.Storage)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start Scheduler & API Service

		jobs.Start()

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}

			if err := jobs.Stop(ctx); err != nil {
				apiLogger.Warn(fmt.Sprintf("scheduled jobs still running: %v", err), err)
			}
		}
	}))
}

func seedMemoryStorage(logger core.Logger, catalog *course.Catalog, announcements *announcement.Service, posts forum.Repository) {
	cat, err := seed.Load(appfs.FS, seed.DefaultPath)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading seed catalog: %v", err), err)
	}
	res, err := seed.NewSeeder(catalog, announcements, posts, logger).Apply(context.Background(), cat)
	if err != nil {
		logger.Fatal(fmt.Sprintf("seeding memory storage: %v", err), err)
	}
	logger.Info(fmt.Sprintf("memory storage seeded: %d courses, %d announcements, %d posts", res.Courses, res.Announcements, res.Posts))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
