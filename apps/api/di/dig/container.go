package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"google.golang.org/genai"

	echoapi "github.com/trezcool/lumina/apps/api/echo"
	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/announcement"
	"github.com/trezcool/lumina/core/assistant"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/forum"
	"github.com/trezcool/lumina/core/progress"
	"github.com/trezcool/lumina/core/reflection"
	"github.com/trezcool/lumina/core/user"
	emailsvc "github.com/trezcool/lumina/services/email"
	"github.com/trezcool/lumina/services/gemini"
	"github.com/trezcool/lumina/services/judge"
	logsvc "github.com/trezcool/lumina/services/logger"
	"github.com/trezcool/lumina/services/ratelimit"
	"github.com/trezcool/lumina/services/scheduler"
	"github.com/trezcool/lumina/storage/database"
	inmemdb "github.com/trezcool/lumina/storage/database/inmem"
	pgrepos "github.com/trezcool/lumina/storage/database/postgres"
)

const StorageMemory = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	Repositories struct {
		dig.Out
		Users         user.Repository
		Courses       course.Repository
		Progress      progress.Repository
		Posts         forum.Repository
		Announcements announcement.Repository
	}

	// Limiter is the unlock attempt limiter, with its sweeper when it keeps state in memory.
	Limiter struct {
		dig.Out
		Limiter progress.AttemptLimiter
		Sweeper scheduler.Sweeper
	}

	SchedulerParams struct {
		dig.In
		Conf    *core.Config
		Users   *user.Service
		MailSvc core.EmailService
		Logger  core.Logger
		Sweeper scheduler.Sweeper
	}

	ServerParams struct {
		dig.In
		Conf            *core.Config
		Logger          core.Logger
		UserSvc         *user.Service
		Catalog         *course.Catalog
		ProgressSvc     *progress.Service
		Gate            *reflection.Gate
		ForumSvc        *forum.Service
		AnnouncementSvc *announcement.Service
		Assistant       *assistant.Assistant
		Validate        *validator.Validate
		Translator      ut.Translator
	}
)

func newRollbarLogger(conf *core.Config, prefix string) *logsvc.RollbarLogger {
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("building zap logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named(prefix), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newLogger(conf *core.Config) *logsvc.RollbarLogger {
	return newRollbarLogger(conf, "api")
}

func newDBLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "db")
}

// newDB opens (creating and migrating if needed) the Postgres database.
// It returns nil with the memory storage.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	if conf.Storage == StorageMemory {
		return nil
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(db *sqlx.DB) Repositories {
	if db == nil {
		mem := inmemdb.New()
		return Repositories{
			Users:         inmemdb.NewUserRepository(mem),
			Courses:       inmemdb.NewCourseRepository(mem),
			Progress:      inmemdb.NewProgressRepository(mem),
			Posts:         inmemdb.NewForumRepository(mem),
			Announcements: inmemdb.NewAnnouncementRepository(mem),
		}
	}
	return Repositories{
		Users:         pgrepos.NewUserRepository(db),
		Courses:       pgrepos.NewCourseRepository(db),
		Progress:      pgrepos.NewProgressRepository(db),
		Posts:         pgrepos.NewForumRepository(db),
		Announcements: pgrepos.NewAnnouncementRepository(db),
	}
}

// newRedis connects to Redis, or returns nil when no address is configured.
func newRedis(conf *core.Config, logger core.Logger) *goredis.Client {
	if conf.Redis.Address == "" {
		return nil
	}
	rdb, err := ratelimit.NewRedisClient(context.Background(), conf.Redis)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	return rdb
}

func newLimiter(conf *core.Config, rdb *goredis.Client) Limiter {
	if rdb == nil {
		mem := ratelimit.NewMemoryLimiter(conf.Unlock)
		return Limiter{Limiter: mem, Sweeper: mem}
	}
	return Limiter{Limiter: ratelimit.NewRedisLimiter(rdb, conf.Unlock)}
}

// newGenAIClient returns nil when Gemini is not configured; the app then runs on the rule-based judge.
func newGenAIClient(conf *core.Config, logger core.Logger) *genai.Client {
	client, err := gemini.NewClient(context.Background(), conf.GenAI)
	if err != nil {
		logger.Error(fmt.Sprintf("gemini disabled: %v", err), err)
		return nil
	}
	return client
}

func newJudge(conf *core.Config, client *genai.Client) reflection.Judge {
	rules := judge.NewRules(conf.Reflection)
	if client == nil {
		return rules
	}
	return gemini.NewJudge(client, conf.GenAI.Model, rules)
}

func newAssistant(conf *core.Config, client *genai.Client, logger core.Logger) *assistant.Assistant {
	var model assistant.Model
	if client != nil {
		model = gemini.NewChatModel(client, conf.GenAI.Model)
	}
	return assistant.New(model, logger)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newGate(jdg reflection.Judge, progSvc *progress.Service, logger core.Logger) *reflection.Gate {
	return reflection.NewGate(jdg, progSvc, logger)
}

func newScheduler(in SchedulerParams) (*scheduler.Scheduler, error) {
	sched := scheduler.New(in.Users, in.MailSvc, in.Logger)
	if err := sched.Register(in.Conf.Jobs, in.Sweeper); err != nil {
		return nil, err
	}
	return sched, nil
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		UserSvc:         p.UserSvc,
		Catalog:         p.Catalog,
		ProgressSvc:     p.ProgressSvc,
		Gate:            p.Gate,
		ForumSvc:        p.ForumSvc,
		AnnouncementSvc: p.AnnouncementSvc,
		Assistant:       p.Assistant,
		Validate:        p.Validate,
		Translator:      p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(func(l *logsvc.RollbarLogger) core.Logger { return l }))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newRedis))
	must(c.Provide(newLimiter))
	must(c.Provide(newGenAIClient))
	must(c.Provide(newJudge))
	must(c.Provide(newAssistant))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewCatalog))
	must(c.Provide(progress.NewService))
	must(c.Provide(newGate))
	must(c.Provide(forum.NewService))
	must(c.Provide(announcement.NewService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
