package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/kasraf/reelbase/internal/activity"
	"github.com/kasraf/reelbase/internal/auth"
	"github.com/kasraf/reelbase/internal/config"
	"github.com/kasraf/reelbase/internal/database"
	"github.com/kasraf/reelbase/internal/docstore"
	"github.com/kasraf/reelbase/internal/handler"
	"github.com/kasraf/reelbase/internal/queue"
	"github.com/kasraf/reelbase/internal/router"
	"github.com/kasraf/reelbase/internal/sqlstore"
	"github.com/kasraf/reelbase/internal/utils"
)

// main is the single place clients are constructed and the backend mode is
// resolved.  Everything below receives its dependencies by injection.
func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	verifier := utils.NewIdentityVerifier(cfg.IdentitySecret)

	var (
		store auth.Store
		sink  activity.Sink
		read  activity.Reader
	)
	switch cfg.Mode {
	case config.ModeDocument:
		client, err := database.OpenMongo(cfg.MongoURI)
		if err != nil {
			log.Fatalf("connect mongo: %v", err)
		}
		db := client.Database(cfg.MongoDB)
		store = docstore.New(db, verifier, cfg.BcryptCost)
		al := docstore.NewActivityLog(db)
		sink, read = al, al
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("connect mysql: %v", err)
		}
		store = sqlstore.New(db, verifier, cfg.JWTSecret, cfg.SessionTTLDays, cfg.BcryptCost)
		al := sqlstore.NewActivityLog(db)
		sink, read = al, al
	}

	var logger *activity.Logger
	if cfg.AMQPURL != "" {
		pub, err := queue.NewPublisher(cfg.AMQPURL)
		if err != nil {
			// Activity logging is best-effort; fall back to direct writes
			// rather than refusing to start.
			log.Printf("amqp unavailable, writing activity directly: %v", err)
			logger = activity.NewLogger(sink)
		} else {
			logger = activity.NewPublishingLogger(pub)
			go queue.StartActivityConsumer(cfg.AMQPURL, sink)
		}
	} else {
		logger = activity.NewLogger(sink)
	}

	secureCookie := cfg.Env == "production"

	e := echo.New()
	router.Register(e, router.Deps{
		Store:   store,
		Auth:    handler.NewAuthHandler(store, logger, secureCookie),
		Profile: handler.NewProfileHandler(store, logger),
		Admin:   handler.NewAdminHandler(read),
		RateCfg: config.LoadRateLimitConfig(),
		Redis:   config.NewRedisClient(),
	})

	log.Printf("listening on :%s (env=%s mode=%s)", cfg.Port, cfg.Env, cfg.Mode)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
