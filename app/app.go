package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"tool_lending_tracker/db"
	"tool_lending_tracker/events"
	"tool_lending_tracker/lending"
	"tool_lending_tracker/session"
	"tool_lending_tracker/telegram"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router  *gin.Engine
	DB      *gorm.DB
	RDB     *redis.Client
	Log     *zap.Logger
	Config  Config
	Tracker *lending.Tracker
	Pub     events.Publisher
	Bot     telegram.Sender

	Limiter *session.Limiter
	Chats   *session.ChatStore
	Returns *session.ReturnStore

	Sessions *session.AppSessionStore
	Logins   *session.LoginCodes
}

func MustNew() *App {
	cfg := LoadConfig()
	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	a, err := New(cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	return a
}

// New opens the store, Redis and the broker named by cfg.
func New(cfg Config, logger *zap.Logger) (*App, error) {
	conn, err := db.Open(cfg.DBOptions())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	var pub events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.DialAMQP(cfg.AMQPURL)
		if err != nil {
			logger.Warn("event publishing disabled", zap.Error(err))
		} else {
			pub = p
		}
	}

	var bot telegram.Sender
	if cfg.BotEnabled() {
		bot = telegram.NewService(cfg.BotToken, cfg.TelegramAPI)
	}

	a := Assemble(cfg, logger, conn, rdb, pub, bot)
	if cfg.SeedCatalog {
		BootstrapCatalog(context.Background(), a.Tracker, logger)
	}
	return a, nil
}

// Assemble wires already opened dependencies; rdb and bot may be nil.
func Assemble(cfg Config, logger *zap.Logger, conn *gorm.DB, rdb *redis.Client, pub events.Publisher, bot telegram.Sender) *App {
	repo := db.NewRepo(conn)
	repo.LoanDays = cfg.LoanDays
	tracker := lending.NewTracker(repo, pub, logger)
	if cfg.OverdueDays > 0 {
		tracker.OverdueDays = cfg.OverdueDays
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))
	if cfg.WebOrigin != "" {
		useCORS(r, cfg.WebOrigin)
	}
	r.Use(Caller())

	a := &App{
		Router: r, DB: conn, RDB: rdb, Log: logger, Config: cfg,
		Tracker: tracker, Pub: pub, Bot: bot,
	}
	if rdb != nil {
		a.Limiter = session.NewLimiter(rdb, cfg.RateWindow, cfg.RateBurst)
		a.Chats = session.NewChatStore(rdb, cfg.PendingTTL)
		a.Returns = session.NewReturnStore(rdb, cfg.PendingTTL)
		a.Sessions = session.NewAppSessionStore(rdb, cfg.SessionTTL)
		a.Logins = session.NewLoginCodes(rdb, cfg.LoginCodeTTL)
	}
	return a
}

func (a *App) Close() {
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
	if a.Pub != nil {
		_ = a.Pub.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.Log.Sync()
}
