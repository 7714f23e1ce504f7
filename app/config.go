// app/config.go
package app

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tool_lending_tracker/db"

	"github.com/joho/godotenv"
)

// Config 从环境变量读取
type Config struct {
	DBDriver   string
	DataDir    string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBDebug    bool

	RedisAddr string
	RedisPwd  string

	Port      string
	WebOrigin string
	AdminIDs  []string

	// AdminToken is an optional shared secret for admin login without the bot.
	AdminToken   string
	SessionTTL   time.Duration
	LoginCodeTTL time.Duration

	LoanDays    int
	OverdueDays int

	BotToken      string
	WebhookSecret string
	TelegramAPI   string

	AMQPURL string

	RateWindow time.Duration
	RateBurst  int
	PendingTTL time.Duration

	SeedCatalog bool
	LogLevel    string
}

// LoadConfig reads .env when present, then the environment.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
	return loadConfig()
}

func loadConfig() Config {
	get := func(k, def string) string {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			return def
		}
		return v
	}
	getInt := func(k string, def int) int {
		n, err := strconv.Atoi(get(k, ""))
		if err != nil || n <= 0 {
			return def
		}
		return n
	}
	getDur := func(k string, def time.Duration) time.Duration {
		d, err := time.ParseDuration(get(k, ""))
		if err != nil || d <= 0 {
			return def
		}
		return d
	}
	getBool := func(k string) bool {
		b, _ := strconv.ParseBool(get(k, "false"))
		return b
	}

	var admins []string
	for _, s := range strings.Split(os.Getenv("ADMIN_CHAT_IDS"), ",") {
		if t := strings.TrimSpace(s); t != "" {
			admins = append(admins, t)
		}
	}

	return Config{
		DBDriver:   strings.ToLower(get("DB_DRIVER", db.DriverSQLite)),
		DataDir:    get("DATA_DIR", "."),
		DBHost:     get("DB_HOST", "127.0.0.1"),
		DBUser:     get("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     get("DB_NAME", "tools"),
		DBPort:     get("DB_PORT", "5432"),
		DBDebug:    getBool("DB_DEBUG"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPwd:  os.Getenv("REDIS_PASSWORD"),

		Port:      get("PORT", "8000"),
		WebOrigin: get("WEB_ORIGIN", "http://localhost:3000"),
		AdminIDs:  admins,

		AdminToken:   os.Getenv("ADMIN_TOKEN"),
		SessionTTL:   getDur("SESSION_TTL", 24*time.Hour),
		LoginCodeTTL: getDur("LOGIN_CODE_TTL", 5*time.Minute),

		LoanDays:    getInt("LOAN_DAYS", db.DefaultLoanDays),
		OverdueDays: getInt("OVERDUE_DAYS", 7),

		BotToken:      os.Getenv("BOT_TOKEN"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		TelegramAPI:   os.Getenv("TELEGRAM_API_URL"),

		AMQPURL: os.Getenv("AMQP_URL"),

		RateWindow: getDur("RATE_LIMIT_WINDOW", time.Second),
		RateBurst:  getInt("RATE_LIMIT_BURST", 5),
		PendingTTL: getDur("PENDING_TTL", 30*time.Minute),

		SeedCatalog: getBool("SEED_CATALOG"),
		LogLevel:    get("LOG_LEVEL", "info"),
	}
}

// IsAdmin is the authorization predicate for admin-only actions.
func (c Config) IsAdmin(callerID string) bool {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return false
	}
	for _, id := range c.AdminIDs {
		if id == callerID {
			return true
		}
	}
	return false
}

func (c Config) IsAdminChat(chatID int64) bool {
	return c.IsAdmin(strconv.FormatInt(chatID, 10))
}

// AdminChatIDs returns the numeric admin ids, the chats that get bot notifications.
func (c Config) AdminChatIDs() []int64 {
	var out []int64
	for _, id := range c.AdminIDs {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func (c Config) DBOptions() db.Options {
	opts := db.Options{Driver: c.DBDriver, Debug: c.DBDebug}
	switch c.DBDriver {
	case db.DriverPostgres:
		opts.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
	default:
		opts.Driver = db.DriverSQLite
		opts.DSN = filepath.Join(c.DataDir, "tools.db")
	}
	return opts
}

// BotEnabled reports whether the Telegram webhook can be served.
func (c Config) BotEnabled() bool { return c.BotToken != "" && c.WebhookSecret != "" }
