package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	GatewayBridge = "bridge"
	GatewayPaper  = "paper"
)

type Config struct {
	TradeKey string
	HTTPAddr string
	WSAddr   string

	LogLevel   string
	LogFormat  string
	LokiAddr   string
	ReportCron string
	TimeZone   string

	DB        *DB
	Gateway   *Gateway
	Reconcile *Reconcile
	Telegram  *Telegram
	Mongo     *Mongo
}

type DB struct {
	Driver     string
	Host       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

type Gateway struct {
	Mode           string
	URL            string
	APIKey         string
	SecretKey      string
	CallTimeout    time.Duration
	AcquireTimeout time.Duration
}

type Reconcile struct {
	Interval         time.Duration
	Backoff          time.Duration
	TrailDistance    float64
	ProfitMultiplier float64
}

type Telegram struct {
	APIToken string
	ChatID   int64
	Rate     float64
}

type Mongo struct {
	URI      string
	User     string
	Password string
	DBName   string
	Symbols  []string
}

var ErrEnvNotFound = errors.New("err env not found")

// loadConfig reads confFileName into the environment, when it exists, and
// builds the Config from the environment.
func loadConfig(confFileName string) (*Config, error) {
	if err := godotenv.Load(confFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var (
		cfg = Config{
			DB:        &DB{},
			Gateway:   &Gateway{},
			Reconcile: &Reconcile{},
			Telegram:  &Telegram{},
			Mongo:     &Mongo{},
		}
		err error
	)

	if cfg.TradeKey, err = cfg.set("TRADE_KEY"); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = cfg.get("HTTP_ADDR", ":5000")
	cfg.WSAddr = cfg.get("WS_ADDR", ":8765")
	cfg.LogLevel = cfg.get("LOG_LEVEL", "INFO")
	cfg.LogFormat = cfg.get("LOG_FORMAT", "text")
	cfg.LokiAddr = cfg.get("LOKI_ADDR", "")
	cfg.ReportCron = cfg.get("REPORT_CRON", "")
	cfg.TimeZone = cfg.get("REPORT_TZ", "UTC")

	cfg.DB.Driver = cfg.get("DB_DRIVER", "sqlite3")
	switch cfg.DB.Driver {
	case "postgres":
		for key, dst := range map[string]*string{
			"PG_HOST":     &cfg.DB.Host,
			"PG_USER":     &cfg.DB.User,
			"PG_PASSWORD": &cfg.DB.Password,
			"PG_DBNAME":   &cfg.DB.DBName,
		} {
			if *dst, err = cfg.set(key); err != nil {
				return nil, err
			}
		}
		cfg.DB.SSLMode = cfg.get("PG_SSL_MODE", "disable")
	case "sqlite3":
		cfg.DB.SQLitePath = cfg.get("SQLITE_PATH", "./store.db")
	default:
		return nil, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DB.Driver)
	}

	cfg.Gateway.Mode = cfg.get("GATEWAY_MODE", GatewayBridge)
	switch cfg.Gateway.Mode {
	case GatewayBridge:
		if cfg.Gateway.URL, err = cfg.set("BRIDGE_URL"); err != nil {
			return nil, err
		}
		cfg.Gateway.APIKey = cfg.get("BRIDGE_API_KEY", "")
		if cfg.Gateway.SecretKey, err = cfg.set("BRIDGE_SECRET_KEY"); err != nil {
			return nil, err
		}
	case GatewayPaper:
	default:
		return nil, fmt.Errorf("GATEWAY_MODE: unsupported mode %q", cfg.Gateway.Mode)
	}
	if cfg.Gateway.CallTimeout, err = cfg.duration("GATEWAY_CALL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Gateway.AcquireTimeout, err = cfg.duration("GATEWAY_ACQUIRE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.Reconcile.Interval, err = cfg.duration("RECONCILE_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.Reconcile.Backoff, err = cfg.duration("RECONCILE_BACKOFF", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Reconcile.TrailDistance, err = cfg.float("TRAIL_DISTANCE", 0.0010); err != nil {
		return nil, err
	}
	if cfg.Reconcile.ProfitMultiplier, err = cfg.float("PROFIT_MULTIPLIER", 100000); err != nil {
		return nil, err
	}

	cfg.Telegram.APIToken = cfg.get("TELEGRAM_API_TOKEN", "")
	if cfg.Telegram.APIToken != "" {
		chatID, err := cfg.set("TELEGRAM_CHAT_ID")
		if err != nil {
			return nil, err
		}
		if cfg.Telegram.ChatID, err = strconv.ParseInt(chatID, 10, 64); err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
	}
	if cfg.Telegram.Rate, err = cfg.float("TELEGRAM_RATE", 1); err != nil {
		return nil, err
	}

	cfg.Mongo.URI = cfg.get("MONGO_URI", "")
	if cfg.Mongo.URI != "" {
		cfg.Mongo.User = cfg.get("MONGO_USER", "")
		cfg.Mongo.Password = cfg.get("MONGO_PASSWORD", "")
		cfg.Mongo.DBName = cfg.get("MONGO_DBNAME", "ecb")
		for _, s := range strings.Split(cfg.get("MONGO_SYMBOLS", ""), ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Mongo.Symbols = append(cfg.Mongo.Symbols, strings.ToUpper(s))
			}
		}
	}

	return &cfg, nil
}

func (d *DB) DSN() string {
	if d.Driver == "sqlite3" {
		return d.SQLitePath + "?_foreign_keys=on"
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.User,
		d.Password,
		d.DBName,
		d.SSLMode)
}

func (c *Config) set(key string) (string, error) {
	if os.Getenv(key) == "" {
		return "", fmt.Errorf("%s: %w", key, ErrEnvNotFound)
	}

	return os.Getenv(key), nil
}

func (c *Config) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *Config) duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}

	return d, nil
}

func (c *Config) float(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}

	return f, nil
}
