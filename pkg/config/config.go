package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Assistant   AssistantConfig   `mapstructure:"assistant"`
	FDC         FDCConfig         `mapstructure:"fdc"`
	Nutritionix NutritionixConfig `mapstructure:"nutritionix"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Release        bool          `mapstructure:"release"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// TurnTimeout bounds one chat turn. Zero falls back to server.request_timeout.
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	URL       string        `mapstructure:"url"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience"`
	// Clients maps a basic-auth client id to its accepted secrets.
	Clients map[string][]string `mapstructure:"clients"`
}

type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	OrgID       string `mapstructure:"org_id"`
	AssistantID string `mapstructure:"assistant_id"`
}

type AssistantConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxPollDuration time.Duration `mapstructure:"max_poll_duration"`
	FetchMaxTries   uint          `mapstructure:"fetch_max_tries"`
}

type FDCConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NutritionixConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	AppID   string        `mapstructure:"app_id"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// envOverrides maps the deployment's environment variables onto config keys.
var envOverrides = map[string]string{
	"PORT":            "server.port",
	"TELEGRAM_TOKEN":  "telegram.token",
	"OPENAI_API_KEY":  "openai.api_key",
	"NUTROBO_ASST_ID": "openai.assistant_id",
	"FDC_API_KEY":     "fdc.api_key",
	"NTRX_APP_ID":     "nutritionix.app_id",
	"NTRX_API_KEY":    "nutritionix.api_key",
	"REDIS_URL":       "redis.url",
	"JWT_SECRET":      "auth.jwt_secret",
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.release", false)
	v.SetDefault("log.development", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "nutrobo")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "nutrobo.db")
	v.SetDefault("telegram.turn_timeout", time.Duration(0))
	v.SetDefault("redis.lock_ttl", time.Minute)
	v.SetDefault("redis.key_prefix", "nutrobo:thread-lock:")
	v.SetDefault("assistant.poll_interval", time.Second)
	v.SetDefault("assistant.max_poll_duration", time.Duration(0))
	v.SetDefault("assistant.fetch_max_tries", 3)
	v.SetDefault("fdc.base_url", "https://api.nal.usda.gov/fdc")
	v.SetDefault("fdc.timeout", 10*time.Second)
	v.SetDefault("nutritionix.base_url", "https://trackapi.nutritionix.com")
	v.SetDefault("nutritionix.timeout", 10*time.Second)
}

// LoadConfig reads .env, the optional YAML file at path and the environment,
// in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	for env, key := range envOverrides {
		if value, ok := os.LookupEnv(env); ok && value != "" {
			v.Set(key, value)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.SQLitePath = config.Database.SQLitePath
		config.Database = dbConfig
	}

	if config.Telegram.TurnTimeout <= 0 {
		config.Telegram.TurnTimeout = config.Server.RequestTimeout
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.OpenAI.APIKey == "" {
		return errors.New("openai.api_key (OPENAI_API_KEY) is required")
	}
	if c.OpenAI.AssistantID == "" {
		return errors.New("openai.assistant_id (NUTROBO_ASST_ID) is required")
	}
	if c.Redis.URL != "" {
		// The thread lock is not renewed, so it must outlive the longest turn.
		longest := max(c.Server.RequestTimeout, c.Telegram.TurnTimeout)
		if c.Redis.LockTTL <= longest {
			return fmt.Errorf("redis.lock_ttl (%s) must exceed the longest turn timeout (%s)", c.Redis.LockTTL, longest)
		}
	}
	return nil
}
