package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	BroadcastLocal = "local"
	BroadcastRedis = "redis"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug" validate:"oneof=debug info warn error"`

	StoreBackend     string `env:"STORE_BACKEND"     envDefault:"memory" validate:"oneof=memory postgres"`
	BroadcastBackend string `env:"BROADCAST_BACKEND" envDefault:"local"  validate:"oneof=local redis"`
	SeedDemoData     bool   `env:"SEED_DEMO_DATA"    envDefault:"true"`

	RedisAuctionsHost     string `env:"REDIS_AUCTIONS_HOST"     envDefault:"localhost"`
	RedisAuctionsPort     uint16 `env:"REDIS_AUCTIONS_PORT"     envDefault:"6379"   validate:"min=1000,max=65535"`
	RedisAuctionsPassword string `env:"REDIS_AUCTIONS_PASSWORD"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"auction_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"auction_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"auction_db"`
	RunMigrations    bool   `env:"RUN_MIGRATIONS"    envDefault:"true"`

	// Empty disables settlement notifications.
	AmqpURL string `env:"AMQP_URL"`

	JwtSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me" validate:"min=8"`

	BidMinIncrement    int64         `env:"BID_MIN_INCREMENT"    envDefault:"1000" validate:"gt=0"`
	BidLockTimeout     time.Duration `env:"BID_LOCK_TIMEOUT"     envDefault:"2s"   validate:"gt=0"`
	BidMaxRetries      int           `env:"BID_MAX_RETRIES"      envDefault:"3"    validate:"min=1,max=10"`
	AntiSnipeWindow    time.Duration `env:"ANTI_SNIPE_WINDOW"    envDefault:"2m"   validate:"gt=0"`
	AntiSnipeExtension time.Duration `env:"ANTI_SNIPE_EXTENSION" envDefault:"2m"   validate:"gt=0"`
	SchedulerInterval  time.Duration `env:"SCHEDULER_INTERVAL"   envDefault:"2s"   validate:"gt=0"`
	SubscriberBuffer   int           `env:"SUBSCRIBER_BUFFER"    envDefault:"64"   validate:"min=1"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	// Parse config from environment variables
	if err := env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
