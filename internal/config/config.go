// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Stripe                  `yaml:"stripe"`
	Ledger                  `yaml:"ledger"`
	Reconciler              `yaml:"reconciler"`
	VideoAPI                `yaml:"video_api"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"5"`
	RateBurst   int           `yaml:"rate_burst" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	PlansTTL     time.Duration `yaml:"plans_ttl" env-default:"10m"`
}

// JWTToken структура для проверки токенов провайдера идентификации
type JWTToken struct {
	JWTSecretKey string `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY" env-required:"true"`
	Audience     string `yaml:"audience" env-default:"authenticated"`
}

// RabbitMQ структура для подключения к брокеру событий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Stripe структура для работы с платежным провайдером
type Stripe struct {
	StripeSecretKey string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	SuccessURL      string `yaml:"success_url" env:"STRIPE_SUCCESS_URL" env-default:"http://localhost:3000/payment-success?session_id={CHECKOUT_SESSION_ID}"`
	CancelURL       string `yaml:"cancel_url" env:"STRIPE_CANCEL_URL" env-default:"http://localhost:3000/pricing"`
}

// Ledger структура с политиками учета кредитов
type Ledger struct {
	// UpgradePolicy: "carryover" или "reject".
	UpgradePolicy   string `yaml:"upgrade_policy" env:"LEDGER_UPGRADE_POLICY" env-default:"carryover"`
	DebitMaxRetries int    `yaml:"debit_max_retries" env-default:"3"`
}

// Reconciler структура для фоновых задач сверки платежей и уведомлений
type Reconciler struct {
	Interval       time.Duration `yaml:"interval" env-default:"5m"`
	GracePeriod    time.Duration `yaml:"grace_period" env-default:"5m"`
	BatchSize      int           `yaml:"batch_size" env-default:"100"`
	NotifyInterval time.Duration `yaml:"notify_interval" env-default:"12h"`
	NotifyWindow   time.Duration `yaml:"notify_window" env-default:"24h"`
}

// VideoAPI структура для подключения к внешнему API генерации видео
type VideoAPI struct {
	BaseURL          string        `yaml:"base_url" env:"VIDEO_API_URL"`
	Timeout          time.Duration `yaml:"timeout" env-default:"30s"`
	FailureThreshold uint32        `yaml:"failure_threshold" env-default:"5"`
	OpenTimeout      time.Duration `yaml:"open_timeout" env-default:"30s"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, прочитанный из файла CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Load читает конфиг по указанному пути.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if cfg.UpgradePolicy != "carryover" && cfg.UpgradePolicy != "reject" {
		return nil, fmt.Errorf("unknown ledger upgrade policy: %q", cfg.UpgradePolicy)
	}
	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  PlansTTL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"RabbitMQ:\n"+
			"  Enabled: %t\n"+
			"Ledger:\n"+
			"  UpgradePolicy: %s\n"+
			"  DebitMaxRetries: %d\n"+
			"Reconciler:\n"+
			"  Interval: %s\n"+
			"  GracePeriod: %s\n",
		c.Env,
		c.MigrationsPath,
		c.AddressRedis,
		c.DB,
		c.PlansTTL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.RabbitMQURL != "",
		c.UpgradePolicy,
		c.DebitMaxRetries,
		c.Interval,
		c.GracePeriod,
	)
}
