// Package config provides the structures and loader for the application
// configuration. Secrets and API keys live here and are injected into each
// component at construction time instead of being read from the environment
// deep inside the logic, so tests can substitute fakes.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the top-level configuration.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitConnection        `yaml:"rabbit_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Stripe                  `yaml:"stripe"`
	Access                  `yaml:"access"`
}

// HTTPServer holds server settings.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection holds redis settings.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitConnection holds the notification broker settings. An empty address
// disables publishing.
type RabbitConnection struct {
	AddressRabbit string        `yaml:"addressrabbit"`
	RetriesRabbit int           `yaml:"retries" env-default:"5"`
	DelayRabbit   time.Duration `yaml:"delay" env-default:"2s"`
}

// JWTToken holds session token settings.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"720h"`
}

// Stripe holds the billing provider settings. Plans maps a purchasable price
// id to its trial length in days; the server is the source of truth for what
// can be bought.
type Stripe struct {
	SecretKey           string           `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret       string           `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	AppBaseURL          string           `yaml:"app_base_url" env-default:"http://localhost:8080"`
	ResolveRetryDelay   time.Duration    `yaml:"resolve_retry_delay" env-default:"2s"`
	ProviderCallTimeout time.Duration    `yaml:"provider_call_timeout" env-default:"10s"`
	Plans               map[string]int64 `yaml:"plans"`
}

// Access holds the access-policy settings.
type Access struct {
	PastDueKeepsAccess bool `yaml:"past_due_keeps_access" env-default:"false"`
}

// MustLoad loads the configuration from the file named by CONFIG_PATH and
// exits the process on failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
