package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort           string   `env:"HTTP_PORT" envDefault:"3000"`
	TrustedProxies     []string `env:"TRUSTED_PROXIES" envSeparator:","`
	ExposeErrorDetails bool     `env:"EXPOSE_ERROR_DETAILS" envDefault:"false"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"FootBallApp"`

	JWTSecret            string `env:"JWT_SECRET,required"`
	JWTRefreshSecret     string `env:"JWT_REFRESH_SECRET,required"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"10080"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	MailWorkers  int    `env:"MAIL_WORKERS" envDefault:"2"`
	MailQueue    int    `env:"MAIL_QUEUE_SIZE" envDefault:"64"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL" envDefault:"http://localhost:3000/api/users/auth/google/callback"`

	SportsAPIBaseURLV3 string `env:"SPORTS_API_BASE_URL_V3" envDefault:"https://v3.football.api-sports.io"`
	SportsAPIBaseURLV2 string `env:"SPORTS_API_BASE_URL_V2" envDefault:"https://api-football-v1.p.rapidapi.com/v2"`
	SportsAPIKey       string `env:"SPORTS_API_KEY"`
	SportsAPIHost      string `env:"SPORTS_API_HOST" envDefault:"v3.football.api-sports.io"`
	SportsSeason       int    `env:"SPORTS_API_SEASON" envDefault:"2023"`
	SportsCacheTTL     int    `env:"SPORTS_CACHE_TTL_SECONDS" envDefault:"300"`

	RegisterLimit       int `env:"RATE_LIMIT_REGISTER" envDefault:"5"`
	RegisterWindowMin   int `env:"RATE_LIMIT_REGISTER_WINDOW_MINUTES" envDefault:"60"`
	LoginLimit          int `env:"RATE_LIMIT_LOGIN" envDefault:"3"`
	LoginWindowMin      int `env:"RATE_LIMIT_LOGIN_WINDOW_MINUTES" envDefault:"10"`
	ForgotPasswordLimit int `env:"RATE_LIMIT_FORGOT_PASSWORD" envDefault:"10"`
	ForgotWindowMin     int `env:"RATE_LIMIT_FORGOT_PASSWORD_WINDOW_MINUTES" envDefault:"15"`
	GeneralLimit        int `env:"RATE_LIMIT_GENERAL" envDefault:"100"`
	GeneralWindowMin    int `env:"RATE_LIMIT_GENERAL_WINDOW_MINUTES" envDefault:"15"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que las etiquetas no pueden expresar.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	case StoreDriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("MONGO_URI is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.JWTSecret == c.JWTRefreshSecret {
		return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	return nil
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLMinutes) * time.Minute
}

func (c *Config) SportsCacheDuration() time.Duration {
	return time.Duration(c.SportsCacheTTL) * time.Second
}
