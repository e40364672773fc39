package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort  string `env:"HTTP_PORT" envDefault:"8000"`
	ClientURL string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`

	MongoURI         string `env:"MONGO_URI,required"`
	MongoDB          string `env:"MONGO_DB" envDefault:"edunexus"`
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS" envDefault:"4"`

	JWTSecret    string `env:"JWT_SECRET,required"`
	JWTTTLHours  int    `env:"JWT_TTL_HOURS" envDefault:"168"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Support"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET"`
	RazorpayBaseURL   string `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com/v1"`
	PaymentCurrency   string `env:"PAYMENT_CURRENCY" envDefault:"INR"`

	GatewayTimeoutSeconds     int    `env:"GATEWAY_TIMEOUT_SECONDS" envDefault:"15"`
	GatewayBreakerMaxFailures uint32 `env:"GATEWAY_BREAKER_MAX_FAILURES" envDefault:"5"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOBucket    string `env:"MINIO_BUCKET" envDefault:"edunexus-media"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	MinIOPublicURL string `env:"MINIO_PUBLIC_URL"`

	AuthRatePerMinute int `env:"AUTH_RATE_PER_MINUTE" envDefault:"30"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// JWTTTL devuelve la vigencia del token de sesión.
func (c *Config) JWTTTL() time.Duration {
	if c.JWTTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c *Config) GatewayTimeout() time.Duration {
	if c.GatewayTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.GatewayTimeoutSeconds) * time.Second
}
