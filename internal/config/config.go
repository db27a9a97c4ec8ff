package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
// Following 12-factor app principles, all config is loaded from environment variables
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Payment  PaymentConfig
	Email    EmailConfig
	Auth     AuthConfig
	Shipping ShippingConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PaymentConfig struct {
	BaseURL        string
	SecretKey      string
	WebhookSecret  string
	SuccessURL     string
	CancelURL      string
	SessionTTLMin  int // hosted session expiry, aligned with the stock hold
	Currency       string
}

type EmailConfig struct {
	BaseURL    string
	APIKey     string
	From       string
	AdminEmail string
	QueueSize  int
}

type AuthConfig struct {
	JWTSecret string
}

type ShippingConfig struct {
	FlatRate      decimal.Decimal
	FreeThreshold decimal.Decimal
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "fashionstore"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Payment: PaymentConfig{
			BaseURL:       getEnv("PAYMENT_API_URL", "https://api.pasarela.example.com"),
			SecretKey:     getEnv("PAYMENT_SECRET_KEY", ""),
			WebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			SuccessURL:    getEnv("CHECKOUT_SUCCESS_URL", "https://tienda.example.com/pedido/confirmado"),
			CancelURL:     getEnv("CHECKOUT_CANCEL_URL", "https://tienda.example.com/carrito"),
			SessionTTLMin: getEnvAsInt("CHECKOUT_SESSION_TTL_MIN", 30),
			Currency:      getEnv("PAYMENT_CURRENCY", "eur"),
		},
		Email: EmailConfig{
			BaseURL:    getEnv("EMAIL_API_URL", "https://api.correo.example.com"),
			APIKey:     getEnv("EMAIL_API_KEY", ""),
			From:       getEnv("EMAIL_FROM", "pedidos@tienda.example.com"),
			AdminEmail: getEnv("EMAIL_ADMIN", ""),
			QueueSize:  getEnvAsInt("EMAIL_QUEUE_SIZE", 128),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Shipping: ShippingConfig{
			FlatRate:      getEnvAsDecimal("SHIPPING_FLAT_RATE", "4.99"),
			FreeThreshold: getEnvAsDecimal("SHIPPING_FREE_THRESHOLD", "60.00"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Payment.SecretKey == "" {
		return fmt.Errorf("PAYMENT_SECRET_KEY is required")
	}

	if c.Payment.WebhookSecret == "" {
		return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Payment.SessionTTLMin <= 0 {
		return fmt.Errorf("CHECKOUT_SESSION_TTL_MIN must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key, defaultValue string) decimal.Decimal {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		value, _ = decimal.NewFromString(defaultValue)
	}
	return value
}
