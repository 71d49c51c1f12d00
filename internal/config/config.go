package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strings"
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    DBUser         string        // database username
    DBPass         string        // database password (optional)
    DBHost         string        // database host address
    DBPort         string        // database port number
    DBName         string        // database name
    JWTSecret      string        // secret used to sign JWTs
    AccessTTL      time.Duration // access token lifetime
    BcryptCost     int           // bcrypt cost for password hashing
    RequestTimeout time.Duration // per-request deadline for store and gateway calls
    LogLevel       string        // debug, info, warn, error, off

    PaymentGateway   string // "stripe" or "fake"
    PaymentSecretKey string // provider API key, required for stripe
    PaymentCurrency  string // ISO currency code, lower case

    RabbitMQURL string // amqp url; empty disables event publishing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:            getenv("APP_ENV", "dev"),
        Port:           getenv("APP_PORT", "5000"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         getenv("DB_PORT", "3306"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTL:      time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 60)) * time.Minute,
        BcryptCost:     envInt("BCRYPT_COST", 10),
        RequestTimeout: envDur("REQUEST_TIMEOUT", 10*time.Second),
        LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),

        PaymentGateway:   strings.ToLower(getenv("PAYMENT_GATEWAY", "stripe")),
        PaymentSecretKey: os.Getenv("PAYMENT_SECRET_KEY"),
        PaymentCurrency:  strings.ToLower(getenv("PAYMENT_CURRENCY", "usd")),

        RabbitMQURL: os.Getenv("RABBITMQ_URL"),
    }
    if cfg.PaymentGateway == "stripe" && cfg.PaymentSecretKey == "" {
        log.Fatalf("missing required env var: PAYMENT_SECRET_KEY (or set PAYMENT_GATEWAY=fake)")
    }
    if cfg.RequestTimeout <= 0 {
        cfg.RequestTimeout = 10 * time.Second
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
