package config

// Redis backs the rate limiter and the class-listing cache.  Both degrade
// gracefully, so a Redis that cannot be reached at start-up is reported and
// the server runs without it.

import (
    "context"
    "crypto/tls"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from REDIS_ADDR (or REDIS_HOST and
// REDIS_PORT), REDIS_PASSWORD, REDIS_DB and REDIS_TLS and pings it.  When
// REDIS_ADDR and REDIS_HOST are both unset Redis is treated as disabled
// and (nil, nil) is returned.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
    addr := os.Getenv("REDIS_ADDR")
    if host := os.Getenv("REDIS_HOST"); host != "" {
        addr = host + ":" + getenv("REDIS_PORT", "6379")
    }
    if addr == "" {
        return nil, nil
    }
    opts := &redis.Options{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
    }
    if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis %s: %w", addr, err)
    }
    return client, nil
}
