package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/sports-class-booking/internal/config"
)

// tokenBucket refills `refill` tokens every `interval_ms` up to `capacity`
// and takes one token per call.  Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'ts')
    local tokens = tonumber(state[1])
    local ts = tonumber(state[2])
    if tokens == nil or ts == nil then
        tokens = capacity
        ts = now_ms
    end

    local steps = math.floor(math.max(0, now_ms - ts) / interval_ms)
    if steps > 0 then
        tokens = math.min(capacity, tokens + steps * refill)
        ts = ts + steps * interval_ms
    end

    local allowed = 0
    local wait = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        wait = math.max(0, interval_ms - (now_ms - ts))
    end

    redis.call('HSET', key, 'tokens', tokens, 'ts', ts)
    redis.call('EXPIRE', key, ttl)
    return { allowed, tokens, wait }
`)

// RateLimit throttles callers with a Redis token bucket.  It fails open:
// when Redis is absent or errors, requests pass.  Place it after JWTAuth
// to key buckets by the caller's email.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttlSeconds := int64(cfg.TTL / time.Second)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            vals, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(), ttlSeconds).Int64Slice()
            if err != nil || len(vals) != 3 {
                if cfg.Debug {
                    c.Logger().Warnf("[ratelimit] key=%s: %v", key, err)
                }
                return next(c)
            }
            allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if allowed {
                return next(c)
            }

            secs := int(math.Ceil(float64(retryMs) / 1000))
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                c.Logger().Infof("[ratelimit] block key=%s retry=%dms", key, retryMs)
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       true,
                "message":     "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    who := rateIdentity(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "email":
        parts = append(parts, "email", who)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "email_route":
        parts = append(parts, "email", who, "route", route)
    default: // ip_email_route
        parts = append(parts, "ip", ip, "email", who, "route", route)
    }
    return strings.Join(parts, ":")
}
