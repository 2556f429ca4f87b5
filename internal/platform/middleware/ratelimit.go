package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures a per-client token bucket. Clients idle for
// longer than ExpiresIn are forgotten; zero uses echo's default of three
// minutes.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	ExpiresIn         time.Duration
}

// AuthRateLimitConfig limits sign-in and sign-up attempts per client.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 0.5,
		BurstSize:         10,
		ExpiresIn:         5 * time.Minute,
	}
}

// RateLimit throttles requests per client. It is mounted on the
// unauthenticated account routes.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	limit := strconv.Itoa(cfg.BurstSize)
	retryAfter := "1"
	if cfg.RequestsPerSecond > 0 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / cfg.RequestsPerSecond)))
	}

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RequestsPerSecond),
			Burst:     cfg.BurstSize,
			ExpiresIn: cfg.ExpiresIn,
		}),
		IdentifierExtractor: clientKey,
		BeforeFunc: func(c echo.Context) {
			c.Response().Header().Set("X-RateLimit-Limit", limit)
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			h := c.Response().Header()
			h.Set("Retry-After", retryAfter)
			h.Set("X-RateLimit-Remaining", "0")
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, slow down")
		},
	})
}

// clientKey identifies a client by its IP. IPv6 clients are grouped by /64,
// the smallest block a single subscriber is usually assigned.
func clientKey(c echo.Context) (string, error) {
	raw := c.RealIP()
	ip := net.ParseIP(raw)
	if ip == nil {
		return raw, nil
	}
	if ip.To4() == nil {
		return ip.Mask(net.CIDRMask(64, 128)).String(), nil
	}
	return ip.String(), nil
}
