package router

import (
	"fmt"
	"strings"

	"github.com/bluewater-shop/storefront/internal/http/response"
	"github.com/bluewater-shop/storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitUnavailableMessage = "rate limiter unavailable"

// RateLimitKeyFunc derives the bucket key for a request.
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule is a fixed-window limit. Message may contain one %d for the
// seconds to wait.
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware enforces rule with a Redis counter. A nil client disables it.
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Result()
		if err != nil {
			logger.Ctx(c.Request.Context()).Errorw("rate_limit_script_failed", "key", key, "error", err)
			response.Error(c, response.CodeInternal, rateLimitUnavailableMessage)
			c.Abort()
			return
		}

		values, ok := result.([]interface{})
		if !ok || len(values) < 2 {
			response.Error(c, response.CodeInternal, rateLimitUnavailableMessage)
			c.Abort()
			return
		}
		count, ok := toInt64(values[0])
		if !ok {
			response.Error(c, response.CodeInternal, rateLimitUnavailableMessage)
			c.Abort()
			return
		}
		ttlSeconds, _ := toInt64(values[1])
		if count > int64(rule.MaxRequests) {
			waitSeconds := int(ttlSeconds)
			if waitSeconds < 1 {
				waitSeconds = rule.WindowSeconds
			}
			if waitSeconds < 1 {
				waitSeconds = 1
			}
			format := strings.TrimSpace(rule.Message)
			if format == "" {
				format = "too many requests, retry in %d seconds"
			}
			response.Error(c, response.CodeTooManyRequests, fmt.Sprintf(format, waitSeconds))
			c.Abort()
			return
		}

		c.Next()
	}
}

// KeyByIP buckets by client address.
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByTenantAndIP buckets by the tenant_id path parameter and client address.
func KeyByTenantAndIP(c *gin.Context) string {
	tenantID := strings.TrimSpace(c.Param("tenant_id"))
	if tenantID == "" {
		return c.ClientIP()
	}
	return fmt.Sprintf("%s|%s", tenantID, c.ClientIP())
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	default:
		return 0, false
	}
}
