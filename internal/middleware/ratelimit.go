package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimit 返回一个 Gin 中间件，对已认证用户按 user_id 限流，
// 匿名请求退回按客户端 IP 限流。
// redisClient: 用于存储计数器的 Redis 客户端实例，必须提供。
// maxRequests: 在时间窗口内允许的最大请求数。
// window: 限流时间窗口。
func RateLimit(redisClient *redis.Client, maxRequests int, window time.Duration) gin.HandlerFunc {
	if redisClient == nil {
		panic("Redis client cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 || window <= 0 {
		panic("maxRequests and window must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		// Auth 中间件在前时优先用 user_id，避免 NAT 后多用户共享 IP 误伤
		var key string
		if uid, ok := c.Get("user_id"); ok {
			key = fmt.Sprintf("ratelimit:user:%v", uid)
		} else {
			key = "ratelimit:ip:" + c.ClientIP()
		}

		// INCR + EXPIRE 走 Pipeline 减少竞争窗口；
		// 严格原子需要 Lua 脚本，这里 Pipeline 已够用
		pipe := redisClient.Pipeline()
		incrCmd := pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, window)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			logrus.WithError(err).Error("RateLimit: Redis pipeline failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting error"})
			c.Abort()
			return
		}

		count, err := incrCmd.Result()
		if err != nil {
			logrus.WithError(err).Error("RateLimit: Failed to read INCR result")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting error"})
			c.Abort()
			return
		}

		if count > int64(maxRequests) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}
