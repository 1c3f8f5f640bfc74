package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests — максимальное количество запросов за Window
	MaxRequests int
	// Window — временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix — префикс для ключей в Redis
	KeyPrefix string
}

// DefaultAPIRateLimitConfig возвращает конфигурацию по умолчанию для API endpoints
func DefaultAPIRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 60,              // 60 запросов
		Window:      1 * time.Minute, // за 1 минуту
		KeyPrefix:   "rl:api",
	}
}

// ViolationIngestRateLimitConfig — лимит для приема анти-чит телеметрии.
// Клиент батчит события, поэтому лимит по агенту, а не по IP.
func ViolationIngestRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 120,             // 120 батчей
		Window:      1 * time.Minute, // за 1 минуту
		KeyPrefix:   "rl:proctoring",
	}
}

// EvaluationRateLimitConfig — строгий лимит на запуск оценки
// (каждый запуск порождает обращения к AI-провайдеру)
func EvaluationRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 5,               // 5 запусков
		Window:      1 * time.Minute, // за 1 минуту
		KeyPrefix:   "rl:eval",
	}
}

// RateLimiter создаёт middleware для rate limiting на основе Redis
type RateLimiter struct {
	redisClient redis.UniversalClient
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// Limit возвращает Gin middleware с заданной конфигурацией
// Ключ формируется из IP + endpoint path
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		path := c.FullPath() // Gin route pattern, e.g. "/api/attempts/:id/answers"
		if path == "" {
			path = c.Request.URL.Path
		}

		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, clientIP, path)
		rl.enforce(c, cfg, key)
	}
}

// LimitByAgent ограничивает количество запросов по agent_id из контекста.
// Должен применяться ПОСЛЕ RequireAuth; без agent_id откатывается к IP.
func (rl *RateLimiter) LimitByAgent(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.ClientIP()
		if agentID, exists := c.Get("agent_id"); exists {
			subject = fmt.Sprintf("agent:%d", agentID.(uint))
		}

		key := fmt.Sprintf("%s:%s", cfg.KeyPrefix, subject)
		rl.enforce(c, cfg, key)
	}
}

func (rl *RateLimiter) enforce(c *gin.Context, cfg RateLimitConfig, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Инкрементируем счётчик
	count, err := rl.redisClient.Incr(ctx, key).Result()
	if err != nil {
		// При ошибке Redis пропускаем запрос (fail-open), но логируем
		log.Printf("[RateLimiter] Redis error for key %s: %v. Allowing request (fail-open).", key, err)
		c.Next()
		return
	}

	// Если это первый запрос в окне — устанавливаем TTL
	if count == 1 {
		if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
			log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
		}
	}

	// Устанавливаем заголовки rate limit
	remaining := cfg.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	ttl, _ := rl.redisClient.TTL(ctx, key).Result()
	retryAfter := int(ttl.Seconds())
	if retryAfter < 0 {
		retryAfter = int(cfg.Window.Seconds())
	}

	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

	// Проверяем лимит
	if int(count) > cfg.MaxRequests {
		log.Printf("[RateLimiter] Rate limit exceeded for key=%s. Count=%d, Limit=%d",
			key, count, cfg.MaxRequests)

		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "Too many requests. Please try again later.",
			"error_type":  "rate_limited",
			"retry_after": retryAfter,
		})
		return
	}

	c.Next()
}
