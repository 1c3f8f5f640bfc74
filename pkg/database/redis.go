package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/assessment-api/internal/config"
)

// NewUniversalRedisClient создает универсальный клиент Redis
// (одиночный узел, sentinel или cluster) на основе конфигурации.
func NewUniversalRedisClient(cfg config.RedisConfig) (redis.UniversalClient, error) {
	var client redis.UniversalClient

	mode := strings.ToLower(cfg.Mode)
	switch mode {
	case "sentinel":
		if cfg.MasterName == "" || len(cfg.Addrs) == 0 {
			return nil, fmt.Errorf("sentinel mode requires master_name and addrs")
		}
		log.Printf("[Redis] Подключение в режиме Sentinel: master=%s, addrs=%v", cfg.MasterName, cfg.Addrs)
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.MasterName,
			SentinelAddrs: cfg.Addrs,
			Password:      cfg.Password,
			DB:            cfg.DB,
		})
	case "cluster":
		if len(cfg.Addrs) == 0 {
			return nil, fmt.Errorf("cluster mode requires addrs")
		}
		log.Printf("[Redis] Подключение в режиме Cluster: addrs=%v", cfg.Addrs)
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	default:
		addr := cfg.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		log.Printf("[Redis] Подключение в одиночном режиме: addr=%s", addr)
		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Println("[Redis] Подключение установлено")
	return client, nil
}
