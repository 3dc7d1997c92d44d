package config

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from environment variables.
// Redis backs the distributed rate limiter and the seat-map response
// cache; neither is essential to selling tickets, so a failed startup
// ping returns nil and callers run with both features disabled rather
// than refusing to boot.
//
// Supported variables:
//
//	REDIS_ADDR     host:port (default "localhost:6379")
//	REDIS_HOST and REDIS_PORT take precedence over REDIS_ADDR when both set
//	REDIS_PASSWORD optional password
//	REDIS_DB       database number (default 0)
//	REDIS_TLS      enable TLS when truthy
func NewRedisClient() *redis.Client {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = host + ":" + port
	}
	var tlsConf *tls.Config
	if envBool("REDIS_TLS", false) {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  envStr("REDIS_PASSWORD", ""),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis: unreachable at %s, cache and rate limiting disabled: %v", addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
