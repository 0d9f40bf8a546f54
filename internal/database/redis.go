package database

import (
	"context"
	"fmt"
	"time"

	"blockify-backend/config"

	"github.com/go-redis/redis/v8"
)

// RedisClient holds the token denylist and the user cache.
var RedisClient *redis.Client

func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisFullAddr(),
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisFullAddr(), err)
	}

	RedisClient = client
	return client, nil
}
