package redisstore

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/tokamak-network/trh-pipeline/internal/logger"
	"go.uber.org/zap"
)

// Connect opens a client and fails fast when the server does not answer.
func Connect(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to redis", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
