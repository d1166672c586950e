package redisstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories/repositorytest"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client, err := Connect(addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func cleanupPrefix(t *testing.T, client *redis.Client, prefix string) {
	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	})
}

func TestDeploymentRepositoryContract(t *testing.T) {
	client := newTestClient(t)
	repositorytest.Run(t, func(t *testing.T) repositories.DeploymentRepository {
		prefix := "trh:test:" + uuid.NewString() + ":"
		cleanupPrefix(t, client, prefix)
		return NewDeploymentRepository(client, prefix)
	})
}
