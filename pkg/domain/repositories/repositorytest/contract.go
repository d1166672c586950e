// Package repositorytest holds the behaviour every DeploymentRepository engine must share.
package repositorytest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) repositories.DeploymentRepository

// NewPending builds a pending deployment the way the coordinator does.
func NewPending(projectID string, createdAt time.Time) *entities.DeploymentEntity {
	return &entities.DeploymentEntity{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Environment: entities.EnvironmentProduction,
		Status:      entities.DeploymentStatusPending,
		Provider:    "test",
		Config:      map[string]any{"framework": "next", "replicas": float64(2)},
		Logs:        []string{entities.LogDeploymentInitiated},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// Run exercises the repository contract against engines produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)
		user := "user-7"
		d := NewPending("proj-1", base)
		d.UserID = &user

		created, err := repo.CreateDeployment(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, d.ID, created.ID)

		got, err := repo.GetDeployment(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "proj-1", got.ProjectID)
		require.NotNil(t, got.UserID)
		assert.Equal(t, "user-7", *got.UserID)
		assert.Equal(t, entities.DeploymentStatusPending, got.Status)
		assert.Equal(t, []string{entities.LogDeploymentInitiated}, got.Logs)
		assert.Equal(t, "next", got.Config["framework"])
		assert.True(t, base.Equal(got.CreatedAt), "createdAt %s", got.CreatedAt)
		assert.Empty(t, got.URL)
		assert.Empty(t, got.Error)
		assert.Nil(t, got.DeployedAt)
	})

	t.Run("CreateDuplicateID", func(t *testing.T) {
		repo := newRepo(t)
		d := NewPending("proj-1", base)
		_, err := repo.CreateDeployment(ctx, d)
		require.NoError(t, err)

		_, err = repo.CreateDeployment(ctx, NewPendingWithID(d.ID, "proj-2", base))
		assert.True(t, errors.Is(err, repositories.ErrDuplicateID), "got %v", err)
	})

	t.Run("GetUnknown", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetDeployment(ctx, uuid.NewString())
		assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)
	})

	t.Run("ListNewestFirstWithFilter", func(t *testing.T) {
		repo := newRepo(t)
		var ids []string
		for i := 0; i < 3; i++ {
			d := NewPending("proj-a", base.Add(time.Duration(i)*time.Minute))
			_, err := repo.CreateDeployment(ctx, d)
			require.NoError(t, err)
			ids = append(ids, d.ID)
		}
		other := NewPending("proj-b", base.Add(10*time.Minute))
		_, err := repo.CreateDeployment(ctx, other)
		require.NoError(t, err)

		all, err := repo.ListDeployments(ctx, repositories.DeploymentFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, other.ID, all[0].ID)

		projA, err := repo.ListDeployments(ctx, repositories.DeploymentFilter{ProjectID: "proj-a"})
		require.NoError(t, err)
		require.Len(t, projA, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{projA[0].ID, projA[1].ID, projA[2].ID})

		limited, err := repo.ListDeployments(ctx, repositories.DeploymentFilter{ProjectID: "proj-a", Limit: 2})
		require.NoError(t, err)
		require.Len(t, limited, 2)
		assert.Equal(t, ids[2], limited[0].ID)

		none, err := repo.ListDeployments(ctx, repositories.DeploymentFilter{ProjectID: "proj-z"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("ListByStatus", func(t *testing.T) {
		repo := newRepo(t)
		pending := NewPending("proj-s", base)
		building := NewPending("proj-s", base.Add(time.Second))
		for _, d := range []*entities.DeploymentEntity{pending, building} {
			_, err := repo.CreateDeployment(ctx, d)
			require.NoError(t, err)
		}
		_, err := repo.UpdateDeployment(ctx, building.ID, func(d *entities.DeploymentEntity) error {
			return d.StartBuild(base.Add(2 * time.Second))
		})
		require.NoError(t, err)

		got, err := repo.ListDeployments(ctx, repositories.DeploymentFilter{
			Statuses: []entities.DeploymentStatus{entities.DeploymentStatusBuilding},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, building.ID, got[0].ID)
	})

	t.Run("UpdateAppliesMutator", func(t *testing.T) {
		repo := newRepo(t)
		d := NewPending("proj-u", base)
		_, err := repo.CreateDeployment(ctx, d)
		require.NoError(t, err)

		updated, err := repo.UpdateDeployment(ctx, d.ID, func(d *entities.DeploymentEntity) error {
			return d.StartBuild(base.Add(time.Second))
		})
		require.NoError(t, err)
		assert.Equal(t, entities.DeploymentStatusBuilding, updated.Status)

		updated, err = repo.UpdateDeployment(ctx, d.ID, func(d *entities.DeploymentEntity) error {
			return d.CompleteBuild(base.Add(2 * time.Second))
		})
		require.NoError(t, err)
		deployedAt := base.Add(3 * time.Second)
		updated, err = repo.UpdateDeployment(ctx, d.ID, func(d *entities.DeploymentEntity) error {
			return d.Succeed("https://proj-u-abc123.example.dev", deployedAt)
		})
		require.NoError(t, err)

		got, err := repo.GetDeployment(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.DeploymentStatusSuccess, got.Status)
		assert.Equal(t, "https://proj-u-abc123.example.dev", got.URL)
		require.NotNil(t, got.DeployedAt)
		assert.True(t, deployedAt.Equal(*got.DeployedAt))
		assert.Equal(t, []string{
			entities.LogDeploymentInitiated,
			entities.LogBuildStarted,
			entities.LogBuildCompleted,
			entities.LogDeploymentSuccessful,
		}, got.Logs)
		assert.Equal(t, updated.Logs, got.Logs)
	})

	t.Run("UpdateMutatorErrorAborts", func(t *testing.T) {
		repo := newRepo(t)
		d := NewPending("proj-x", base)
		_, err := repo.CreateDeployment(ctx, d)
		require.NoError(t, err)

		_, err = repo.UpdateDeployment(ctx, d.ID, func(d *entities.DeploymentEntity) error {
			d.Logs = append(d.Logs, "should not persist")
			return d.Succeed("https://nope.example.dev", base)
		})
		assert.True(t, errors.Is(err, entities.ErrInvalidTransition), "got %v", err)

		got, err := repo.GetDeployment(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.DeploymentStatusPending, got.Status)
		assert.Equal(t, []string{entities.LogDeploymentInitiated}, got.Logs)
	})

	t.Run("UpdateUnknown", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.UpdateDeployment(ctx, uuid.NewString(), func(*entities.DeploymentEntity) error { return nil })
		assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)
	})

	t.Run("ConcurrentUpdatesSameIDDoNotLoseAppends", func(t *testing.T) {
		repo := newRepo(t)
		d := NewPending("proj-c", base)
		_, err := repo.CreateDeployment(ctx, d)
		require.NoError(t, err)

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.UpdateDeployment(ctx, d.ID, func(d *entities.DeploymentEntity) error {
					d.Logs = append(d.Logs, fmt.Sprintf("line %d", i))
					return nil
				})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := repo.GetDeployment(ctx, d.ID)
		require.NoError(t, err)
		assert.Len(t, got.Logs, writers+1)
		assert.Equal(t, entities.LogDeploymentInitiated, got.Logs[0])
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t)
		d := NewPending("proj-d", base)
		_, err := repo.CreateDeployment(ctx, d)
		require.NoError(t, err)

		deleted, err := repo.DeleteDeployment(ctx, d.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = repo.GetDeployment(ctx, d.ID)
		assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)

		deleted, err = repo.DeleteDeployment(ctx, d.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = repo.CreateDeployment(ctx, NewPendingWithID(d.ID, "proj-d", base))
		assert.True(t, errors.Is(err, repositories.ErrDuplicateID), "deleted ids are never reused, got %v", err)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(ctx))
	})
}

// NewPendingWithID is NewPending with a caller-chosen id.
func NewPendingWithID(id, projectID string, createdAt time.Time) *entities.DeploymentEntity {
	d := NewPending(projectID, createdAt)
	d.ID = id
	return d
}
