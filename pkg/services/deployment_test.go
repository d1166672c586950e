package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokamak-network/trh-pipeline/pkg/api/dtos"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
	"github.com/tokamak-network/trh-pipeline/pkg/infrastructure/memory"
	"github.com/tokamak-network/trh-pipeline/pkg/stages"
	"github.com/tokamak-network/trh-pipeline/pkg/taskmanager"
)

func newTestService(t *testing.T, build, deploy stages.Stage) (*DeploymentService, *memory.DeploymentRepository) {
	t.Helper()
	repo := memory.NewDeploymentRepository()
	tm := taskmanager.NewTaskManager(0)
	t.Cleanup(tm.Stop)
	svc := NewDeploymentService(repo, newTestExecutor(repo, build, deploy), tm, "thanos-cloud", nil)
	return svc, repo
}

func waitForStatus(t *testing.T, svc *DeploymentService, id string, want entities.DeploymentStatus) *entities.DeploymentEntity {
	t.Helper()
	var got *entities.DeploymentEntity
	require.Eventually(t, func() bool {
		d, err := svc.GetDeployment(context.Background(), id)
		if err != nil {
			return false
		}
		got = d
		return d.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestCreateDeploymentReturnsPendingImmediately(t *testing.T) {
	release := make(chan struct{})
	build := stages.Func{StageName: stages.NameBuild, Fn: func(ctx context.Context, _ *entities.DeploymentEntity) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}
	svc, _ := newTestService(t, build, stages.Succeed(stages.NameDeploy))

	user := "user-1"
	created, err := svc.CreateDeployment(context.Background(), dtos.CreateDeploymentRequest{
		ProjectID: "proj-1",
		Config:    map[string]any{"framework": "next"},
	}, &user)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, entities.DeploymentStatusPending, created.Status)
	assert.Equal(t, []string{entities.LogDeploymentInitiated}, created.Logs)
	assert.Equal(t, entities.EnvironmentProduction, created.Environment)
	assert.Equal(t, "thanos-cloud", created.Provider)
	assert.Equal(t, "next", created.Config["framework"])
	require.NotNil(t, created.UserID)
	assert.Equal(t, "user-1", *created.UserID)

	waitForStatus(t, svc, created.ID, entities.DeploymentStatusBuilding)
	close(release)
	done := waitForStatus(t, svc, created.ID, entities.DeploymentStatusSuccess)
	assert.Equal(t, "https://proj-1-abc123.example.dev", done.URL)
	assert.Len(t, done.Logs, 4)
}

func TestCreateDeploymentSurvivesRequestCancellation(t *testing.T) {
	svc, _ := newTestService(t, stages.Succeed(stages.NameBuild), stages.Succeed(stages.NameDeploy))

	requestCtx, cancel := context.WithCancel(context.Background())
	created, err := svc.CreateDeployment(requestCtx, dtos.CreateDeploymentRequest{ProjectID: "proj-1"}, nil)
	require.NoError(t, err)
	cancel()

	waitForStatus(t, svc, created.ID, entities.DeploymentStatusSuccess)
}

func TestCreateDeploymentInvalidInput(t *testing.T) {
	svc, repo := newTestService(t, stages.Succeed(stages.NameBuild), stages.Succeed(stages.NameDeploy))

	for _, request := range []dtos.CreateDeploymentRequest{
		{},
		{ProjectID: "  "},
		{ProjectID: "p", Environment: "qa"},
	} {
		_, err := svc.CreateDeployment(context.Background(), request, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	all, err := repo.ListDeployments(context.Background(), repositories.DeploymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateDeploymentRequestOverrides(t *testing.T) {
	svc, _ := newTestService(t, stages.Succeed(stages.NameBuild), stages.Succeed(stages.NameDeploy))

	created, err := svc.CreateDeployment(context.Background(), dtos.CreateDeploymentRequest{
		ProjectID:   "proj-1",
		Environment: "preview",
		Provider:    "vercel",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.EnvironmentPreview, created.Environment)
	assert.Equal(t, "vercel", created.Provider)
	assert.NotNil(t, created.Config)
	assert.Nil(t, created.UserID)
}

func TestConcurrentCreatesProgressIndependently(t *testing.T) {
	svc, _ := newTestService(t,
		stages.NewSimulated(stages.NameBuild, stages.SimulatedOptions{MaxDuration: 5 * time.Millisecond, Seed: 3}),
		stages.NewSimulated(stages.NameDeploy, stages.SimulatedOptions{MaxDuration: 5 * time.Millisecond, Seed: 4}),
	)

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := svc.CreateDeployment(context.Background(), dtos.CreateDeploymentRequest{ProjectID: "proj-2"}, nil)
			if assert.NoError(t, err) {
				ids[i] = created.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		d := waitForStatus(t, svc, id, entities.DeploymentStatusSuccess)
		assert.Equal(t, []string{
			entities.LogDeploymentInitiated,
			entities.LogBuildStarted,
			entities.LogBuildCompleted,
			entities.LogDeploymentSuccessful,
		}, d.Logs)
	}
}

func TestListGetDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, stages.Succeed(stages.NameBuild), stages.Succeed(stages.NameDeploy))
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	first, err := svc.CreateDeployment(ctx, dtos.CreateDeploymentRequest{ProjectID: "a"}, nil)
	require.NoError(t, err)
	second, err := svc.CreateDeployment(ctx, dtos.CreateDeploymentRequest{ProjectID: "a"}, nil)
	require.NoError(t, err)
	other, err := svc.CreateDeployment(ctx, dtos.CreateDeploymentRequest{ProjectID: "b"}, nil)
	require.NoError(t, err)

	list, err := svc.ListDeployments(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	list, err = svc.ListDeployments(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)

	_, err = svc.ListDeployments(ctx, "", -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	waitForStatus(t, svc, first.ID, entities.DeploymentStatusSuccess)
	status, err := svc.GetDeploymentStatus(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.DeploymentStatusSuccess, status)

	require.NoError(t, svc.DeleteDeployment(ctx, first.ID))
	_, err = svc.GetDeployment(ctx, first.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteDeployment(ctx, first.ID), repositories.ErrNotFound)

	_, err = svc.GetDeploymentStatus(ctx, "nonexistent")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.NoError(t, svc.Ping(ctx))
}

type rejectingTaskManager struct{}

func (rejectingTaskManager) AddTask(entities.Task) error {
	return errors.New("stopped")
}

func TestCreateDeploymentWhenSchedulingFails(t *testing.T) {
	repo := memory.NewDeploymentRepository()
	svc := NewDeploymentService(repo, nil, rejectingTaskManager{}, "thanos-cloud", nil)

	created, err := svc.CreateDeployment(context.Background(), dtos.CreateDeploymentRequest{ProjectID: "p"}, nil)
	require.NoError(t, err)

	got, err := repo.GetDeployment(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.DeploymentStatusPending, got.Status)
}
