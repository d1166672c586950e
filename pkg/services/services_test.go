package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
	domainServices "github.com/tokamak-network/trh-pipeline/pkg/domain/services"
	"github.com/tokamak-network/trh-pipeline/pkg/stages"
)

const (
	testDomain = "example.dev"
	testSuffix = "abc123"
)

var errStorageDown = errors.New("storage down")

// flakyRepo fails chosen UpdateDeployment calls (1-based) before they reach the store.
type flakyRepo struct {
	repositories.DeploymentRepository

	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (f *flakyRepo) UpdateDeployment(
	ctx context.Context,
	id string,
	mutate repositories.Mutator,
) (*entities.DeploymentEntity, error) {
	f.mu.Lock()
	f.calls++
	fail := f.failOn[f.calls]
	f.mu.Unlock()
	if fail {
		return nil, errStorageDown
	}
	return f.DeploymentRepository.UpdateDeployment(ctx, id, mutate)
}

func newTestExecutor(repo repositories.DeploymentRepository, build, deploy stages.Stage) *DeploymentExecutor {
	urls := domainServices.NewURLGeneratorWithSource(domainServices.FixedSuffix(testSuffix))
	return NewDeploymentExecutor(repo, urls, testDomain, build, deploy, nil)
}

func seedPending(t *testing.T, repo repositories.DeploymentRepository, projectID string) *entities.DeploymentEntity {
	t.Helper()
	d := &entities.DeploymentEntity{
		ID:          "dep-" + projectID,
		ProjectID:   projectID,
		Environment: entities.EnvironmentProduction,
		Status:      entities.DeploymentStatusPending,
		Provider:    "test",
		Config:      map[string]any{},
		Logs:        []string{entities.LogDeploymentInitiated},
	}
	created, err := repo.CreateDeployment(context.Background(), d)
	require.NoError(t, err)
	return created
}
