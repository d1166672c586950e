package repositories

import (
	"context"

	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
)

// Mutator applies one change to a freshly read deployment. Returning an error aborts the update.
type Mutator func(deployment *entities.DeploymentEntity) error

// DeploymentFilter narrows ListDeployments. Zero values mean "no filter".
type DeploymentFilter struct {
	ProjectID string
	Statuses  []entities.DeploymentStatus
	Limit     int
}

// Matches reports whether d passes the filter, ignoring Limit.
func (f DeploymentFilter) Matches(d *entities.DeploymentEntity) bool {
	if f.ProjectID != "" && d.ProjectID != f.ProjectID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if d.Status == s {
			return true
		}
	}
	return false
}

// DeploymentRepository stores deployment records.
//
// UpdateDeployment must serialize read-modify-write per id: two concurrent updates of the same
// deployment both observe each other's changes. Updates of different ids may run in parallel.
// ListDeployments returns newest first.
type DeploymentRepository interface {
	CreateDeployment(ctx context.Context, deployment *entities.DeploymentEntity) (*entities.DeploymentEntity, error)
	GetDeployment(ctx context.Context, id string) (*entities.DeploymentEntity, error)
	ListDeployments(ctx context.Context, filter DeploymentFilter) ([]*entities.DeploymentEntity, error)
	UpdateDeployment(ctx context.Context, id string, mutate Mutator) (*entities.DeploymentEntity, error)
	DeleteDeployment(ctx context.Context, id string) (bool, error)
	Ping(ctx context.Context) error
}
