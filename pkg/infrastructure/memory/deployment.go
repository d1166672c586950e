package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
)

type record struct {
	mu         sync.Mutex
	deployment *entities.DeploymentEntity
	seq        uint64
	deleted    bool
}

// DeploymentRepository keeps deployments in process memory.
// The map lock only guards membership; each record has its own lock for read-modify-write.
type DeploymentRepository struct {
	mu         sync.RWMutex
	records    map[string]*record
	// ids of deleted deployments; an id is never handed out twice
	tombstones map[string]struct{}
	seq        uint64
	now        func() time.Time
}

func NewDeploymentRepository() *DeploymentRepository {
	return &DeploymentRepository{
		records:    make(map[string]*record),
		tombstones: make(map[string]struct{}),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *DeploymentRepository) CreateDeployment(
	_ context.Context,
	deployment *entities.DeploymentEntity,
) (*entities.DeploymentEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[deployment.ID]; exists {
		return nil, repositories.ErrDuplicateID
	}
	if _, deleted := r.tombstones[deployment.ID]; deleted {
		return nil, repositories.ErrDuplicateID
	}
	stored := deployment.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	stored.Version = 1
	r.seq++
	r.records[stored.ID] = &record{deployment: stored, seq: r.seq}
	return stored.Clone(), nil
}

func (r *DeploymentRepository) GetDeployment(_ context.Context, id string) (*entities.DeploymentEntity, error) {
	rec := r.lookup(id)
	if rec == nil {
		return nil, repositories.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, repositories.ErrNotFound
	}
	return rec.deployment.Clone(), nil
}

func (r *DeploymentRepository) ListDeployments(
	_ context.Context,
	filter repositories.DeploymentFilter,
) ([]*entities.DeploymentEntity, error) {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	type snapshot struct {
		deployment *entities.DeploymentEntity
		seq        uint64
	}
	matched := make([]snapshot, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		if !rec.deleted && filter.Matches(rec.deployment) {
			matched = append(matched, snapshot{deployment: rec.deployment.Clone(), seq: rec.seq})
		}
		rec.mu.Unlock()
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.deployment.CreatedAt.Equal(b.deployment.CreatedAt) {
			return a.deployment.CreatedAt.After(b.deployment.CreatedAt)
		}
		return a.seq > b.seq
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	deployments := make([]*entities.DeploymentEntity, len(matched))
	for i, m := range matched {
		deployments[i] = m.deployment
	}
	return deployments, nil
}

func (r *DeploymentRepository) UpdateDeployment(
	_ context.Context,
	id string,
	mutate repositories.Mutator,
) (*entities.DeploymentEntity, error) {
	rec := r.lookup(id)
	if rec == nil {
		return nil, repositories.ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, repositories.ErrNotFound
	}

	working := rec.deployment.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.ID = rec.deployment.ID
	working.Version = rec.deployment.Version + 1
	if working.UpdatedAt.IsZero() || !working.UpdatedAt.After(rec.deployment.UpdatedAt) {
		working.UpdatedAt = r.now()
	}
	rec.deployment = working
	return working.Clone(), nil
}

func (r *DeploymentRepository) DeleteDeployment(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	rec, ok := r.records[id]
	if ok {
		delete(r.records, id)
		r.tombstones[id] = struct{}{}
	}
	r.mu.Unlock()
	if !ok {
		return false, nil
	}

	// an update may still hold the record; mark it so it cannot resurrect
	rec.mu.Lock()
	rec.deleted = true
	rec.mu.Unlock()
	return true, nil
}

func (r *DeploymentRepository) Ping(context.Context) error {
	return nil
}

func (r *DeploymentRepository) lookup(id string) *record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[id]
}
