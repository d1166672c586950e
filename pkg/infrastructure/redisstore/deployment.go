package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/tokamak-network/trh-pipeline/internal/utils"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
)

const (
	DefaultPrefix     = "trh:pipeline:"
	maxUpdateAttempts = 10
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// document is the value stored under a deployment key.
type document struct {
	Seq        int64                      `json:"seq"`
	Version    int64                      `json:"version"`
	Deployment *entities.DeploymentEntity `json:"deployment"`
}

// DeploymentRepository stores each deployment as a JSON value and keeps
// sorted-set indexes for listing. Writes to one deployment go through WATCH/MULTI
// so processes sharing the server never lose an update.
type DeploymentRepository struct {
	client *redis.Client
	prefix string
	locks  *utils.KeyedMutex
	now    func() time.Time
}

func NewDeploymentRepository(client *redis.Client, prefix string) *DeploymentRepository {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &DeploymentRepository{
		client: client,
		prefix: prefix,
		locks:  utils.NewKeyedMutex(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *DeploymentRepository) deploymentKey(id string) string {
	return r.prefix + "deployment:" + id
}

func (r *DeploymentRepository) indexKey() string {
	return r.prefix + "deployments"
}

func (r *DeploymentRepository) projectIndexKey(projectID string) string {
	return r.prefix + "project:" + projectID
}

func (r *DeploymentRepository) tombstoneKey() string {
	return r.prefix + "deleted"
}

func (r *DeploymentRepository) seqKey() string {
	return r.prefix + "seq"
}

func (r *DeploymentRepository) CreateDeployment(
	ctx context.Context,
	deployment *entities.DeploymentEntity,
) (*entities.DeploymentEntity, error) {
	stored := deployment.Clone()
	stored.Version = 1
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	seq, err := r.client.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate deployment sequence: %w", err)
	}
	payload, err := json.Marshal(document{Seq: seq, Version: stored.Version, Deployment: stored})
	if err != nil {
		return nil, err
	}

	key := r.deploymentKey(stored.ID)
	score := float64(stored.CreatedAt.UnixMilli())
	create := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		deleted, err := tx.SIsMember(ctx, r.tombstoneKey(), stored.ID).Result()
		if err != nil {
			return err
		}
		if exists > 0 || deleted {
			return repositories.ErrDuplicateID
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: score, Member: stored.ID})
			pipe.ZAdd(ctx, r.projectIndexKey(stored.ProjectID), redis.Z{Score: score, Member: stored.ID})
			return nil
		})
		return err
	}
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = r.client.Watch(ctx, create, key, r.tombstoneKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, repositories.ErrDuplicateID) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create deployment: %w", err)
		}
		return stored, nil
	}
	return nil, fmt.Errorf("create deployment %s: %w", stored.ID, repositories.ErrConflict)
}

func (r *DeploymentRepository) GetDeployment(ctx context.Context, id string) (*entities.DeploymentEntity, error) {
	doc, err := r.load(ctx, r.client, id)
	if err != nil {
		return nil, err
	}
	return doc.Deployment, nil
}

func (r *DeploymentRepository) ListDeployments(
	ctx context.Context,
	filter repositories.DeploymentFilter,
) ([]*entities.DeploymentEntity, error) {
	index := r.indexKey()
	if filter.ProjectID != "" {
		index = r.projectIndexKey(filter.ProjectID)
	}
	ids, err := r.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*entities.DeploymentEntity{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.deploymentKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	docs := make([]*document, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// removed between ZRANGE and MGET
			continue
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("deployment %s: %w", ids[i], err)
		}
		if filter.Matches(doc.Deployment) {
			docs = append(docs, doc)
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		a, b := docs[i].Deployment, docs[j].Deployment
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return docs[i].Seq > docs[j].Seq
	})
	if filter.Limit > 0 && len(docs) > filter.Limit {
		docs = docs[:filter.Limit]
	}

	deployments := make([]*entities.DeploymentEntity, len(docs))
	for i, doc := range docs {
		deployments[i] = doc.Deployment
	}
	return deployments, nil
}

func (r *DeploymentRepository) UpdateDeployment(
	ctx context.Context,
	id string,
	mutate repositories.Mutator,
) (*entities.DeploymentEntity, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	key := r.deploymentKey(id)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var updated *entities.DeploymentEntity
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			doc, err := r.load(ctx, tx, id)
			if err != nil {
				return err
			}
			current := doc.Deployment

			working := current.Clone()
			if err := mutate(working); err != nil {
				return err
			}
			working.ID = current.ID
			working.Version = doc.Version + 1
			if working.UpdatedAt.IsZero() || !working.UpdatedAt.After(current.UpdatedAt) {
				working.UpdatedAt = r.now()
			}

			payload, err := json.Marshal(document{Seq: doc.Seq, Version: working.Version, Deployment: working})
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				return nil
			})
			if err != nil {
				return err
			}
			updated = working
			return nil
		}, key)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 5 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("update deployment %s: %w", id, repositories.ErrConflict)
}

func (r *DeploymentRepository) DeleteDeployment(ctx context.Context, id string) (bool, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	key := r.deploymentKey(id)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		deleted := false
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			doc, err := r.load(ctx, tx, id)
			if errors.Is(err, repositories.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.ZRem(ctx, r.indexKey(), id)
				pipe.ZRem(ctx, r.projectIndexKey(doc.Deployment.ProjectID), id)
				pipe.SAdd(ctx, r.tombstoneKey(), id)
				return nil
			})
			if err != nil {
				return err
			}
			deleted = true
			return nil
		}, key)
		if err == nil {
			return deleted, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return false, err
		}
	}
	return false, fmt.Errorf("delete deployment %s: %w", id, repositories.ErrConflict)
}

func (r *DeploymentRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *DeploymentRepository) load(ctx context.Context, c getter, id string) (*document, error) {
	raw, err := c.Get(ctx, r.deploymentKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func decode(raw string) (*document, error) {
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode deployment: %w", err)
	}
	if doc.Deployment == nil {
		return nil, errors.New("failed to decode deployment: empty document")
	}
	doc.Deployment.Version = doc.Version
	return &doc, nil
}
