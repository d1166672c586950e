package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tokamak-network/trh-pipeline/internal/utils"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	domainRepositories "github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
	"github.com/tokamak-network/trh-pipeline/pkg/infrastructure/database/schemas"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxUpdateAttempts = 5

// DeploymentRepository stores deployments in a gorm database.
//
// Updates are serialized per id inside the process and guarded by an optimistic
// version column across processes sharing the database.
type DeploymentRepository struct {
	db    *gorm.DB
	locks *utils.KeyedMutex
	now   func() time.Time
}

func NewDeploymentRepository(db *gorm.DB) *DeploymentRepository {
	return &DeploymentRepository{
		db:    db,
		locks: utils.NewKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
	}
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
	row, err := ToDeploymentSchema(stored)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		// soft deleted rows still own their id
		if err := tx.Unscoped().Model(&schemas.Deployment{}).Where("id = ?", row.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domainRepositories.ErrDuplicateID
		}
		return tx.Create(row).Error
	})
	if err != nil {
		if errors.Is(err, domainRepositories.ErrDuplicateID) || isDuplicateKey(err) {
			return nil, domainRepositories.ErrDuplicateID
		}
		return nil, fmt.Errorf("failed to create deployment: %w", err)
	}
	return stored, nil
}

func (r *DeploymentRepository) GetDeployment(ctx context.Context, id string) (*entities.DeploymentEntity, error) {
	var row schemas.Deployment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainRepositories.ErrNotFound
		}
		return nil, err
	}
	return ToDeploymentEntity(&row)
}

func (r *DeploymentRepository) ListDeployments(
	ctx context.Context,
	filter domainRepositories.DeploymentFilter,
) ([]*entities.DeploymentEntity, error) {
	query := r.db.WithContext(ctx).Model(&schemas.Deployment{})
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	query = query.Order("created_at desc").Order("id desc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []schemas.Deployment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	deployments := make([]*entities.DeploymentEntity, 0, len(rows))
	for i := range rows {
		d, err := ToDeploymentEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}
	return deployments, nil
}

func (r *DeploymentRepository) UpdateDeployment(
	ctx context.Context,
	id string,
	mutate domainRepositories.Mutator,
) (*entities.DeploymentEntity, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.GetDeployment(ctx, id)
		if err != nil {
			return nil, err
		}

		working := current.Clone()
		if err := mutate(working); err != nil {
			return nil, err
		}
		working.ID = current.ID
		working.Version = current.Version + 1
		if working.UpdatedAt.IsZero() || !working.UpdatedAt.After(current.UpdatedAt) {
			working.UpdatedAt = r.now()
		}

		columns, err := updateColumns(working)
		if err != nil {
			return nil, err
		}
		result := r.db.WithContext(ctx).
			Model(&schemas.Deployment{}).
			Where("id = ? AND version = ?", id, current.Version).
			UpdateColumns(columns)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update deployment %s: %w", id, result.Error)
		}
		if result.RowsAffected == 1 {
			return working, nil
		}

		// another process won the race, re-read and apply again
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("update deployment %s: %w", id, domainRepositories.ErrConflict)
}

func (r *DeploymentRepository) DeleteDeployment(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&schemas.Deployment{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *DeploymentRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func updateColumns(d *entities.DeploymentEntity) (map[string]interface{}, error) {
	row, err := ToDeploymentSchema(d)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"project_id":  row.ProjectID,
		"user_id":     row.UserID,
		"environment": row.Environment,
		"status":      row.Status,
		"provider":    row.Provider,
		"config":      row.Config,
		"logs":        row.Logs,
		"url":         row.URL,
		"error":       row.Error,
		"version":     row.Version,
		"updated_at":  row.UpdatedAt,
		"deployed_at": row.DeployedAt,
	}, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func ToDeploymentSchema(
	deployment *entities.DeploymentEntity,
) (*schemas.Deployment, error) {
	config, err := json.Marshal(deployment.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deployment config: %w", err)
	}
	logs := deployment.Logs
	if logs == nil {
		logs = []string{}
	}
	logsJSON, err := json.Marshal(logs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deployment logs: %w", err)
	}
	return &schemas.Deployment{
		ID:          deployment.ID,
		ProjectID:   deployment.ProjectID,
		UserID:      deployment.UserID,
		Environment: deployment.Environment,
		Status:      deployment.Status,
		Provider:    deployment.Provider,
		Config:      datatypes.JSON(config),
		Logs:        datatypes.JSON(logsJSON),
		URL:         deployment.URL,
		Error:       deployment.Error,
		Version:     deployment.Version,
		CreatedAt:   deployment.CreatedAt,
		UpdatedAt:   deployment.UpdatedAt,
		DeployedAt:  deployment.DeployedAt,
	}, nil
}

func ToDeploymentEntity(
	deployment *schemas.Deployment,
) (*entities.DeploymentEntity, error) {
	var config map[string]any
	if len(deployment.Config) > 0 {
		if err := json.Unmarshal(deployment.Config, &config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config of deployment %s: %w", deployment.ID, err)
		}
	}
	var logs []string
	if len(deployment.Logs) > 0 {
		if err := json.Unmarshal(deployment.Logs, &logs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal logs of deployment %s: %w", deployment.ID, err)
		}
	}
	return &entities.DeploymentEntity{
		ID:          deployment.ID,
		ProjectID:   deployment.ProjectID,
		UserID:      deployment.UserID,
		Environment: deployment.Environment,
		Status:      deployment.Status,
		Provider:    deployment.Provider,
		Config:      config,
		Logs:        logs,
		URL:         deployment.URL,
		Error:       deployment.Error,
		Version:     deployment.Version,
		CreatedAt:   deployment.CreatedAt,
		UpdatedAt:   deployment.UpdatedAt,
		DeployedAt:  deployment.DeployedAt,
	}, nil
}
