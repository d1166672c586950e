package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tokamak-network/trh-pipeline/internal/logger"
	"github.com/tokamak-network/trh-pipeline/pkg/api/dtos"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
	"github.com/tokamak-network/trh-pipeline/pkg/metrics"
	"go.uber.org/zap"
)

var ErrInvalidInput = errors.New("invalid input")

type TaskManager interface {
	AddTask(task entities.Task) error
}

type Executor interface {
	Run(ctx context.Context, id string) error
}

type DeploymentService struct {
	repo        repositories.DeploymentRepository
	executor    Executor
	taskManager TaskManager
	provider    string
	metrics     *metrics.Metrics
	now         func() time.Time
	newID       func() string
}

func NewDeploymentService(
	repo repositories.DeploymentRepository,
	executor Executor,
	taskManager TaskManager,
	provider string,
	m *metrics.Metrics,
) *DeploymentService {
	return &DeploymentService{
		repo:        repo,
		executor:    executor,
		taskManager: taskManager,
		provider:    provider,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// CreateDeployment stores a pending deployment and schedules its pipeline.
// The returned record is the pending snapshot; the pipeline runs detached from ctx.
func (s *DeploymentService) CreateDeployment(
	ctx context.Context,
	request dtos.CreateDeploymentRequest,
	userID *string,
) (*entities.DeploymentEntity, error) {
	if err := request.Validate(); err != nil {
		logger.Warn("Invalid deployment request", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	provider := request.Provider
	if provider == "" {
		provider = s.provider
	}
	config := request.Config
	if config == nil {
		config = map[string]any{}
	}
	now := s.now()
	deployment := &entities.DeploymentEntity{
		ID:          s.newID(),
		ProjectID:   request.ProjectID,
		UserID:      userID,
		Environment: request.EnvironmentOrDefault(),
		Status:      entities.DeploymentStatusPending,
		Provider:    provider,
		Config:      config,
		Logs:        []string{entities.LogDeploymentInitiated},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.CreateDeployment(ctx, deployment)
	if err != nil {
		logger.Error("Failed to create deployment", zap.String("projectId", request.ProjectID), zap.Error(err))
		return nil, err
	}
	s.metrics.DeploymentCreated(created.Environment.String())
	logger.Info("Deployment created",
		zap.String("deploymentId", created.ID),
		zap.String("projectId", created.ProjectID),
		zap.String("environment", created.Environment.String()),
	)

	id := created.ID
	if err := s.taskManager.AddTask(func(taskCtx context.Context) {
		if err := s.executor.Run(taskCtx, id); err != nil {
			logger.Warn("Pipeline stopped early", zap.String("deploymentId", id), zap.Error(err))
		}
	}); err != nil {
		// the record stays pending and shows up in the stuck monitor
		logger.Error("Failed to schedule deployment pipeline", zap.String("deploymentId", id), zap.Error(err))
	}

	return created, nil
}

func (s *DeploymentService) GetDeployment(ctx context.Context, id string) (*entities.DeploymentEntity, error) {
	return s.repo.GetDeployment(ctx, id)
}

func (s *DeploymentService) GetDeploymentStatus(ctx context.Context, id string) (entities.DeploymentStatus, error) {
	deployment, err := s.repo.GetDeployment(ctx, id)
	if err != nil {
		return "", err
	}
	return deployment.Status, nil
}

// ListDeployments returns deployments newest first, optionally for one project.
// limit <= 0 returns everything.
func (s *DeploymentService) ListDeployments(
	ctx context.Context,
	projectID string,
	limit int,
) ([]*entities.DeploymentEntity, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	}
	return s.repo.ListDeployments(ctx, repositories.DeploymentFilter{ProjectID: projectID, Limit: limit})
}

// DeleteDeployment removes a deployment record. It does not stop a running pipeline;
// the pipeline notices on its next transition and stops.
func (s *DeploymentService) DeleteDeployment(ctx context.Context, id string) error {
	deleted, err := s.repo.DeleteDeployment(ctx, id)
	if err != nil {
		logger.Error("Failed to delete deployment", zap.String("deploymentId", id), zap.Error(err))
		return err
	}
	if !deleted {
		return repositories.ErrNotFound
	}
	logger.Info("Deployment deleted", zap.String("deploymentId", id))
	return nil
}

func (s *DeploymentService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
