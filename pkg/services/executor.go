package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tokamak-network/trh-pipeline/internal/logger"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
	"github.com/tokamak-network/trh-pipeline/pkg/metrics"
	"github.com/tokamak-network/trh-pipeline/pkg/stages"
	"go.uber.org/zap"
)

const unknownErrorMessage = "unknown error"

// ErrStorage marks a transition that could not be persisted.
var ErrStorage = errors.New("storage failure")

type URLGenerator interface {
	Generate(projectID string, domain string) (string, error)
}

// DeploymentExecutor drives one deployment through build and deploy.
// Every transition goes through the repository's UpdateDeployment.
type DeploymentExecutor struct {
	repo    repositories.DeploymentRepository
	urls    URLGenerator
	domain  string
	build   stages.Stage
	deploy  stages.Stage
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewDeploymentExecutor(
	repo repositories.DeploymentRepository,
	urls URLGenerator,
	domain string,
	build stages.Stage,
	deploy stages.Stage,
	m *metrics.Metrics,
) *DeploymentExecutor {
	return &DeploymentExecutor{
		repo:    repo,
		urls:    urls,
		domain:  domain,
		build:   build,
		deploy:  deploy,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the pipeline for id until it reaches a terminal status.
//
// Stage failures are recorded on the deployment and Run returns nil. A non-nil
// error means the pipeline stopped early: the deployment vanished, was already
// started elsewhere, ctx was cancelled, or storage failed.
func (e *DeploymentExecutor) Run(ctx context.Context, id string) error {
	log := logger.L().With(zap.String("deploymentId", id))

	deployment, err := e.repo.UpdateDeployment(ctx, id, func(d *entities.DeploymentEntity) error {
		return d.StartBuild(e.now())
	})
	if err != nil {
		return e.transitionFailed(ctx, log, id, entities.DeploymentStatusBuilding, err)
	}
	log = log.With(zap.String("projectId", deployment.ProjectID))
	log.Info("Build started", zap.String("status", deployment.Status.String()))

	if err := e.runStage(ctx, log, e.build, deployment); err != nil {
		return e.stageFailed(ctx, log, deployment, e.build.Name(), err)
	}

	deployment, err = e.repo.UpdateDeployment(ctx, id, func(d *entities.DeploymentEntity) error {
		return d.CompleteBuild(e.now())
	})
	if err != nil {
		return e.transitionFailed(ctx, log, id, entities.DeploymentStatusDeploying, err)
	}
	log.Info("Build completed", zap.String("status", deployment.Status.String()))

	if err := e.runStage(ctx, log, e.deploy, deployment); err != nil {
		return e.stageFailed(ctx, log, deployment, e.deploy.Name(), err)
	}

	url, err := e.urls.Generate(deployment.ProjectID, e.domain)
	if err != nil {
		return e.stageFailed(ctx, log, deployment, e.deploy.Name(), err)
	}

	deployment, err = e.repo.UpdateDeployment(ctx, id, func(d *entities.DeploymentEntity) error {
		return d.Succeed(url, e.now())
	})
	if err != nil {
		return e.transitionFailed(ctx, log, id, entities.DeploymentStatusSuccess, err)
	}
	e.metrics.DeploymentFinished(deployment.Environment.String(), deployment.Status.String())
	log.Info("Deployment successful", zap.String("url", deployment.URL))
	return nil
}

func (e *DeploymentExecutor) runStage(
	ctx context.Context,
	log *zap.Logger,
	stage stages.Stage,
	deployment *entities.DeploymentEntity,
) error {
	log.Debug("Stage running", zap.String("stage", stage.Name()))
	start := time.Now()
	err := stage.Run(ctx, deployment)
	e.metrics.StageObserved(stage.Name(), err, time.Since(start))
	return err
}

// stageFailed records a stage error on the deployment.
func (e *DeploymentExecutor) stageFailed(
	ctx context.Context,
	log *zap.Logger,
	deployment *entities.DeploymentEntity,
	stage string,
	stageErr error,
) error {
	if ctx.Err() != nil {
		// shutting down: leave the last written state for the stuck monitor
		log.Warn("Pipeline cancelled", zap.String("stage", stage), zap.Error(ctx.Err()))
		return ctx.Err()
	}

	message := failureMessage(stageErr)
	log.Warn("Stage failed", zap.String("stage", stage), zap.Error(stageErr))

	failed, err := e.repo.UpdateDeployment(ctx, deployment.ID, func(d *entities.DeploymentEntity) error {
		return d.Fail(message, e.now())
	})
	if err != nil {
		return e.transitionFailed(ctx, log, deployment.ID, entities.DeploymentStatusFailed, err)
	}
	e.metrics.DeploymentFinished(failed.Environment.String(), failed.Status.String())
	log.Info("Deployment failed", zap.String("status", failed.Status.String()), zap.String("error", message))
	return nil
}

// transitionFailed handles an UpdateDeployment error. Storage errors get one
// corrective attempt to mark the deployment failed.
func (e *DeploymentExecutor) transitionFailed(
	ctx context.Context,
	log *zap.Logger,
	id string,
	target entities.DeploymentStatus,
	err error,
) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		log.Warn("Deployment disappeared, stopping pipeline", zap.String("status", target.String()))
		return err
	case errors.Is(err, entities.ErrInvalidTransition):
		log.Warn("Deployment is not in the expected status, stopping pipeline",
			zap.String("status", target.String()), zap.Error(err))
		return err
	case ctx.Err() != nil:
		log.Warn("Pipeline cancelled", zap.String("status", target.String()), zap.Error(ctx.Err()))
		return ctx.Err()
	}

	log.Error("Failed to persist deployment transition", zap.String("status", target.String()), zap.Error(err))
	storageErr := fmt.Errorf("%w: %v", ErrStorage, err)

	message := fmt.Sprintf("storage error while moving to %s: %v", target, err)
	failed, corrErr := e.repo.UpdateDeployment(ctx, id, func(d *entities.DeploymentEntity) error {
		return markFailed(d, message, e.now())
	})
	if corrErr != nil {
		e.metrics.StorageFailure(false)
		log.Error("Corrective update failed, deployment left in its last written state",
			zap.Error(corrErr))
		return storageErr
	}
	e.metrics.StorageFailure(true)
	if failed.Status == entities.DeploymentStatusFailed {
		e.metrics.DeploymentFinished(failed.Environment.String(), failed.Status.String())
	}
	log.Warn("Deployment marked failed after storage error", zap.String("status", failed.Status.String()))
	return storageErr
}

// markFailed fails d from any non-terminal status. A pending deployment passes
// through building first so the history stays forward-only.
func markFailed(d *entities.DeploymentEntity, message string, now time.Time) error {
	if d.Status.IsTerminal() {
		return nil
	}
	if d.Status == entities.DeploymentStatusPending {
		if err := d.StartBuild(now); err != nil {
			return err
		}
	}
	return d.Fail(message, now)
}

func failureMessage(err error) string {
	if err == nil || err.Error() == "" {
		return unknownErrorMessage
	}
	return err.Error()
}
