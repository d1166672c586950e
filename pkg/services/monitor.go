package services

import (
	"context"
	"time"

	"github.com/tokamak-network/trh-pipeline/internal/logger"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/repositories"
	"github.com/tokamak-network/trh-pipeline/pkg/metrics"
	"go.uber.org/zap"
)

// StuckMonitor reports deployments that stopped progressing before a terminal status,
// for example after a crash or a failed corrective write. It only reads.
type StuckMonitor struct {
	repo     repositories.DeploymentRepository
	after    time.Duration
	interval time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewStuckMonitor(
	repo repositories.DeploymentRepository,
	after time.Duration,
	interval time.Duration,
	m *metrics.Metrics,
) *StuckMonitor {
	return &StuckMonitor{
		repo:     repo,
		after:    after,
		interval: interval,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start scans every interval until ctx is done.
func (m *StuckMonitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Scan(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("Stuck deployment scan failed", zap.Error(err))
			}
		}
	}
}

// Scan returns the non-terminal deployments not updated within the threshold.
func (m *StuckMonitor) Scan(ctx context.Context) ([]*entities.DeploymentEntity, error) {
	deployments, err := m.repo.ListDeployments(ctx, repositories.DeploymentFilter{
		Statuses: entities.NonTerminalStatuses,
	})
	if err != nil {
		return nil, err
	}

	cutoff := m.now().Add(-m.after)
	stuck := make([]*entities.DeploymentEntity, 0)
	for _, d := range deployments {
		if d.UpdatedAt.Before(cutoff) {
			stuck = append(stuck, d)
			logger.Warn("Deployment appears stuck",
				zap.String("deploymentId", d.ID),
				zap.String("projectId", d.ProjectID),
				zap.String("status", d.Status.String()),
				zap.Time("updatedAt", d.UpdatedAt),
			)
		}
	}
	m.metrics.SetStuckDeployments(len(stuck))
	return stuck, nil
}
