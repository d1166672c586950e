package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingDeployment() *DeploymentEntity {
	return &DeploymentEntity{
		ID:          "dep-1",
		ProjectID:   "proj-1",
		Environment: EnvironmentProduction,
		Status:      DeploymentStatusPending,
		Logs:        []string{LogDeploymentInitiated},
	}
}

func TestValidateTransition(t *testing.T) {
	allowed := [][2]DeploymentStatus{
		{DeploymentStatusPending, DeploymentStatusBuilding},
		{DeploymentStatusBuilding, DeploymentStatusDeploying},
		{DeploymentStatusBuilding, DeploymentStatusFailed},
		{DeploymentStatusDeploying, DeploymentStatusSuccess},
		{DeploymentStatusDeploying, DeploymentStatusFailed},
	}
	for _, tr := range allowed {
		assert.NoError(t, ValidateTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	rejected := [][2]DeploymentStatus{
		{DeploymentStatusPending, DeploymentStatusDeploying},
		{DeploymentStatusPending, DeploymentStatusSuccess},
		{DeploymentStatusPending, DeploymentStatusFailed},
		{DeploymentStatusBuilding, DeploymentStatusSuccess},
		{DeploymentStatusDeploying, DeploymentStatusBuilding},
		{DeploymentStatusSuccess, DeploymentStatusFailed},
		{DeploymentStatusFailed, DeploymentStatusBuilding},
		{DeploymentStatus("exploded"), DeploymentStatusBuilding},
	}
	for _, tr := range rejected {
		err := ValidateTransition(tr[0], tr[1])
		assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s", tr[0], tr[1])
	}
}

func TestHappyPathTransitions(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d := pendingDeployment()

	require.NoError(t, d.StartBuild(now))
	require.NoError(t, d.CompleteBuild(now))
	require.NoError(t, d.Succeed("https://proj-1-abc123.example.dev", now))

	assert.Equal(t, DeploymentStatusSuccess, d.Status)
	assert.Equal(t, []string{LogDeploymentInitiated, LogBuildStarted, LogBuildCompleted, LogDeploymentSuccessful}, d.Logs)
	assert.Equal(t, "https://proj-1-abc123.example.dev", d.URL)
	assert.Empty(t, d.Error)
	require.NotNil(t, d.DeployedAt)
	assert.Equal(t, now, *d.DeployedAt)
}

func TestFailSetsErrorOnly(t *testing.T) {
	now := time.Now().UTC()
	d := pendingDeployment()
	require.NoError(t, d.StartBuild(now))

	require.NoError(t, d.Fail("compiler exploded", now))

	assert.Equal(t, DeploymentStatusFailed, d.Status)
	assert.Equal(t, "compiler exploded", d.Error)
	assert.Empty(t, d.URL)
	assert.Nil(t, d.DeployedAt)
	assert.Equal(t, "Deployment failed: compiler exploded", d.Logs[len(d.Logs)-1])
}

func TestRejectedTransitionLeavesRecordUntouched(t *testing.T) {
	d := pendingDeployment()

	err := d.Succeed("https://x.example.dev", time.Now())

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, DeploymentStatusPending, d.Status)
	assert.Equal(t, []string{LogDeploymentInitiated}, d.Logs)
	assert.Empty(t, d.URL)
}

func TestCloneIsDeep(t *testing.T) {
	user := "user-1"
	d := pendingDeployment()
	d.UserID = &user
	d.Config = map[string]any{"framework": "next"}

	c := d.Clone()
	c.Logs[0] = "mutated"
	c.Config["framework"] = "vite"
	*c.UserID = "user-2"

	assert.Equal(t, LogDeploymentInitiated, d.Logs[0])
	assert.Equal(t, "next", d.Config["framework"])
	assert.Equal(t, "user-1", *d.UserID)
}

func TestEnvironmentIsValid(t *testing.T) {
	for _, env := range []Environment{EnvironmentProduction, EnvironmentStaging, EnvironmentPreview, EnvironmentDevelopment} {
		assert.True(t, env.IsValid())
	}
	assert.False(t, Environment("qa").IsValid())
	assert.False(t, Environment("").IsValid())
}
