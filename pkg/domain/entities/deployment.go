package entities

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTransition = errors.New("invalid status transition")

const (
	LogDeploymentInitiated  = "Deployment initiated"
	LogBuildStarted         = "Build started"
	LogBuildCompleted       = "Build completed"
	LogDeploymentSuccessful = "Deployment successful"
)

// FailureLog formats the log line appended when a deployment fails.
func FailureLog(message string) string {
	return fmt.Sprintf("Deployment failed: %s", message)
}

type DeploymentEntity struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"projectId"`
	UserID      *string          `json:"userId,omitempty"`
	Environment Environment      `json:"environment"`
	Status      DeploymentStatus `json:"status"`
	Provider    string           `json:"provider"`
	Config      map[string]any   `json:"config"`
	Logs        []string         `json:"logs"`
	URL         string           `json:"url,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	DeployedAt  *time.Time       `json:"deployedAt,omitempty"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Version     int64            `json:"-"`
}

// Clone returns a deep copy so callers never share the logs slice or config map with a store.
func (d *DeploymentEntity) Clone() *DeploymentEntity {
	if d == nil {
		return nil
	}
	c := *d
	if d.UserID != nil {
		userID := *d.UserID
		c.UserID = &userID
	}
	if d.DeployedAt != nil {
		deployedAt := *d.DeployedAt
		c.DeployedAt = &deployedAt
	}
	c.Logs = append([]string(nil), d.Logs...)
	if d.Config != nil {
		c.Config = make(map[string]any, len(d.Config))
		for k, v := range d.Config {
			c.Config[k] = v
		}
	}
	return &c
}

// validTransitions defines the allowed state transitions.
var validTransitions = map[DeploymentStatus][]DeploymentStatus{
	DeploymentStatusPending:   {DeploymentStatusBuilding},
	DeploymentStatusBuilding:  {DeploymentStatusDeploying, DeploymentStatusFailed},
	DeploymentStatusDeploying: {DeploymentStatusSuccess, DeploymentStatusFailed},
	DeploymentStatusSuccess:   {},
	DeploymentStatusFailed:    {},
}

// ValidateTransition checks if a status transition is valid.
func ValidateTransition(from, to DeploymentStatus) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// StartBuild moves a pending deployment into the build stage.
func (d *DeploymentEntity) StartBuild(now time.Time) error {
	return d.transition(DeploymentStatusBuilding, LogBuildStarted, now)
}

// CompleteBuild moves a building deployment into the deploy stage.
func (d *DeploymentEntity) CompleteBuild(now time.Time) error {
	return d.transition(DeploymentStatusDeploying, LogBuildCompleted, now)
}

// Succeed finishes a deploying deployment with its public url.
func (d *DeploymentEntity) Succeed(url string, now time.Time) error {
	if url == "" {
		return errors.New("successful deployment requires a url")
	}
	if err := d.transition(DeploymentStatusSuccess, LogDeploymentSuccessful, now); err != nil {
		return err
	}
	d.URL = url
	d.Error = ""
	deployedAt := now
	d.DeployedAt = &deployedAt
	return nil
}

// Fail terminates a building or deploying deployment with an error message.
func (d *DeploymentEntity) Fail(message string, now time.Time) error {
	if err := d.transition(DeploymentStatusFailed, FailureLog(message), now); err != nil {
		return err
	}
	d.Error = message
	d.URL = ""
	return nil
}

func (d *DeploymentEntity) transition(to DeploymentStatus, logLine string, now time.Time) error {
	if err := ValidateTransition(d.Status, to); err != nil {
		return err
	}
	d.Status = to
	d.Logs = append(d.Logs, logLine)
	d.UpdatedAt = now
	return nil
}
