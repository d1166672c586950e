// Package stages holds the units of work a deployment passes through.
package stages

import (
	"context"

	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
)

const (
	NameBuild  = "build"
	NameDeploy = "deploy"
)

// Stage is one unit of pipeline work. Run blocks until the work is done, fails,
// or ctx is cancelled. It must not mutate the deployment it receives.
type Stage interface {
	Name() string
	Run(ctx context.Context, deployment *entities.DeploymentEntity) error
}

// Func adapts a plain function into a Stage.
type Func struct {
	StageName string
	Fn        func(ctx context.Context, deployment *entities.DeploymentEntity) error
}

func (f Func) Name() string {
	return f.StageName
}

func (f Func) Run(ctx context.Context, deployment *entities.DeploymentEntity) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx, deployment)
}

// Succeed returns a stage that completes immediately.
func Succeed(name string) Stage {
	return Func{StageName: name}
}

// Fail returns a stage that always fails with err.
func Fail(name string, err error) Stage {
	return Func{
		StageName: name,
		Fn: func(context.Context, *entities.DeploymentEntity) error {
			return err
		},
	}
}
