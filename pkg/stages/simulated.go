package stages

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
)

var ErrSimulatedFailure = errors.New("simulated failure")

type SimulatedOptions struct {
	MinDuration time.Duration
	MaxDuration time.Duration
	// FailureRate is the probability in [0,1] that a run fails.
	FailureRate float64
	// Seed makes durations and failures reproducible when non-zero.
	Seed uint64
}

// Simulated stands in for real build or deploy work: it waits a random duration
// in [MinDuration, MaxDuration] and then fails with probability FailureRate.
type Simulated struct {
	name string
	opts SimulatedOptions

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulated(name string, opts SimulatedOptions) *Simulated {
	if opts.MinDuration < 0 {
		opts.MinDuration = 0
	}
	if opts.MaxDuration < opts.MinDuration {
		opts.MaxDuration = opts.MinDuration
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Simulated{
		name: name,
		opts: opts,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *Simulated) Name() string {
	return s.name
}

func (s *Simulated) Run(ctx context.Context, _ *entities.DeploymentEntity) error {
	wait, fail := s.draw()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if fail {
		return fmt.Errorf("%s stage: %w", s.name, ErrSimulatedFailure)
	}
	return nil
}

func (s *Simulated) draw() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wait := s.opts.MinDuration
	if spread := s.opts.MaxDuration - s.opts.MinDuration; spread > 0 {
		wait += time.Duration(s.rng.Int64N(int64(spread) + 1))
	}
	fail := s.opts.FailureRate > 0 && s.rng.Float64() < s.opts.FailureRate
	return wait, fail
}
