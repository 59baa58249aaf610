package reinforcement

import (
	"context"
	"fmt"
	"log"
	"time"

	"racetrack/grid_world"

	"golang.org/x/exp/rand"
)

// Trainer is implemented by both learning engines.
type Trainer interface {
	Train(ctx context.Context, progressFn ProgressFunc) (int, error)
}

// Result is a trained policy plus the facts needed to replay and report on it.
type Result struct {
	Title      string
	Kind       string
	Restart    bool
	Store      *Store
	Iterations int
	Elapsed    time.Duration
	// Replay parameters: the exploration floor is zero for value iteration.
	TestExploration  float64
	ActuationSuccess float64
}

// Title names a training run the way reports and plots are named.
func Title(trackName, kind string, restart bool) string {
	if kind == VALUE_ITERATION {
		return fmt.Sprintf("%s_VIteration_Restart_%t", trackName, restart)
	}
	return fmt.Sprintf("%s_QLearn_Restart_%t_SARSA_%t", trackName, restart, kind == SARSA)
}

// Train builds a fresh store for the track and trains the configured engine on it.
// If training is cancelled the partial result is returned along with the error.
func Train(
	ctx context.Context,
	track *grid_world.Track,
	cfg *TrainingConfig,
	rng *rand.Rand,
	progressFn ProgressFunc,
) (*Result, error) {
	kind, err := cfg.Kind()
	if err != nil {
		return nil, err
	}
	restart, err := cfg.Restart()
	if err != nil {
		return nil, err
	}
	workers, err := cfg.Workers()
	if err != nil {
		return nil, err
	}

	params := cfg.Params()
	store := NewStore(track, params.Rewards)
	result := &Result{
		Title:            Title(track.Name, kind, restart),
		Kind:             kind,
		Restart:          restart,
		Store:            store,
		TestExploration:  params.TestExploration,
		ActuationSuccess: params.ActuationSuccess,
	}

	var trainer Trainer
	switch kind {
	case VALUE_ITERATION:
		trainer = NewValueIteration(store, params, workers)
		result.TestExploration = 0
	default:
		trainer = NewTemporalDifference(store, params, kind == SARSA, restart, cfg.BaseImmediateReward(), rng)
	}

	log.Printf("Training %s\n", result.Title)
	start := time.Now()
	result.Iterations, err = trainer.Train(ctx, progressFn)
	result.Elapsed = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("train %s after %d iterations: %w", result.Title, result.Iterations, err)
	}

	log.Printf("%s converged after %d iterations in %v, %d states\n",
		result.Title, result.Iterations, result.Elapsed, store.Len())
	return result, nil
}
