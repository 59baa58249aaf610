package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"racetrack/racecar"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Algorithm kinds accepted in the config's algorithm.kind key.
const (
	VALUE_ITERATION = "value-iteration"
	Q_LEARNING      = "q-learning"
	SARSA           = "sarsa"
)

var (
	// ErrUnknownAlgorithm is returned for an algorithm.kind outside the supported set.
	ErrUnknownAlgorithm = errors.New("unknown algorithm kind")
)

type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TrainingConfig encodes algorithmic and training parameters outside of code: standard RL
// params like learning rates, gamma, epsilons, plus the algorithm selector and its deadline.
type TrainingConfig struct {
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `mapstructure:"hyperParams"`
	// Algorithm is an alg selector: kind, restart, workers, lookahead.
	// Viper lowercases keys, so keys here are all lowercase.
	Algorithm map[string]string `mapstructure:"algorithm"`
	// TrainingDeadline is a fixed duration describing when to terminate training.
	TrainingDeadline map[string]string `mapstructure:"trainingDeadline"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

func (cfg *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		if duration, err := time.ParseDuration(val); err != nil {
			return nil, nil, fmt.Errorf("training deadline %q: %w", val, err)
		} else {
			innerCtx, cancel := context.WithTimeout(ctx, duration)
			return innerCtx, cancel, nil
		}
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// Kind returns the configured algorithm, defaulting to value iteration.
func (cfg *TrainingConfig) Kind() (string, error) {
	kind, ok := cfg.Algorithm["kind"]
	if !ok {
		return VALUE_ITERATION, nil
	}
	switch kind {
	case VALUE_ITERATION, Q_LEARNING, SARSA:
		return kind, nil
	}
	return "", fmt.Errorf("%q: %w", kind, ErrUnknownAlgorithm)
}

// Restart reports whether a crash sends the racecar back to the start line.
func (cfg *TrainingConfig) Restart() (bool, error) {
	return cfg.algorithmBool("restart", false)
}

// BaseImmediateReward reports whether TD engines score the immediate reward of
// an action by the visit-penalized base reward of its landing cell instead of
// its stored value.
func (cfg *TrainingConfig) BaseImmediateReward() bool {
	return cfg.Algorithm["lookahead"] == "base"
}

// Workers returns the number of sweep workers; 1 selects the in-place sweep.
func (cfg *TrainingConfig) Workers() (int, error) {
	val, ok := cfg.Algorithm["workers"]
	if !ok {
		return 1, nil
	}
	workers, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("algorithm workers %q: %w", val, err)
	}
	if workers < 1 {
		workers = 1
	}
	return workers, nil
}

func (cfg *TrainingConfig) algorithmBool(key string, defaultVal bool) (bool, error) {
	val, ok := cfg.Algorithm[key]
	if !ok {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("algorithm %s %q: %w", key, val, err)
	}
	return b, nil
}

// HyperParams are the resolved numeric training parameters.
type HyperParams struct {
	Discount         float64
	Threshold        float64
	Eta              float64
	Epsilon          float64
	EpsilonDecay     float64
	Episodes         int
	MaxEpisodeSteps  int
	ActuationSuccess float64
	TestExploration  float64
	Seed             uint64
	Rewards          Rewards
}

// Params resolves every hyper parameter against its default.
func (cfg *TrainingConfig) Params() HyperParams {
	return HyperParams{
		Discount:         cfg.GetHyperParamOrDefault("discount", 0.9),
		Threshold:        cfg.GetHyperParamOrDefault("threshold", 5),
		Eta:              cfg.GetHyperParamOrDefault("eta", 0.05),
		Epsilon:          cfg.GetHyperParamOrDefault("epsilon", 1),
		EpsilonDecay:     cfg.GetHyperParamOrDefault("epsilonDecay", 0.9999),
		Episodes:         int(cfg.GetHyperParamOrDefault("episodes", 15000)),
		MaxEpisodeSteps:  int(cfg.GetHyperParamOrDefault("maxEpisodeSteps", 100000)),
		ActuationSuccess: cfg.GetHyperParamOrDefault("actuationSuccess", racecar.DEFAULT_ACTUATION_SUCCESS),
		TestExploration:  cfg.GetHyperParamOrDefault("testExploration", 0.01),
		Seed:             uint64(cfg.GetHyperParamOrDefault("seed", 1)),
		Rewards: Rewards{
			Movement: cfg.GetHyperParamOrDefault("movementCost", DefaultRewards.Movement),
			Wall:     cfg.GetHyperParamOrDefault("wallReward", DefaultRewards.Wall),
			Finish:   cfg.GetHyperParamOrDefault("finishReward", DefaultRewards.Finish),
		},
	}
}

// FUTURE: viper is stateful and not very friendly toward multiple independent configs,
// hence the new instance per load.
func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := &TrainingConfig{}
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, err
	}

	if _, err = innerConfig.Kind(); err != nil {
		return nil, err
	}
	return innerConfig, nil
}
