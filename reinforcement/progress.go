package reinforcement

import (
	"context"
	"time"
)

// Progress is a snapshot of training, published once per sweep or episode.
type Progress struct {
	Algorithm string        `json:"algorithm"`
	Iteration int           `json:"iteration"`
	Delta     float64       `json:"delta"`
	Epsilon   float64       `json:"epsilon,omitempty"`
	States    int           `json:"states"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ProgressFunc is a callback by which the training method can lend progress details,
// while exercising some level of control over its cancellation to prevent blocking.
// ProgressFunc is synchronous/blocking and should be defined to complete quickly.
type ProgressFunc func(context.Context, Progress)

func noProgress(context.Context, Progress) {}
