// Package experiment replays a trained policy a number of times and reports on the
// races: walls hit, moves made and wall-clock time per race.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"racetrack/grid_world"
	"racetrack/reinforcement"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Report holds the races of one trained policy plus its training facts.
type Report struct {
	Title        string
	Iterations   int
	TrainingTime time.Duration
	Races        []reinforcement.RaceResult
	// Unfinished counts races stopped by the move budget.
	Unfinished int
}

// Summary is the spread of one metric over all races.
type Summary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes the summary of a series; an empty series summarizes to zeros.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	return Summary{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(xs),
		Max:    floats.Max(xs),
	}
}

// Run replays the trained policy n times. Races exceeding their move budget are kept
// in the report and counted as unfinished; any other error aborts the run.
func Run(
	ctx context.Context,
	track *grid_world.Track,
	result *reinforcement.Result,
	n int,
	maxMoves int,
	printer *grid_world.Printer,
	rng *rand.Rand,
) (*Report, error) {
	report := &Report{
		Title:        result.Title,
		Iterations:   result.Iterations,
		TrainingTime: result.Elapsed,
	}

	opts := reinforcement.RaceOptions{
		Restart:          result.Restart,
		Exploration:      result.TestExploration,
		ActuationSuccess: result.ActuationSuccess,
		MaxMoves:         maxMoves,
		Printer:          printer,
	}
	for i := 0; i < n; i++ {
		race, err := reinforcement.Race(ctx, track, result.Store, opts, rng)
		if errors.Is(err, reinforcement.ErrMoveBudgetExceeded) {
			log.Printf("%s experiment %d: %v after %d moves\n", report.Title, i+1, err, race.Moves)
			report.Unfinished++
		} else if err != nil {
			return report, fmt.Errorf("%s experiment %d: %w", report.Title, i+1, err)
		}
		report.Races = append(report.Races, race)
	}

	return report, nil
}

// Walls returns the walls hit per race.
func (r *Report) Walls() []float64 {
	return r.series(func(race reinforcement.RaceResult) float64 { return float64(race.WallHits) })
}

// Moves returns the moves made per race.
func (r *Report) Moves() []float64 {
	return r.series(func(race reinforcement.RaceResult) float64 { return float64(race.Moves) })
}

// Seconds returns the wall-clock time per race.
func (r *Report) Seconds() []float64 {
	return r.series(func(race reinforcement.RaceResult) float64 { return race.Elapsed.Seconds() })
}

func (r *Report) series(fn func(reinforcement.RaceResult) float64) []float64 {
	xs := make([]float64, len(r.Races))
	for i, race := range r.Races {
		xs[i] = fn(race)
	}
	return xs
}

// Write renders the text report.
func (r *Report) Write(w io.Writer) error {
	walls, moves, seconds := Summarize(r.Walls()), Summarize(r.Moves()), Summarize(r.Seconds())

	lines := []string{
		fmt.Sprintf("Training Episodes: %d", r.Iterations),
		fmt.Sprintf("Training time: %v", r.TrainingTime),
		fmt.Sprintf("Experiments: %d (%d unfinished)", len(r.Races), r.Unfinished),
		fmt.Sprintf("AVG Walls hit: %.2f (std %.2f, min %.0f, max %.0f)", walls.Mean, walls.StdDev, walls.Min, walls.Max),
		fmt.Sprintf("AVG moves: %.2f (std %.2f, min %.0f, max %.0f)", moves.Mean, moves.StdDev, moves.Min, moves.Max),
		fmt.Sprintf("AVG time: %.8f", seconds.Mean),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the text report to <dir>/<title>.txt and returns its path.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, r.Title+".txt")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err = r.Write(f); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}
