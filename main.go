/*
Racetrack trains a racecar to cross a grid track from its start line to its finish line
as quickly as possible, using value iteration, Q-learning or SARSA over a tabular
state space of (position, velocity). The car is driven by an unreliable actuator, so the
learned policy has to cope with accelerations that silently fail. Once trained, the policy
is replayed over a number of experiments whose walls hit, moves and times are reported,
optionally plotted, and optionally served over http along with live training progress.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"racetrack/experiment"
	"racetrack/geometry"
	"racetrack/grid_world"
	"racetrack/reinforcement"
	"racetrack/server"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

const (
	resultsDir = "results"
	// Episodic progress is logged every this many episodes; sweeps are always logged.
	logEvery = 100
)

var (
	dbg         *bool
	configPath  *string
	trackPath   *string
	experiments *int
	serve       *bool
	host        *string
	port        *string
	plot        *bool
	addr        string
)

// TODO: per 12-factor rules, these should be taken from env or config-map; KISS for now.
func init() {
	dbg = flag.Bool("debug", false, "debug mode: small built-in track, and races are printed")
	configPath = flag.String("config", "./config.yaml", "The training config")
	trackPath = flag.String("track", "", "A track file; the built-in track is used if empty")
	experiments = flag.Int("experiments", 10, "The number of races run on the trained policy")
	serve = flag.Bool("serve", false, "Serve the policy and training progress over http")
	host = flag.String("host", "", "The host ip")
	port = flag.String("port", "8080", "The host port")
	plot = flag.Bool("plot", false, "Plot the experiments to html")
	flag.Parse()
	addr = *host + ":" + *port
}

func selectTrack() (*grid_world.Track, error) {
	if *trackPath != "" {
		return grid_world.Load(*trackPath)
	}
	if *dbg {
		return grid_world.NewTrack("debug", grid_world.DebugTrack)
	}
	return grid_world.NewTrack("full", grid_world.FullTrack)
}

func runApp() (err error) {
	var algConfig *reinforcement.TrainingConfig
	if algConfig, err = reinforcement.FromYaml(*configPath); err != nil {
		return
	}

	appCtx, appCancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer appCancel()

	var track *grid_world.Track
	if track, err = selectTrack(); err != nil {
		return
	}

	printer := grid_world.NewPrinter(os.Stdout, true)
	printer.ShowTrack(track)

	// The server starts ahead of training so clients can watch progress.
	group, groupCtx := errgroup.WithContext(appCtx)
	var srv *server.Server
	progress := make(chan reinforcement.Progress)
	if *serve {
		srv = server.NewServer(groupCtx, addr, track, progress)
		group.Go(func() error {
			return srv.Serve(groupCtx)
		})
	}

	trainingCtx, trainingCancel, err := algConfig.WithTrainingDeadline(groupCtx)
	if err != nil {
		return
	}
	defer trainingCancel()

	rng := rand.New(rand.NewSource(algConfig.Params().Seed))
	result, err := reinforcement.Train(
		trainingCtx,
		track,
		algConfig,
		rng,
		exportProgress(progress, *serve))
	if errors.Is(err, context.DeadlineExceeded) && result != nil {
		// The deadline bounds training only; the partial policy is still raced.
		log.Println(err)
		err = nil
	}
	if err != nil {
		return
	}

	reinforcement.ShowPolicy(printer, result.Store, track, geometry.Vector{})
	if srv != nil {
		srv.SetPolicy(result.Store)
	}

	var racePrinter *grid_world.Printer
	if *dbg {
		racePrinter = printer
	}
	var report *experiment.Report
	if report, err = experiment.Run(
		groupCtx,
		track,
		result,
		*experiments,
		reinforcement.DEFAULT_MAX_MOVES,
		racePrinter,
		rng,
	); err != nil {
		return
	}

	if err = report.Write(os.Stdout); err != nil {
		return
	}
	var path string
	if path, err = report.Save(resultsDir); err != nil {
		return
	}
	log.Println("Report saved to", path)

	if *plot {
		if path, err = experiment.SavePlot(resultsDir, report.Title, report); err != nil {
			return
		}
		log.Println("Plot saved to", path)
	}

	if srv != nil {
		log.Println("Serving until interrupted")
		err = group.Wait()
	}
	return
}

// exportProgress logs training progress periodically and, when serving, hands each
// update to the server without ever stalling training on a slow consumer.
func exportProgress(updates chan<- reinforcement.Progress, serving bool) reinforcement.ProgressFunc {
	return func(_ context.Context, p reinforcement.Progress) {
		if p.Algorithm == reinforcement.VALUE_ITERATION || p.Iteration%logEvery == 1 {
			log.Printf("%s iteration %d: delta %.4f epsilon %.4f states %d\n",
				p.Algorithm, p.Iteration, p.Delta, p.Epsilon, p.States)
		}
		if !serving {
			return
		}
		select {
		case updates <- p:
		default:
		}
	}
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
