// Package server exposes a trained racetrack policy over http: an index page drawing
// the track and policy, a read-only policy lookup, and a websocket stream of training progress.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"racetrack/geometry"
	"racetrack/grid_world"
	"racetrack/racecar"
	"racetrack/reinforcement"

	"github.com/gorilla/mux"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

// In-flight requests get this long to complete once serving is cancelled.
const shutdownGracePeriod = 2 * time.Second

// Server serves one track and the policy trained on it. Policy lookups answer 503
// until SetPolicy is called; progress flows to every websocket client meanwhile.
type Server struct {
	addr     string
	track    *grid_world.Track
	progress *hub[reinforcement.Progress]

	trained   chan struct{}
	trainOnce sync.Once
	policy    reinforcement.Policy
}

// NewServer merges the progress sources and starts relaying them to clients until ctx is done.
func NewServer(
	ctx context.Context,
	addr string,
	track *grid_world.Track,
	progressSources ...<-chan reinforcement.Progress,
) *Server {
	server := &Server{
		addr:     addr,
		track:    track,
		progress: newHub[reinforcement.Progress](),
		trained:  make(chan struct{}),
	}
	go server.progress.run(ctx, channerics.Merge(ctx.Done(), progressSources...))
	return server
}

// SetPolicy publishes the trained policy; only the first call has any effect.
func (server *Server) SetPolicy(policy reinforcement.Policy) {
	server.trainOnce.Do(func() {
		server.policy = policy
		close(server.trained)
	})
}

// Router builds the http routes.
func (server *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/track", server.serveTrack).Methods(http.MethodGet)
	router.HandleFunc(
		"/policy/{row:[0-9]+}/{col:[0-9]+}/{vrow:-?[0-9]+}/{vcol:-?[0-9]+}",
		server.servePolicy,
	).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)
	return router
}

// Serve listens until ctx is done, then shuts down gracefully. Returns nil on a
// shutdown, else the listener's error.
func (server *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    server.addr,
		Handler: server.Router(),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("Serving %s on %s\n", server.track.Name, server.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return group.Wait()
}

type trackResponse struct {
	Name   string            `json:"name"`
	Rows   []string          `json:"rows"`
	Starts []geometry.Vector `json:"starts"`
}

func (server *Server) serveTrack(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, trackResponse{
		Name:   server.track.Name,
		Rows:   server.track.Lines(),
		Starts: server.track.StartCells(),
	})
}

type policyResponse struct {
	Position geometry.Vector `json:"position"`
	Velocity geometry.Vector `json:"velocity"`
	Action   geometry.Vector `json:"action"`
	Arrow    string          `json:"arrow"`
}

// servePolicy answers the greedy action at a (position, velocity).
func (server *Server) servePolicy(w http.ResponseWriter, r *http.Request) {
	select {
	case <-server.trained:
	default:
		http.Error(w, "training in progress", http.StatusServiceUnavailable)
		return
	}

	vars := mux.Vars(r)
	ints := map[string]int{}
	for _, key := range []string{"row", "col", "vrow", "vcol"} {
		val, err := strconv.Atoi(vars[key])
		if err != nil {
			http.Error(w, fmt.Sprintf("%s: %v", key, err), http.StatusBadRequest)
			return
		}
		ints[key] = val
	}

	position := geometry.Vector{Row: ints["row"], Col: ints["col"]}
	velocity := geometry.Vector{Row: ints["vrow"], Col: ints["vcol"]}
	if _, err := server.track.Classify(position); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if velocity.Clamp(racecar.MIN_VELOCITY, racecar.MAX_VELOCITY) != velocity {
		http.Error(w, fmt.Sprintf("velocity %v out of range", velocity), http.StatusBadRequest)
		return
	}

	action, ok := server.policy.BestAction(position, velocity)
	if !ok {
		http.Error(w, fmt.Sprintf("no action learned at %v %v", position, velocity), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, policyResponse{
		Position: position,
		Velocity: velocity,
		Action:   action,
		Arrow:    reinforcement.ActionArrow(action),
	})
}

// serveWebsocket streams training progress to the client until it disconnects.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	updates := server.progress.subscribe()
	defer server.progress.unsubscribe(updates)

	cli, err := NewClient(updates, w, r)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	defer cli.Close()

	if err = cli.Sync(); err != nil {
		log.Println("websocket:", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Println("encode:", err)
	}
}
