package server

import (
	"html/template"
	"log"
	"net/http"

	"racetrack/geometry"
	"racetrack/grid_world"
	"racetrack/reinforcement"
)

const cellDim = 24

// cellView is a track cell reduced to what the page draws: its kind, and the greedy
// action at rest once a policy is available.
type cellView struct {
	X, Y  int
	Fill  string
	Arrow string
}

type indexView struct {
	Name    string
	Dim     int
	Width   int
	Height  int
	Cells   []cellView
	Trained bool
}

var fills = map[grid_world.Cell]string{
	grid_world.WALL:   "#2e7d32",
	grid_world.ROAD:   "#fafafa",
	grid_world.START:  "#1565c0",
	grid_world.FINISH: "#f9a825",
}

// The page bootstraps a websocket through which the server pushes training progress.
var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
	<head>
		<link rel="icon" href="data:,">
		<script>
			const ws = new WebSocket("ws://" + location.host + "/ws");
			ws.onerror = function (event) {
				console.log('WebSocket error: ', event);
			};
			ws.onmessage = function (event) {
				const p = JSON.parse(event.data);
				document.getElementById("progress").textContent =
					p.algorithm + " iteration " + p.iteration + " delta " + p.delta.toFixed(4) + " states " + p.states;
			};
		</script>
	</head>
	<body>
		<h3>{{ .Name }}</h3>
		<div id="progress">Training progress</div>
		<svg width="{{ .Width }}px" height="{{ .Height }}px" style="shape-rendering: crispEdges;">
			{{ range .Cells }}
			<rect x="{{ .X }}" y="{{ .Y }}" width="{{ $.Dim }}" height="{{ $.Dim }}" fill="{{ .Fill }}" stroke="#9e9e9e" stroke-width="1"></rect>
			{{ if .Arrow }}<text x="{{ .X }}" y="{{ .Y }}" dx="7" dy="17">{{ .Arrow }}</text>{{ end }}
			{{ end }}
		</svg>
		{{ if not .Trained }}<p>Policy available once training completes.</p>{{ end }}
	</body>
</html>
`))

// serveIndex draws the track, with the policy at rest once training is done.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	view := indexView{
		Name:   server.track.Name,
		Dim:    cellDim,
		Width:  server.track.Cols() * cellDim,
		Height: server.track.Rows() * cellDim,
	}

	var policy reinforcement.Policy
	select {
	case <-server.trained:
		view.Trained = true
		policy = server.policy
	default:
	}

	server.track.Visit(func(p geometry.Vector, cell grid_world.Cell) {
		cv := cellView{
			X:    p.Col * cellDim,
			Y:    p.Row * cellDim,
			Fill: fills[cell],
		}
		if policy != nil && (cell == grid_world.ROAD || cell == grid_world.START) {
			if action, ok := policy.BestAction(p, geometry.Vector{}); ok {
				cv.Arrow = reinforcement.ActionArrow(action)
			}
		}
		view.Cells = append(view.Cells, cv)
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, view); err != nil {
		log.Println("index:", err)
	}
}
