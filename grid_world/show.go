package grid_world

import (
	"fmt"
	"io"

	"racetrack/geometry"

	"github.com/logrusorgru/aurora"
)

// Printer renders tracks to a console, optionally colorized.
type Printer struct {
	w  io.Writer
	au aurora.Aurora
}

// NewPrinter returns a Printer writing to w; colors toggles ANSI escapes.
func NewPrinter(w io.Writer, colors bool) *Printer {
	return &Printer{
		w:  w,
		au: aurora.NewAurora(colors),
	}
}

// Paint colors a string by the cell it describes.
func (p *Printer) Paint(cell Cell, s string) aurora.Value {
	switch cell {
	case WALL:
		return p.au.Green(s)
	case START:
		return p.au.Blue(s)
	case FINISH:
		return p.au.Yellow(s)
	}
	return p.au.White(s)
}

// ShowTrack prints the track, for visual reference.
func (p *Printer) ShowTrack(t *Track) {
	for _, row := range t.grid {
		for _, cell := range row {
			fmt.Fprint(p.w, p.Paint(cell, string(cell)+" "))
		}
		fmt.Fprintln(p.w)
	}
}

// ShowRacer prints the track with the racer marked at pos.
func (p *Printer) ShowRacer(t *Track, pos geometry.Vector) {
	for r, row := range t.grid {
		for c, cell := range row {
			if pos.Row == r && pos.Col == c {
				fmt.Fprint(p.w, p.au.Bold(p.au.Red("@ ")))
				continue
			}
			fmt.Fprint(p.w, p.Paint(cell, string(cell)+" "))
		}
		fmt.Fprintln(p.w)
	}
	fmt.Fprintln(p.w)
}

// Printf writes formatted text through the printer.
func (p *Printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

// Aurora exposes the colorizer, for views layered on top of the track.
func (p *Printer) Aurora() aurora.Aurora {
	return p.au
}
