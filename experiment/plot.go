package experiment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// metric is one plotted series per report.
type metric struct {
	title  string
	series func(*Report) []float64
}

var metrics = []metric{
	{"Walls hit over all Experiments", (*Report).Walls},
	{"Moves made over all Experiments", (*Report).Moves},
	{"Time per Experiment (s)", (*Report).Seconds},
}

// Plot renders one line chart per metric to w, with a series per report and the
// experiment number on the x axis.
func Plot(w io.Writer, reports ...*Report) error {
	numRaces := 0
	for _, report := range reports {
		if len(report.Races) > numRaces {
			numRaces = len(report.Races)
		}
	}

	var experiments []string
	for i := 1; i <= numRaces; i++ {
		experiments = append(experiments, fmt.Sprintf("%d", i))
	}

	page := components.NewPage()
	for _, m := range metrics {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{
				Title: m.title,
			}),
			charts.WithInitializationOpts(opts.Initialization{
				Theme: "shine",
			}),
		)

		line = line.SetXAxis(experiments)
		for _, report := range reports {
			items := make([]opts.LineData, 0)
			for _, x := range m.series(report) {
				items = append(items, opts.LineData{Value: x})
			}
			line.AddSeries(report.Title, items)
		}
		page.AddCharts(line)
	}

	return page.Render(w)
}

// SavePlot writes the charts to <dir>/<name>.html and returns its path.
func SavePlot(dir, name string, reports ...*Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err = Plot(f, reports...); err != nil {
		return "", fmt.Errorf("plot %s: %w", path, err)
	}
	return path, nil
}
