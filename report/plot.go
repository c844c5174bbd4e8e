package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/SvenDH/go-circle-evolution/evolution"
)

// Plot collects the fitness of every generation and saves a
// fitness-vs-generation chart when the run stops. The image format follows
// the extension of path.
type Plot struct {
	path  string
	title string
	pts   plotter.XYs
	err   error
}

func NewPlot(path, title string) *Plot {
	return &Plot{path: path, title: title}
}

func (p *Plot) Report(ev evolution.Event) {
	switch ev := ev.(type) {
	case evolution.Started:
		p.pts = append(p.pts, plotter.XY{X: float64(ev.Generation), Y: ev.Fitness})
	case evolution.Improved:
		p.pts = append(p.pts, plotter.XY{X: float64(ev.Generation), Y: ev.Fitness})
	case evolution.Stopped:
		if p.err = p.Save(); p.err != nil {
			evolution.Logger().Error("saving fitness plot", "path", p.path, "err", p.err)
		}
	}
}

// Points returns the collected (generation, fitness) pairs.
func (p *Plot) Points() plotter.XYs { return p.pts }

func (p *Plot) Err() error { return p.err }

func (p *Plot) Save() error {
	if len(p.pts) == 0 {
		return nil
	}
	pl := plot.New()
	pl.Title.Text = p.title
	pl.X.Label.Text = "Generation"
	pl.Y.Label.Text = "Fitness"

	line, err := plotter.NewLine(p.pts)
	if err != nil {
		return fmt.Errorf("fitness plot: %w", err)
	}
	pl.Add(line, plotter.NewGrid())
	if err := pl.Save(6*vg.Inch, 4*vg.Inch, p.path); err != nil {
		return fmt.Errorf("fitness plot: %w", err)
	}
	return nil
}
