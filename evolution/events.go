package evolution

import (
	"time"

	"github.com/SvenDH/go-circle-evolution/render"
)

// Event is any of Started, Improved or Stopped.
type Event interface{}

// Started is sent once, after the initial champion has been scored.
type Started struct {
	Shape          render.Shape
	Genes          int
	MaxGenerations int
	Generation     int
	Iteration      int
	Fitness        float64
	Phenotype      *render.Raster
}

// Improved is sent whenever a mutant replaces the champion. Phenotype belongs
// to the new champion and must not be modified; Genome is a copy the reporter
// may keep or change.
type Improved struct {
	Generation int
	Iteration  int
	Fitness    float64
	Previous   float64
	Phenotype  *render.Raster
	Genome     *Genome
}

// Stats summarizes a run.
type Stats struct {
	Generation  int
	Iterations  int
	Fitness     float64
	Interrupted bool
	Elapsed     time.Duration
}

// Stopped is sent once when Run returns, with the error that ended it, if any.
type Stopped struct {
	Stats
	Err error
}

// Reporter receives engine events. Report is called on the engine's
// goroutine and should return quickly.
type Reporter interface {
	Report(ev Event)
}

type ReporterFunc func(ev Event)

func (f ReporterFunc) Report(ev Event) { f(ev) }
