package history

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SvenDH/go-circle-evolution/evolution"
)

// Reporter records one run per Started event. Database errors are logged and
// kept; they never stop the evolution.
type Reporter struct {
	repo   *Repository
	target string
	run    *Run
	err    error
}

func NewReporter(repo *Repository, target string) *Reporter {
	return &Reporter{repo: repo, target: target}
}

// RunId is the id of the current or last recorded run.
func (r *Reporter) RunId() string {
	if r.run == nil {
		return ""
	}
	return r.run.Id
}

func (r *Reporter) Err() error { return r.err }

func (r *Reporter) Report(ev evolution.Event) {
	switch ev := ev.(type) {
	case evolution.Started:
		r.run = &Run{
			Id:             ulid.Make().String(),
			Target:         r.target,
			Shape:          ev.Shape.String(),
			Genes:          ev.Genes,
			MaxGenerations: ev.MaxGenerations,
			StartedAt:      time.Now(),
			Generation:     ev.Generation,
			Iterations:     ev.Iteration,
			Fitness:        ev.Fitness,
			Status:         StatusRunning,
		}
		r.check(r.repo.AddRun(r.run))
	case evolution.Improved:
		if r.run == nil {
			return
		}
		r.check(r.repo.AddImprovement(&Improvement{
			RunId:      r.run.Id,
			Generation: ev.Generation,
			Iteration:  ev.Iteration,
			Fitness:    ev.Fitness,
			CreatedAt:  time.Now(),
		}))
	case evolution.Stopped:
		if r.run == nil {
			return
		}
		status := StatusFinished
		switch {
		case ev.Err != nil:
			status = StatusFailed
		case ev.Interrupted:
			status = StatusInterrupted
		}
		r.check(r.repo.FinishRun(r.run.Id, ev.Generation, ev.Iterations, ev.Fitness, status, ev.Err))
	}
}

func (r *Reporter) check(err error) {
	if err == nil {
		return
	}
	evolution.Logger().Error("recording run history", "run", r.RunId(), "err", err)
	if r.err == nil {
		r.err = err
	}
}
