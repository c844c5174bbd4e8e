// Package report holds evolution.Reporter implementations that record the
// progress of a run: structured log lines, CSV metrics and a fitness plot.
package report

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/SvenDH/go-circle-evolution/evolution"
)

// Log writes run progress to a slog.Logger.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (r *Log) Report(ev evolution.Event) {
	switch ev := ev.(type) {
	case evolution.Started:
		r.logger.Info("starting evolution",
			slog.String("shape", ev.Shape.String()),
			slog.Int("genes", ev.Genes),
			slog.Int("max_generations", ev.MaxGenerations),
			slog.Float64("fitness", ev.Fitness))
	case evolution.Improved:
		r.logger.Info("improved",
			slog.Int("generation", ev.Generation),
			slog.Int("iteration", ev.Iteration),
			slog.String("fitness", format(ev.Fitness)),
			slog.String("improvement", format(Improvement(ev.Previous, ev.Fitness))+"%"))
	case evolution.Stopped:
		attrs := []any{
			slog.Int("generation", ev.Generation),
			slog.Int("iterations", ev.Iterations),
			slog.String("fitness", format(ev.Fitness)),
			slog.Duration("elapsed", ev.Elapsed),
		}
		switch {
		case ev.Err != nil:
			r.logger.Error("evolution failed", append(attrs, slog.Any("err", ev.Err))...)
		case ev.Interrupted:
			r.logger.Warn("evolution interrupted", attrs...)
		default:
			r.logger.Info("evolution ended", attrs...)
		}
	}
}

// Improvement is the relative gain from prev to next in percent.
func Improvement(prev, next float64) float64 {
	if prev == 0 {
		return math.Inf(1)
	}
	return (next - prev) / math.Abs(prev) * 100
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}
