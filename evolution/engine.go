package evolution

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/SvenDH/go-circle-evolution/fitness"
	"github.com/SvenDH/go-circle-evolution/render"
)

const DefaultGenes = 128

// RendererFactory creates independent renderers for parallel offspring.
type RendererFactory func() (render.Renderer, error)

type Option func(e *Engine)

// WithGenes sets the number of circles of a random initial champion.
func WithGenes(n int) Option {
	return func(e *Engine) { e.genes = n }
}

// WithSeedGenome starts from g instead of a random genome.
func WithSeedGenome(g *Genome) Option {
	return func(e *Engine) { e.seed = g }
}

func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithMutator(m Mutator) Option {
	return func(e *Engine) { e.mutate = m }
}

// WithStartIteration offsets the iteration counter, for resumed runs.
func WithStartIteration(n int) Option {
	return func(e *Engine) { e.iterations = n }
}

// WithOffspring evaluates k mutants per generation in parallel, each worker
// rendering with its own renderer from factory. The best mutant still has to
// beat the champion strictly to be accepted.
func WithOffspring(k int, factory RendererFactory) Option {
	return func(e *Engine) {
		e.offspring = k
		e.factory = factory
	}
}

// Engine runs a (1+1) hill climb: one mutant per generation, kept only when
// it scores strictly higher than the champion.
type Engine struct {
	target    *render.Raster
	evaluator fitness.Evaluator
	renderer  render.Renderer

	champion   *Specie
	fitness    float64
	scored     bool
	generation int
	iterations int

	genes     int
	seed      *Genome
	rng       *rand.Rand
	mutate    Mutator
	offspring int
	factory   RendererFactory
	workers   []render.Renderer

	reporters []Reporter
}

func NewEngine(target *render.Raster, evaluator fitness.Evaluator, renderer render.Renderer, opts ...Option) (*Engine, error) {
	e := &Engine{
		target:    target,
		evaluator: evaluator,
		renderer:  renderer,
		genes:     DefaultGenes,
		mutate:    Mutate,
		offspring: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if renderer.Shape() != target.Shape {
		return nil, fmt.Errorf("%w: renderer %s, target %s", fitness.ErrShapeMismatch, renderer.Shape(), target.Shape)
	}

	var err error
	if e.seed != nil {
		e.champion, err = NewSpecieFromGenome(renderer, e.seed)
	} else {
		e.champion, err = NewSpecie(renderer, e.genes, e.rng)
	}
	if err != nil {
		return nil, err
	}

	if e.offspring > 1 {
		if e.factory == nil {
			return nil, fmt.Errorf("evolution: %d offspring need a renderer factory", e.offspring)
		}
		e.workers = make([]render.Renderer, e.offspring)
		for i := range e.workers {
			if e.workers[i], err = e.factory(); err != nil {
				return nil, fmt.Errorf("%w: worker %d: %w", ErrRender, i, err)
			}
			if e.workers[i].Shape() != target.Shape {
				return nil, fmt.Errorf("%w: worker renderer %s, target %s", fitness.ErrShapeMismatch, e.workers[i].Shape(), target.Shape)
			}
		}
	}
	return e, nil
}

// Attach adds reporters that receive every event of subsequent runs.
func (e *Engine) Attach(reporters ...Reporter) {
	e.reporters = append(e.reporters, reporters...)
}

func (e *Engine) notify(ev Event) {
	for _, r := range e.reporters {
		r.Report(ev)
	}
}

func (e *Engine) Champion() *Specie { return e.champion }
func (e *Engine) Fitness() float64  { return e.fitness }
func (e *Engine) Generation() int   { return e.generation }
func (e *Engine) Iterations() int   { return e.iterations }

func (e *Engine) stats(start time.Time, interrupted bool) Stats {
	return Stats{
		Generation:  e.generation,
		Iterations:  e.iterations,
		Fitness:     e.fitness,
		Interrupted: interrupted,
		Elapsed:     time.Since(start),
	}
}

// Run evolves the champion for up to maxGenerations generations. Cancelling
// ctx stops the run between generations and is not an error: the returned
// Stats are marked Interrupted. A render or scoring failure ends the run with
// the champion of the last completed generation.
func (e *Engine) Run(ctx context.Context, maxGenerations int) (Stats, error) {
	start := time.Now()
	log := Logger()

	if !e.scored {
		fit, err := e.score(e.champion)
		if err != nil {
			e.notify(Stopped{Stats: e.stats(start, false), Err: err})
			return e.stats(start, false), err
		}
		e.fitness, e.scored = fit, true
	}
	log.Debug("evolution started", slog.Int("genes", e.champion.Genes()),
		slog.String("shape", e.target.Shape.String()), slog.Int("offspring", e.offspring))
	e.notify(Started{
		Shape:          e.target.Shape,
		Genes:          e.champion.Genes(),
		MaxGenerations: maxGenerations,
		Generation:     e.generation,
		Iteration:      e.iterations,
		Fitness:        e.fitness,
		Phenotype:      e.champion.phenotype,
	})

	interrupted := false
	for g := 0; g < maxGenerations; g++ {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		mutant, fit, err := e.breed()
		if err != nil {
			log.Error("evolution aborted", slog.Int("iteration", e.iterations), slog.Any("err", err))
			e.notify(Stopped{Stats: e.stats(start, false), Err: err})
			return e.stats(start, false), err
		}
		e.iterations++
		if fit > e.fitness {
			prev := e.fitness
			e.champion, e.fitness = mutant, fit
			e.generation++
			e.notify(Improved{
				Generation: e.generation,
				Iteration:  e.iterations,
				Fitness:    fit,
				Previous:   prev,
				Phenotype:  mutant.phenotype,
				Genome:     mutant.genome.Clone(),
			})
		}
	}
	if interrupted {
		log.Info("evolution interrupted", slog.Int("generation", e.generation), slog.Int("iteration", e.iterations))
	}
	stats := e.stats(start, interrupted)
	e.notify(Stopped{Stats: stats})
	return stats, nil
}

func (e *Engine) score(s *Specie) (float64, error) {
	if err := s.Render(); err != nil {
		return 0, err
	}
	return e.evaluator.Score(s.phenotype)
}

type offspring struct {
	specie  *Specie
	fitness float64
}

// breed produces the generation's best mutant and its fitness.
func (e *Engine) breed() (*Specie, float64, error) {
	if e.offspring <= 1 {
		m := e.champion.mutant(e.mutate(e.champion.genome, e.rng), e.renderer)
		fit, err := e.score(m)
		return m, fit, err
	}

	// mutants and RNG streams are derived on this goroutine so a seeded run
	// stays reproducible
	results := make([]offspring, e.offspring)
	for i := range results {
		rng := rand.New(rand.NewPCG(e.rng.Uint64(), e.rng.Uint64()))
		results[i].specie = e.champion.mutant(e.mutate(e.champion.genome, rng), e.workers[i])
	}

	p := pool.New().WithErrors().WithMaxGoroutines(e.offspring)
	for i := range results {
		p.Go(func() error {
			fit, err := e.score(results[i].specie)
			results[i].fitness = fit
			return err
		})
	}
	if err := p.Wait(); err != nil {
		return nil, 0, err
	}

	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].fitness > results[best].fitness {
			best = i
		}
	}
	return results[best].specie, results[best].fitness, nil
}
