package evolution

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/SvenDH/go-circle-evolution/fitness"
	"github.com/SvenDH/go-circle-evolution/render"
)

type recorder struct {
	events []Event
}

func (r *recorder) Report(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) improved() []Improved {
	var out []Improved
	for _, ev := range r.events {
		if im, ok := ev.(Improved); ok {
			out = append(out, im)
		}
	}
	return out
}

func grayTarget(size int, v uint8) *render.Raster {
	t := render.NewRaster(render.Shape{Height: size, Width: size, Channels: 1})
	t.Fill(v)
	return t
}

func newTestEngine(t *testing.T, target *render.Raster, opts ...Option) *Engine {
	t.Helper()
	return newEngineScoring(t, fitness.KindComposite, target, opts...)
}

func newEngineScoring(t *testing.T, kind string, target *render.Raster, opts ...Option) *Engine {
	t.Helper()
	eval, err := fitness.New(kind, target)
	if err != nil {
		t.Fatalf("fitness.New: %v", err)
	}
	e, err := NewEngine(target, eval, cpu(t, target.Shape), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func fixedMutant(rows [][]float64) Mutator {
	return func(*Genome, *rand.Rand) *Genome {
		g, err := GenomeFromRows(rows)
		if err != nil {
			panic(err)
		}
		return g
	}
}

func TestInvisibleChampionLosesToMatchingCircle(t *testing.T) {
	target := grayTarget(16, 128)
	invisible, _ := GenomeFromRows([][]float64{{0.5, 0.5, 1, 0.5, 0}})
	gray := 128.5 / 255

	rec := &recorder{}
	e := newTestEngine(t, target,
		WithSeedGenome(invisible),
		WithMutator(fixedMutant([][]float64{{0.5, 0.5, 1, gray, 1}})),
	)
	e.Attach(rec)

	stats, err := e.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	started, ok := rec.events[0].(Started)
	if !ok {
		t.Fatalf("first event = %T, want Started", rec.events[0])
	}
	mse, _ := fitness.NewMSE(target)
	if base, _ := mse.Score(started.Phenotype); base >= 0 {
		t.Fatalf("invisible champion mse score = %v, want below baseline", base)
	}

	improved := rec.improved()
	if len(improved) != 1 {
		t.Fatalf("got %d improvements, want 1", len(improved))
	}
	if improved[0].Fitness <= started.Fitness {
		t.Fatalf("mutant fitness %v does not exceed champion %v", improved[0].Fitness, started.Fitness)
	}
	if stats.Generation != 1 || e.Generation() != 1 || improved[0].Generation != 1 {
		t.Fatalf("generation = %d/%d, want 1", stats.Generation, e.Generation())
	}
	if e.Champion().Genome().At(0, 4) != 1 {
		t.Fatalf("champion was not replaced")
	}
	if _, ok := rec.events[len(rec.events)-1].(Stopped); !ok {
		t.Fatalf("last event = %T, want Stopped", rec.events[len(rec.events)-1])
	}
}

func TestEqualFitnessIsRejected(t *testing.T) {
	target := grayTarget(12, 90)
	rec := &recorder{}
	e := newTestEngine(t, target,
		WithGenes(4),
		WithRand(seeded(1)),
		WithMutator(func(g *Genome, _ *rand.Rand) *Genome { return g.Clone() }),
	)
	e.Attach(rec)
	champion := e.Champion()

	stats, err := e.Run(context.Background(), 25)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.Champion() != champion {
		t.Fatalf("champion replaced by an equally fit mutant")
	}
	if stats.Generation != 0 || len(rec.improved()) != 0 {
		t.Fatalf("generation = %d, improvements = %d, want 0", stats.Generation, len(rec.improved()))
	}
	if stats.Iterations != 25 {
		t.Fatalf("iterations = %d, want 25", stats.Iterations)
	}
}

func TestRunImprovesMonotonically(t *testing.T) {
	target := render.NewRaster(render.Shape{Height: 16, Width: 16, Channels: 3})
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			o := target.Offset(y, x)
			target.Pix[o], target.Pix[o+1], target.Pix[o+2] = uint8(y*16), uint8(x*16), 100
		}
	}
	rec := &recorder{}
	e := newTestEngine(t, target, WithGenes(8), WithRand(seeded(2)))
	e.Attach(rec)

	stats, err := e.Run(context.Background(), 300)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	start := rec.events[0].(Started).Fitness
	prev := start
	for _, im := range rec.improved() {
		if !(im.Fitness > prev) || im.Previous != prev {
			t.Fatalf("improvement %v after %v (previous %v)", im.Fitness, prev, im.Previous)
		}
		prev = im.Fitness
	}
	if stats.Fitness != prev || e.Fitness() != prev {
		t.Fatalf("final fitness %v, want %v", stats.Fitness, prev)
	}
	if stats.Generation != len(rec.improved()) || stats.Iterations != 300 {
		t.Fatalf("stats = %+v", stats)
	}
	if err := e.Champion().Genome().checkBounds(); err != nil {
		t.Fatal(err)
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newTestEngine(t, grayTarget(8, 60), WithGenes(3), WithRand(seeded(4)))
	stats, err := e.Run(ctx, 100)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !stats.Interrupted || stats.Iterations != 0 || stats.Generation != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if e.Champion().Phenotype() == nil {
		t.Fatalf("champion was never rendered")
	}
}

func TestCancelStopsAtGenerationBoundary(t *testing.T) {
	target := grayTarget(12, 128)
	invisible, _ := GenomeFromRows([][]float64{{0.5, 0.5, 1, 0.5, 0}})
	alpha := 0.0
	brighter := func(g *Genome, _ *rand.Rand) *Genome {
		alpha += 0.1
		out := g.Clone()
		out.Set(0, 4, alpha)
		return out
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newEngineScoring(t, fitness.KindMSE, target, WithSeedGenome(invisible), WithMutator(brighter))
	var champion *Genome
	e.Attach(ReporterFunc(func(ev Event) {
		if im, ok := ev.(Improved); ok {
			champion = im.Genome
			cancel()
		}
	}))

	stats, err := e.Run(ctx, 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !stats.Interrupted || stats.Generation != 1 || stats.Iterations != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if !e.Champion().Genome().Equal(champion) {
		t.Fatalf("champion differs from the last accepted genome")
	}

	// a resumed run continues from the same state
	stats, err = e.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Iterations != 3 || stats.Generation != 3 {
		t.Fatalf("resumed stats = %+v", stats)
	}
}

type failingRenderer struct {
	render.Renderer
	calls, failAt int
}

var errBoom = errors.New("context lost")

func (f *failingRenderer) Render(c render.Circles) (*render.Raster, error) {
	f.calls++
	if f.calls >= f.failAt {
		return nil, errBoom
	}
	return f.Renderer.Render(c)
}

func TestRendererFailureAbortsInLastState(t *testing.T) {
	target := grayTarget(10, 30)
	eval, _ := fitness.New(fitness.KindComposite, target)
	r := &failingRenderer{Renderer: cpu(t, target.Shape), failAt: 6}
	rec := &recorder{}
	e, err := NewEngine(target, eval, r, WithGenes(5), WithRand(seeded(8)))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.Attach(rec)

	stats, err := e.Run(context.Background(), 100)
	if !errors.Is(err, ErrRender) || !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want ErrRender wrapping errBoom", err)
	}
	// one initial render plus four completed generations
	if stats.Iterations != 4 || e.Iterations() != 4 {
		t.Fatalf("iterations = %d, want 4", stats.Iterations)
	}
	if stats.Generation != len(rec.improved()) {
		t.Fatalf("generation %d does not match %d improvements", stats.Generation, len(rec.improved()))
	}
	last := rec.events[len(rec.events)-1].(Stopped)
	if !errors.Is(last.Err, errBoom) {
		t.Fatalf("Stopped.Err = %v", last.Err)
	}
	if e.Champion().Phenotype() == nil {
		t.Fatalf("champion lost its phenotype")
	}
}

func TestEngineValidatesShapes(t *testing.T) {
	target := grayTarget(8, 50)
	eval, _ := fitness.New(fitness.KindSSIM, target)
	other := cpu(t, render.Shape{Height: 8, Width: 9, Channels: 1})
	if _, err := NewEngine(target, eval, other); !errors.Is(err, fitness.ErrShapeMismatch) {
		t.Fatalf("err = %v, want ErrShapeMismatch", err)
	}

	wide, _ := GenomeFromRows([][]float64{{0, 0, 0, 0, 0, 0, 0}})
	if _, err := NewEngine(target, eval, cpu(t, target.Shape), WithSeedGenome(wide)); !errors.Is(err, ErrInvalidGenome) {
		t.Fatalf("err = %v, want ErrInvalidGenome", err)
	}
}

func TestParallelOffspring(t *testing.T) {
	target := render.NewRaster(render.Shape{Height: 12, Width: 12, Channels: 1})
	for i := range target.Pix {
		target.Pix[i] = uint8(i % 200)
	}
	factory := func() (render.Renderer, error) { return render.NewCPU(target.Shape) }

	run := func() (Stats, []Improved) {
		rec := &recorder{}
		e := newTestEngine(t, target, WithGenes(6), WithRand(seeded(21)), WithOffspring(4, factory))
		e.Attach(rec)
		stats, err := e.Run(context.Background(), 60)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return stats, rec.improved()
	}

	a, improvedA := run()
	b, _ := run()
	if a.Fitness != b.Fitness || a.Generation != b.Generation {
		t.Fatalf("seeded parallel runs differ: %+v vs %+v", a, b)
	}
	for i := 1; i < len(improvedA); i++ {
		if !(improvedA[i].Fitness > improvedA[i-1].Fitness) {
			t.Fatalf("non increasing fitness at %d", i)
		}
	}
}

func TestOffspringNeedsFactory(t *testing.T) {
	target := grayTarget(8, 50)
	eval, _ := fitness.New(fitness.KindSSIM, target)
	if _, err := NewEngine(target, eval, cpu(t, target.Shape), WithOffspring(3, nil)); err == nil {
		t.Fatalf("expected an error without a renderer factory")
	}
}

func TestOffspringTiesNeverReplaceChampion(t *testing.T) {
	target := grayTarget(10, 70)
	factory := func() (render.Renderer, error) { return render.NewCPU(target.Shape) }
	rec := &recorder{}
	e := newTestEngine(t, target,
		WithGenes(4),
		WithRand(seeded(5)),
		WithMutator(func(g *Genome, _ *rand.Rand) *Genome { return g.Clone() }),
		WithOffspring(3, factory),
	)
	e.Attach(rec)
	champion := e.Champion()

	stats, err := e.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.Champion() != champion || stats.Generation != 0 || len(rec.improved()) != 0 {
		t.Fatalf("equally fit offspring replaced the champion: %+v", stats)
	}
	if stats.Iterations != 10 {
		t.Fatalf("iterations = %d, want 10", stats.Iterations)
	}
}

func TestOffspringTieGoesToFirstWorker(t *testing.T) {
	target := grayTarget(16, 128)
	invisible, _ := GenomeFromRows([][]float64{{0.5, 0.5, 1, 0.5, 0}})
	factory := func() (render.Renderer, error) { return render.NewCPU(target.Shape) }
	e := newTestEngine(t, target,
		WithSeedGenome(invisible),
		WithMutator(fixedMutant([][]float64{{0.5, 0.5, 1, 128.5 / 255, 1}})),
		WithOffspring(3, factory),
	)

	stats, err := e.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Generation != 1 {
		t.Fatalf("generation = %d, want 1", stats.Generation)
	}
	if e.Champion().renderer != e.workers[0] {
		t.Fatalf("accepted offspring was not the first worker's")
	}
}

func TestImprovedGenomeIsACopy(t *testing.T) {
	target := grayTarget(12, 128)
	invisible, _ := GenomeFromRows([][]float64{{0.5, 0.5, 1, 0.5, 0}})
	e := newTestEngine(t, target,
		WithSeedGenome(invisible),
		WithMutator(fixedMutant([][]float64{{0.5, 0.5, 1, 128.5 / 255, 1}})),
	)
	e.Attach(ReporterFunc(func(ev Event) {
		if im, ok := ev.(Improved); ok {
			im.Genome.Set(0, 4, 0)
		}
	}))

	if _, err := e.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := e.Champion().Genome().At(0, 4); got != 1 {
		t.Fatalf("reporter changed the champion genome: alpha = %v", got)
	}
}
