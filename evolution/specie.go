package evolution

import (
	"fmt"
	"math/rand/v2"

	"github.com/SvenDH/go-circle-evolution/render"
)

// RadiusDivisor scales the radius column: a radius of 1 spans a third of the
// average of the raster's height and width.
const RadiusDivisor = 3.0

// Specie pairs a genome with its rendered phenotype.
type Specie struct {
	shape     render.Shape
	genome    *Genome
	phenotype *render.Raster
	renderer  render.Renderer
}

// NewSpecie creates a specie with a random genome of the given number of genes,
// sized for the renderer's raster shape.
func NewSpecie(renderer render.Renderer, genes int, rng *rand.Rand) (*Specie, error) {
	width, err := GenomeWidth(renderer.Shape().Channels)
	if err != nil {
		return nil, err
	}
	g, err := RandomGenome(genes, width, rng)
	if err != nil {
		return nil, err
	}
	return &Specie{shape: renderer.Shape(), genome: g, renderer: renderer}, nil
}

// NewSpecieFromGenome adopts g, which must match the renderer's channel count
// and hold values in [0,1].
func NewSpecieFromGenome(renderer render.Renderer, g *Genome) (*Specie, error) {
	width, err := GenomeWidth(renderer.Shape().Channels)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: nil genome", ErrInvalidGenome)
	}
	if g.Width() != width {
		return nil, fmt.Errorf("%w: width %d, want %d for %d channels",
			ErrInvalidGenome, g.Width(), width, renderer.Shape().Channels)
	}
	if err := g.checkBounds(); err != nil {
		return nil, err
	}
	return &Specie{shape: renderer.Shape(), genome: g, renderer: renderer}, nil
}

func (s *Specie) Genes() int { return s.genome.Genes() }

// Genome returns the specie's own genome. Changing it leaves the phenotype
// stale; mutate a Clone instead.
func (s *Specie) Genome() *Genome { return s.genome }

func (s *Specie) Shape() render.Shape       { return s.shape }
func (s *Specie) Phenotype() *render.Raster { return s.phenotype }

// Circles converts the genome to renderer input in pixel space.
func (s *Specie) Circles() render.Circles {
	n, width := s.genome.Genes(), s.genome.Width()
	h, w := float64(s.shape.Height), float64(s.shape.Width)
	radius := (h + w) / 2 / RadiusDivisor

	c := render.Circles{
		Count:  n,
		Pos:    make([][2]float64, n),
		Radii:  make([]float64, n),
		Colors: make([][]uint8, n),
		Alphas: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		row := s.genome.m.RawRowView(i)
		c.Pos[i] = [2]float64{row[ColY] * h, row[ColX] * w}
		c.Radii[i] = row[ColRadius] * radius
		col := make([]uint8, width-ColColor-1)
		for k := range col {
			col[k] = uint8(row[ColColor+k] * 255)
		}
		c.Colors[i] = col
		c.Alphas[i] = row[width-1]
	}
	return c
}

// Render recomputes the phenotype from the genome.
func (s *Specie) Render() error {
	img, err := s.renderer.Render(s.Circles())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	s.phenotype = img
	return nil
}

// mutant wraps a mutated genome in a new, unrendered specie sharing renderer.
func (s *Specie) mutant(g *Genome, renderer render.Renderer) *Specie {
	return &Specie{shape: s.shape, genome: g, renderer: renderer}
}
