package evolution

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidGenome    = errors.New("evolution: invalid genome")
	ErrUnsupportedShape = errors.New("evolution: unsupported raster shape")
	ErrRender           = errors.New("evolution: render failed")
)

// Column layout of a gene. Colors occupy [ColColor, width-2], alpha is last.
const (
	ColY = iota
	ColX
	ColRadius
	ColColor
)

// GenomeWidth returns the gene width for a raster with the given number of
// channels: position (2), radius, one color per channel and alpha.
func GenomeWidth(channels int) (int, error) {
	switch channels {
	case 1, 3:
		return channels + 4, nil
	}
	return 0, fmt.Errorf("%w: %d channels", ErrUnsupportedShape, channels)
}

// Genome is a matrix of genes, one circle per row. Every value lies in [0,1].
type Genome struct {
	m *mat.Dense
}

// NewGenome returns a zero filled genome.
func NewGenome(genes, width int) (*Genome, error) {
	if genes <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGenome, genes, width)
	}
	return &Genome{m: mat.NewDense(genes, width, nil)}, nil
}

// RandomGenome fills every cell with an independent uniform draw in [0,1).
func RandomGenome(genes, width int, rng *rand.Rand) (*Genome, error) {
	g, err := NewGenome(genes, width)
	if err != nil {
		return nil, err
	}
	raw := g.m.RawMatrix()
	for i := 0; i < genes; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+width]
		for j := range row {
			row[j] = rng.Float64()
		}
	}
	return g, nil
}

// GenomeFromRows copies rows into a new genome. Rows must be non-empty, of
// equal length and hold values in [0,1].
func GenomeFromRows(rows [][]float64) (*Genome, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrInvalidGenome)
	}
	width := len(rows[0])
	g, err := NewGenome(len(rows), width)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidGenome, i, len(row), width)
		}
		g.m.SetRow(i, row)
	}
	if err := g.checkBounds(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Genome) Genes() int {
	r, _ := g.m.Dims()
	return r
}

func (g *Genome) Width() int {
	_, c := g.m.Dims()
	return c
}

// Channels is the raster channel count a genome of this gene width draws.
func (g *Genome) Channels() (int, error) {
	switch w := g.Width(); w {
	case 5, 7:
		return w - 4, nil
	}
	return 0, fmt.Errorf("%w: gene width %d", ErrInvalidGenome, g.Width())
}

func (g *Genome) At(i, j int) float64 { return g.m.At(i, j) }

// Set writes a single cell. Values are clipped to [0,1].
func (g *Genome) Set(i, j int, v float64) { g.m.Set(i, j, clip(v)) }

// Row returns a copy of gene i.
func (g *Genome) Row(i int) []float64 {
	return mat.Row(nil, i, g.m)
}

// Rows returns a copy of the whole matrix.
func (g *Genome) Rows() [][]float64 {
	rows := make([][]float64, g.Genes())
	for i := range rows {
		rows[i] = g.Row(i)
	}
	return rows
}

func (g *Genome) Clone() *Genome {
	return &Genome{m: mat.DenseCopyOf(g.m)}
}

func (g *Genome) Equal(o *Genome) bool {
	if o == nil {
		return false
	}
	return mat.Equal(g.m, o.m)
}

// rotate circularly shifts rows lo..hi (inclusive) by one position. With
// dir < 0 every row moves up and row lo wraps to hi, otherwise every row moves
// down and row hi wraps to lo.
func (g *Genome) rotate(lo, hi, dir int) {
	if lo >= hi {
		return
	}
	if dir < 0 {
		first := g.Row(lo)
		for i := lo; i < hi; i++ {
			g.m.SetRow(i, g.m.RawRowView(i+1))
		}
		g.m.SetRow(hi, first)
		return
	}
	last := g.Row(hi)
	for i := hi; i > lo; i-- {
		g.m.SetRow(i, g.m.RawRowView(i-1))
	}
	g.m.SetRow(lo, last)
}

func (g *Genome) checkBounds() error {
	for i := 0; i < g.Genes(); i++ {
		for j, v := range g.m.RawRowView(i) {
			if !(v >= 0 && v <= 1) {
				return fmt.Errorf("%w: value %v at [%d,%d] outside [0,1]", ErrInvalidGenome, v, i, j)
			}
		}
	}
	return nil
}

func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
