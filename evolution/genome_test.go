package evolution

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func literal3x5(t *testing.T) *Genome {
	t.Helper()
	g, err := GenomeFromRows([][]float64{
		{0.1, 0.1, 0.1, 0.1, 0.1},
		{0.2, 0.2, 0.2, 0.2, 0.2},
		{0.3, 0.3, 0.3, 0.3, 0.3},
	})
	if err != nil {
		t.Fatalf("GenomeFromRows: %v", err)
	}
	return g
}

func TestGenomeWidth(t *testing.T) {
	tests := []struct {
		channels, want int
		err            bool
	}{
		{1, 5, false},
		{3, 7, false},
		{2, 0, true},
		{4, 0, true},
	}
	for _, tt := range tests {
		got, err := GenomeWidth(tt.channels)
		if (err != nil) != tt.err || got != tt.want {
			t.Fatalf("GenomeWidth(%d) = %d, %v", tt.channels, got, err)
		}
		if err != nil && !errors.Is(err, ErrUnsupportedShape) {
			t.Fatalf("GenomeWidth(%d) err = %v, want ErrUnsupportedShape", tt.channels, err)
		}
	}
}

func TestRandomGenomeInUnitInterval(t *testing.T) {
	g, err := RandomGenome(64, 7, seeded(1))
	if err != nil {
		t.Fatalf("RandomGenome: %v", err)
	}
	if g.Genes() != 64 || g.Width() != 7 {
		t.Fatalf("dims = %dx%d", g.Genes(), g.Width())
	}
	if err := g.checkBounds(); err != nil {
		t.Fatal(err)
	}
	if _, err := RandomGenome(0, 5, seeded(1)); !errors.Is(err, ErrInvalidGenome) {
		t.Fatalf("zero genes err = %v", err)
	}
}

func TestGenomeFromRowsValidation(t *testing.T) {
	tests := [][][]float64{
		nil,
		{{}},
		{{0.1, 0.2}, {0.3}},
		{{0.1, 1.5}},
		{{-0.1, 0.5}},
	}
	for i, rows := range tests {
		if _, err := GenomeFromRows(rows); !errors.Is(err, ErrInvalidGenome) {
			t.Fatalf("case %d: err = %v, want ErrInvalidGenome", i, err)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := literal3x5(t)
	c := g.Clone()
	c.Set(0, 0, 0.9)
	if g.At(0, 0) != 0.1 {
		t.Fatalf("clone aliases original")
	}
	if g.Equal(c) {
		t.Fatalf("Equal reports modified clone as equal")
	}
}

func TestShiftUpwards(t *testing.T) {
	g := literal3x5(t)
	if hi := g.shift(0, 2); hi != 2 {
		t.Fatalf("shift returned row %d, want 2", hi)
	}
	want := [][]float64{
		{0.2, 0.2, 0.2, 0.2, 0.2},
		{0.3, 0.3, 0.3, 0.3, 0.3},
		{0.1, 0.1, 0.1, 0.1, 0.1},
	}
	if got := g.Rows(); !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestShiftDownwards(t *testing.T) {
	g := literal3x5(t)
	if hi := g.shift(2, 0); hi != 2 {
		t.Fatalf("shift returned row %d, want 2", hi)
	}
	want := [][]float64{
		{0.3, 0.3, 0.3, 0.3, 0.3},
		{0.1, 0.1, 0.1, 0.1, 0.1},
		{0.2, 0.2, 0.2, 0.2, 0.2},
	}
	if got := g.Rows(); !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestShiftSameRowIsNoop(t *testing.T) {
	g := literal3x5(t)
	before := g.Rows()
	if hi := g.shift(1, 1); hi != 1 {
		t.Fatalf("shift returned row %d, want 1", hi)
	}
	if !reflect.DeepEqual(g.Rows(), before) {
		t.Fatalf("rows changed: %v", g.Rows())
	}
}

func TestShiftPartialRange(t *testing.T) {
	g, _ := GenomeFromRows([][]float64{{0}, {0.25}, {0.5}, {0.75}, {1}})
	g.shift(3, 1)
	want := [][]float64{{0}, {0.75}, {0.25}, {0.5}, {1}}
	if got := g.Rows(); !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestGenomeChannels(t *testing.T) {
	for width, want := range map[int]int{5: 1, 7: 3} {
		g, _ := NewGenome(2, width)
		if got, err := g.Channels(); err != nil || got != want {
			t.Fatalf("Channels() for width %d = %d, %v", width, got, err)
		}
	}
	g, _ := NewGenome(2, 6)
	if _, err := g.Channels(); !errors.Is(err, ErrInvalidGenome) {
		t.Fatalf("err = %v, want ErrInvalidGenome", err)
	}
}
