package evolution

import (
	"testing"
)

func TestMutateKeepsBounds(t *testing.T) {
	rng := seeded(7)
	g, err := RandomGenome(16, 7, rng)
	if err != nil {
		t.Fatalf("RandomGenome: %v", err)
	}
	for i := 0; i < 5000; i++ {
		g = Mutate(g, rng)
		if err := g.checkBounds(); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
	}
}

func TestMutateExtremes(t *testing.T) {
	rng := seeded(11)
	for _, v := range []float64{0, 1} {
		rows := make([][]float64, 4)
		for i := range rows {
			rows[i] = []float64{v, v, v, v, v}
		}
		g, _ := GenomeFromRows(rows)
		for i := 0; i < 1000; i++ {
			if err := Mutate(g, rng).checkBounds(); err != nil {
				t.Fatalf("value %v: %v", v, err)
			}
		}
	}
}

func TestMutateDoesNotAlias(t *testing.T) {
	rng := seeded(3)
	g, _ := RandomGenome(8, 5, rng)
	before := g.Rows()
	for i := 0; i < 200; i++ {
		m := Mutate(g, rng)
		if m == g || m.m == g.m {
			t.Fatalf("mutant shares storage with its parent")
		}
		m.Set(0, 0, 1-m.At(0, 0))
	}
	for i, row := range g.Rows() {
		for j, v := range row {
			if v != before[i][j] {
				t.Fatalf("parent changed at [%d,%d]", i, j)
			}
		}
	}
}

func TestMutateTouchesOneGeneOrRotates(t *testing.T) {
	rng := seeded(5)
	g, _ := RandomGenome(10, 5, rng)
	changed := map[int]int{}
	for i := 0; i < 2000; i++ {
		m := Mutate(g, rng)
		diff := 0
		for r := 0; r < g.Genes(); r++ {
			a, b := g.Row(r), m.Row(r)
			for c := range a {
				if a[c] != b[c] {
					diff++
					break
				}
			}
		}
		changed[diff]++
		if diff > 1 {
			// a rotation moves every row between the two picked genes; the
			// multiset of rows is preserved apart from one edited gene
			if !sameRowsButOne(g, m) {
				t.Fatalf("mutation %d changed %d rows without a rotation", i, diff)
			}
		}
	}
	if changed[0] == 0 || changed[1] == 0 {
		t.Fatalf("unexpected distribution of changed rows: %v", changed)
	}
}

func sameRowsButOne(a, b *Genome) bool {
	unmatched := 0
	used := make([]bool, b.Genes())
	for i := 0; i < a.Genes(); i++ {
		ra := a.Row(i)
		found := false
		for j := 0; j < b.Genes(); j++ {
			if used[j] {
				continue
			}
			rb := b.Row(j)
			eq := true
			for k := range ra {
				if ra[k] != rb[k] {
					eq = false
					break
				}
			}
			if eq {
				used[j], found = true, true
				break
			}
		}
		if !found {
			unmatched++
		}
	}
	return unmatched <= 1
}

func TestMutateIsReproducible(t *testing.T) {
	g, _ := RandomGenome(12, 7, seeded(1))
	a := Mutate(g, seeded(42))
	b := Mutate(g, seeded(42))
	if !a.Equal(b) {
		t.Fatalf("same seed produced different mutants")
	}
}
