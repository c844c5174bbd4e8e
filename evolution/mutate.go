package evolution

import (
	"math/rand/v2"
)

const (
	resetProbability = 0.25
	minStepDivisor   = 4
	maxStepDivisor   = 12
)

// Mutator produces a modified copy of a genome. It must not modify its input.
type Mutator func(g *Genome, rng *rand.Rand) *Genome

// Mutate returns a mutated copy of g.
//
// A random gene is picked along with a change count c in [0, width]. The
// maximal count triggers a structural move first: the rows between the gene
// and a second random gene are rotated by one, the mutation continues on the
// higher of the two rows and c drops by one. Then c distinct columns of the
// gene are either reset to fresh uniform values (25%) or nudged by
// U(-0.5,0.5)/k with k in [4,12] and clipped to [0,1].
func Mutate(g *Genome, rng *rand.Rand) *Genome {
	out := g.Clone()
	genes, width := out.Genes(), out.Width()

	y := rng.IntN(genes)
	change := rng.IntN(width + 1)
	if change == width {
		y = out.shift(y, rng.IntN(genes))
		change--
	}

	cols := rng.Perm(width)[:change]
	if rng.Float64() < resetProbability {
		for _, c := range cols {
			out.m.Set(y, c, rng.Float64())
		}
		return out
	}

	k := float64(minStepDivisor + rng.IntN(maxStepDivisor-minStepDivisor+1))
	for _, c := range cols {
		out.m.Set(y, c, clip(out.m.At(y, c)+(rng.Float64()-0.5)/k))
	}
	return out
}

// shift rotates the rows between genes y and j by one position, upwards when
// y < j and downwards otherwise, and returns the higher of the two indices.
func (g *Genome) shift(y, j int) int {
	lo, hi, dir := y, j, -1
	if y >= j {
		lo, hi, dir = j, y, 1
	}
	g.rotate(lo, hi, dir)
	return hi
}
