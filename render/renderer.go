package render

import (
	"errors"
	"fmt"
)

var ErrInvalidInput = errors.New("render: invalid input")

// Circles is one batch of circles in pixel space, painted in slice order.
type Circles struct {
	Count  int
	Pos    [][2]float64 // y, x
	Radii  []float64
	Colors [][]uint8 // one entry per channel
	Alphas []float64
}

// Validate checks that every slice holds Count entries and that colors match
// the channel count of the target raster.
func (c Circles) Validate(channels int) error {
	if len(c.Pos) != c.Count || len(c.Radii) != c.Count || len(c.Colors) != c.Count || len(c.Alphas) != c.Count {
		return fmt.Errorf("%w: expected %d circles, got pos=%d radii=%d colors=%d alphas=%d",
			ErrInvalidInput, c.Count, len(c.Pos), len(c.Radii), len(c.Colors), len(c.Alphas))
	}
	for i, col := range c.Colors {
		if len(col) != channels {
			return fmt.Errorf("%w: circle %d has %d color channels, want %d", ErrInvalidInput, i, len(col), channels)
		}
	}
	return nil
}

// Renderer turns a batch of circles into a raster.
//
// Implementations must be deterministic and composite strictly in order,
// starting from an all zero buffer:
//
//	result = alpha*circle + (1-alpha)*current
//
// A Renderer may hold state (buffers, GPU contexts) and is not safe for
// concurrent use unless documented otherwise.
type Renderer interface {
	Render(c Circles) (*Raster, error)
	Shape() Shape
}
