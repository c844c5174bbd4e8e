package render

import (
	"fmt"
	"math"
)

// CPU is a scan-fill rasterizer with per-circle alpha blending. Circles use an
// integer center and radius and cover every pixel with dx*dx+dy*dy <= r*r.
// Blending accumulates in float64 and is rounded to bytes once at the end.
type CPU struct {
	shape Shape
	acc   []float64
}

func NewCPU(s Shape) (*CPU, error) {
	if s.Height <= 0 || s.Width <= 0 || s.Channels <= 0 {
		return nil, fmt.Errorf("%w: shape %s", ErrInvalidInput, s)
	}
	return &CPU{shape: s, acc: make([]float64, s.Len())}, nil
}

func (r *CPU) Shape() Shape { return r.shape }

func (r *CPU) Render(c Circles) (*Raster, error) {
	if err := c.Validate(r.shape.Channels); err != nil {
		return nil, err
	}
	for i := range r.acc {
		r.acc[i] = 0
	}
	for i := 0; i < c.Count; i++ {
		r.fill(int(c.Pos[i][0]), int(c.Pos[i][1]), int(c.Radii[i]), c.Colors[i], c.Alphas[i])
	}

	out := NewRaster(r.shape)
	for i, v := range r.acc {
		out.Pix[i] = toByte(v)
	}
	return out, nil
}

func (r *CPU) fill(cy, cx, radius int, col []uint8, alpha float64) {
	if radius < 0 || alpha <= 0 {
		return
	}
	h, w, ch := r.shape.Height, r.shape.Width, r.shape.Channels
	y0, y1 := max(cy-radius, 0), min(cy+radius, h-1)
	for y := y0; y <= y1; y++ {
		dy := y - cy
		span := int(math.Sqrt(float64(radius*radius - dy*dy)))
		x0, x1 := max(cx-span, 0), min(cx+span, w-1)
		for x := x0; x <= x1; x++ {
			o := (y*w + x) * ch
			for k := 0; k < ch; k++ {
				r.acc[o+k] = alpha*float64(col[k]) + (1-alpha)*r.acc[o+k]
			}
		}
	}
}

func toByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
