package render

import (
	"fmt"
	"image"
	"image/color"
)

// Shape is the size of a raster: rows, columns and color channels.
type Shape struct {
	Height, Width, Channels int
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Height, s.Width, s.Channels)
}

// Len returns the number of bytes a raster of this shape holds.
func (s Shape) Len() int {
	return s.Height * s.Width * s.Channels
}

// Raster is a byte valued image stored row major, channels interleaved.
type Raster struct {
	Shape
	Pix []uint8
}

func NewRaster(s Shape) *Raster {
	return &Raster{Shape: s, Pix: make([]uint8, s.Len())}
}

// Offset returns the index of channel 0 of pixel (y, x).
func (r *Raster) Offset(y, x int) int {
	return (y*r.Width + x) * r.Channels
}

func (r *Raster) At(y, x, c int) uint8 {
	return r.Pix[r.Offset(y, x)+c]
}

func (r *Raster) Fill(v uint8) {
	for i := range r.Pix {
		r.Pix[i] = v
	}
}

func (r *Raster) Clone() *Raster {
	c := &Raster{Shape: r.Shape, Pix: make([]uint8, len(r.Pix))}
	copy(c.Pix, r.Pix)
	return c
}

// Image converts the raster to a standard library image. One channel rasters
// become *image.Gray, three channel rasters *image.NRGBA.
func (r *Raster) Image() image.Image {
	rect := image.Rect(0, 0, r.Width, r.Height)
	if r.Channels == 1 {
		img := image.NewGray(rect)
		for y := 0; y < r.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+r.Width], r.Pix[y*r.Width:(y+1)*r.Width])
		}
		return img
	}
	img := image.NewNRGBA(rect)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			o := r.Offset(y, x)
			img.SetNRGBA(x, y, color.NRGBA{R: r.Pix[o], G: r.Pix[o+1], B: r.Pix[o+2], A: 255})
		}
	}
	return img
}

// RGBA returns the raster as tightly packed RGBA bytes, expanding gray
// rasters to three equal channels.
func (r *Raster) RGBA() []byte {
	out := make([]byte, r.Width*r.Height*4)
	for i := 0; i < r.Width*r.Height; i++ {
		if r.Channels == 1 {
			v := r.Pix[i]
			out[i*4], out[i*4+1], out[i*4+2] = v, v, v
		} else {
			copy(out[i*4:i*4+3], r.Pix[i*3:i*3+3])
		}
		out[i*4+3] = 255
	}
	return out
}

// FromImage converts img to a raster with one (gray) or three (RGB) channels.
func FromImage(img image.Image, gray bool) *Raster {
	b := img.Bounds()
	channels := 3
	if gray {
		channels = 1
	}
	r := NewRaster(Shape{Height: b.Dy(), Width: b.Dx(), Channels: channels})
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			o := r.Offset(y, x)
			c := img.At(b.Min.X+x, b.Min.Y+y)
			if gray {
				r.Pix[o] = color.GrayModel.Convert(c).(color.Gray).Y
				continue
			}
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			r.Pix[o], r.Pix[o+1], r.Pix[o+2] = n.R, n.G, n.B
		}
	}
	return r
}
