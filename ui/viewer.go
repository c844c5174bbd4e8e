// Package ui shows the champion of a running evolution in an ebiten window.
package ui

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/SvenDH/go-circle-evolution/evolution"
	"github.com/SvenDH/go-circle-evolution/render"
)

type frame struct {
	raster     *render.Raster
	generation int
	fitness    float64
}

// Viewer is an ebiten.Game drawing the latest reported phenotype. Report may
// be called from any goroutine; it only swaps a pointer.
type Viewer struct {
	Scale     int
	ShowDebug bool

	shape  render.Shape
	latest atomic.Pointer[frame]
	drawn  *frame
	img    *ebiten.Image
	closed atomic.Bool
}

func NewViewer(shape render.Shape, scale int) *Viewer {
	if scale < 1 {
		scale = 1
	}
	return &Viewer{Scale: scale, shape: shape}
}

func (v *Viewer) Report(ev evolution.Event) {
	switch ev := ev.(type) {
	case evolution.Started:
		v.latest.Store(&frame{ev.Phenotype, ev.Generation, ev.Fitness})
	case evolution.Improved:
		v.latest.Store(&frame{ev.Phenotype, ev.Generation, ev.Fitness})
	}
}

// Show displays r outside of a run.
func (v *Viewer) Show(r *render.Raster) {
	v.latest.Store(&frame{raster: r})
}

// Close makes the window exit on its next update.
func (v *Viewer) Close() { v.closed.Store(true) }

func (v *Viewer) Update() error {
	if v.closed.Load() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		v.ShowDebug = !v.ShowDebug
	}
	return nil
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	f := v.latest.Load()
	if f == nil || f.raster == nil {
		return
	}
	if f != v.drawn {
		if v.img == nil {
			v.img = ebiten.NewImage(v.shape.Width, v.shape.Height)
		}
		v.img.WritePixels(f.raster.RGBA())
		v.drawn = f
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(v.Scale), float64(v.Scale))
	screen.DrawImage(v.img, op)
	if v.ShowDebug {
		msg := fmt.Sprintf("generation: %d\nfitness: %.5f\nTPS: %0.2f", f.generation, f.fitness, ebiten.ActualTPS())
		ebitenutil.DebugPrint(screen, msg)
	}
}

func (v *Viewer) Layout(outsideW, outsideH int) (int, int) {
	return v.shape.Width * v.Scale, v.shape.Height * v.Scale
}

// Run opens the window and blocks until it is closed. It must be called from
// the main goroutine.
func Run(v *Viewer, title string) error {
	ebiten.SetWindowSize(v.shape.Width*v.Scale, v.shape.Height*v.Scale)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(v); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
