package fitness

import (
	"gonum.org/v1/gonum/stat"

	"github.com/SvenDH/go-circle-evolution/render"
)

const (
	DefaultWindow = 7

	dataRange = 255.0
	k1        = 0.01
	k2        = 0.03
)

var (
	c1 = (k1 * dataRange) * (k1 * dataRange)
	c2 = (k2 * dataRange) * (k2 * dataRange)
)

// SSIM scores by mean structural similarity over all square windows that fit
// inside the image, computed per channel and averaged. Window statistics use
// sample (n-1) variance and covariance. Scores lie roughly in [-1, 1].
type SSIM struct {
	target *render.Raster
	window int
	planes [][]float64
}

func NewSSIM(target *render.Raster, window int) *SSIM {
	window = min(window, target.Height, target.Width)
	if window < 1 {
		window = 1
	}
	return &SSIM{target: target, window: window, planes: planes(target)}
}

func planes(r *render.Raster) [][]float64 {
	p := make([][]float64, r.Channels)
	for c := range p {
		p[c] = make([]float64, r.Height*r.Width)
	}
	for i := 0; i < r.Height*r.Width; i++ {
		for c := 0; c < r.Channels; c++ {
			p[c][i] = float64(r.Pix[i*r.Channels+c])
		}
	}
	return p
}

func (s *SSIM) Score(phenotype *render.Raster) (float64, error) {
	if err := checkShape(phenotype, s.target); err != nil {
		return 0, err
	}
	if len(s.target.Pix) == 0 {
		return 1, nil
	}
	got := planes(phenotype)
	total := 0.0
	for c := range got {
		total += s.plane(got[c], s.planes[c])
	}
	return total / float64(len(got)), nil
}

func (s *SSIM) plane(x, y []float64) float64 {
	w, width := s.window, s.target.Width
	n := w * w
	wx := make([]float64, n)
	wy := make([]float64, n)

	sum, count := 0.0, 0
	for top := 0; top+w <= s.target.Height; top++ {
		for left := 0; left+w <= width; left++ {
			for dy := 0; dy < w; dy++ {
				row := (top+dy)*width + left
				copy(wx[dy*w:(dy+1)*w], x[row:row+w])
				copy(wy[dy*w:(dy+1)*w], y[row:row+w])
			}
			sum += window(wx, wy)
			count++
		}
	}
	return sum / float64(count)
}

func window(x, y []float64) float64 {
	var mx, vx, my, vy, cov float64
	if len(x) > 1 {
		mx, vx = stat.MeanVariance(x, nil)
		my, vy = stat.MeanVariance(y, nil)
		cov = stat.Covariance(x, y, nil)
	} else {
		mx, my = x[0], y[0]
	}
	a := (2*mx*my + c1) * (2*cov + c2)
	b := (mx*mx + my*my + c1) * (vx + vy + c2)
	return a / b
}
