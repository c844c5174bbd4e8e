package fitness

import (
	"github.com/SvenDH/go-circle-evolution/render"
)

// MSE scores by mean squared error, normalized against the error of a
// binarized copy of the target. A phenotype equal to the target scores 1, one
// as bad as the binarized baseline scores 0 and worse ones go negative.
type MSE struct {
	target   *render.Raster
	maxError float64
}

func NewMSE(target *render.Raster) (*MSE, error) {
	m := &MSE{target: target, maxError: binarizedError(target)}
	if m.maxError == 0 {
		return nil, ErrDegenerateNormalization
	}
	return m, nil
}

// binarizedError is the mean squared error between the target and the target
// with every byte snapped to the nearer of 0 and 255.
func binarizedError(target *render.Raster) float64 {
	if len(target.Pix) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range target.Pix {
		snapped := 0.0
		if v >= 128 {
			snapped = 255
		}
		d := snapped - float64(v)
		sum += d * d
	}
	return sum / float64(len(target.Pix))
}

// MaxError returns the normalization constant.
func (m *MSE) MaxError() float64 { return m.maxError }

func (m *MSE) Score(phenotype *render.Raster) (float64, error) {
	if err := checkShape(phenotype, m.target); err != nil {
		return 0, err
	}
	return (m.maxError - meanSquaredError(phenotype.Pix, m.target.Pix)) / m.maxError, nil
}

func meanSquaredError(a, b []uint8) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum / float64(len(a))
}
