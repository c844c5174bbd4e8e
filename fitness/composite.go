package fitness

import (
	"github.com/SvenDH/go-circle-evolution/render"
)

// Composite averages the scores of its members.
type Composite struct {
	members []Evaluator
}

func NewComposite(members ...Evaluator) *Composite {
	return &Composite{members: members}
}

// NewDefault is the mean of the MSE and SSIM scores against target.
func NewDefault(target *render.Raster) (*Composite, error) {
	mse, err := NewMSE(target)
	if err != nil {
		return nil, err
	}
	return NewComposite(mse, NewSSIM(target, DefaultWindow)), nil
}

func (c *Composite) Score(phenotype *render.Raster) (float64, error) {
	if len(c.members) == 0 {
		return 0, nil
	}
	total := 0.0
	for _, m := range c.members {
		s, err := m.Score(phenotype)
		if err != nil {
			return 0, err
		}
		total += s
	}
	return total / float64(len(c.members)), nil
}
