// Package fitness scores rendered phenotypes against an immutable target.
// Higher scores are better.
package fitness

import (
	"errors"
	"fmt"

	"github.com/SvenDH/go-circle-evolution/render"
)

var (
	ErrShapeMismatch           = errors.New("fitness: phenotype and target shapes differ")
	ErrDegenerateNormalization = errors.New("fitness: target is already bimodal, MSE baseline is zero")
	ErrUnknownKind             = errors.New("fitness: unknown evaluator kind")
)

// Evaluator scores a phenotype. Implementations are pure functions of the
// phenotype and their target and are safe for concurrent use.
type Evaluator interface {
	Score(phenotype *render.Raster) (float64, error)
}

const (
	KindMSE       = "mse"
	KindSSIM      = "ssim"
	KindComposite = "composite"
)

// Kinds lists the evaluator names accepted by New.
var Kinds = []string{KindComposite, KindMSE, KindSSIM}

// New builds the evaluator registered under kind.
func New(kind string, target *render.Raster) (Evaluator, error) {
	var (
		e   Evaluator
		err error
	)
	switch kind {
	case KindMSE:
		e, err = NewMSE(target)
	case KindSSIM:
		e = NewSSIM(target, DefaultWindow)
	case KindComposite, "":
		e, err = NewDefault(target)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func checkShape(phenotype, target *render.Raster) error {
	if phenotype == nil || phenotype.Shape != target.Shape || len(phenotype.Pix) != len(target.Pix) {
		var got render.Shape
		if phenotype != nil {
			got = phenotype.Shape
		}
		return fmt.Errorf("%w: got %s, want %s", ErrShapeMismatch, got, target.Shape)
	}
	return nil
}
