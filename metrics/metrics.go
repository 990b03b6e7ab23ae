// Package metrics evaluates a predicted segmentation against a ground-truth
// label volume: overlap scores over the whole volume plus a per-slice Dice
// summary.
package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/medgo/go-medseg/nifti"
)

// BinarizeThreshold separates foreground from background in the input
// volumes, which may carry probabilities rather than labels.
const BinarizeThreshold = 0.5

// Report holds the evaluation result for one prediction/ground-truth pair.
type Report struct {
	// confusion counts over the whole volume
	TP, FP, FN, TN int

	Dice        float64
	IoU         float64
	Sensitivity float64
	Specificity float64

	// SliceDice is the Dice score per axial slice; slices empty in both
	// volumes count as 1.
	SliceDice     []float64
	MeanSliceDice float64
	StdSliceDice  float64
}

// Evaluate compares two volumes of identical dims. Values above
// BinarizeThreshold count as foreground.
func Evaluate(pred, truth *nifti.Volume) (*Report, error) {
	if pred.Nx != truth.Nx || pred.Ny != truth.Ny || pred.Nz != truth.Nz {
		return nil, fmt.Errorf("volume dims differ: pred %dx%dx%d, truth %dx%dx%d",
			pred.Nx, pred.Ny, pred.Nz, truth.Nx, truth.Ny, truth.Nz)
	}

	r := &Report{SliceDice: make([]float64, pred.Nz)}
	sliceSize := pred.Nx * pred.Ny

	for z := 0; z < pred.Nz; z++ {
		var tp, fp, fn int
		for i := z * sliceSize; i < (z+1)*sliceSize; i++ {
			p := pred.Data[i] > BinarizeThreshold
			t := truth.Data[i] > BinarizeThreshold
			switch {
			case p && t:
				tp++
			case p && !t:
				fp++
			case !p && t:
				fn++
			default:
				r.TN++
			}
		}
		r.TP += tp
		r.FP += fp
		r.FN += fn
		r.SliceDice[z] = dice(tp, fp, fn)
	}

	r.Dice = dice(r.TP, r.FP, r.FN)
	if union := r.TP + r.FP + r.FN; union > 0 {
		r.IoU = float64(r.TP) / float64(union)
	} else {
		r.IoU = 1
	}
	if pos := r.TP + r.FN; pos > 0 {
		r.Sensitivity = float64(r.TP) / float64(pos)
	} else {
		r.Sensitivity = 1
	}
	if neg := r.TN + r.FP; neg > 0 {
		r.Specificity = float64(r.TN) / float64(neg)
	} else {
		r.Specificity = 1
	}

	r.MeanSliceDice = stat.Mean(r.SliceDice, nil)
	r.StdSliceDice = stat.StdDev(r.SliceDice, nil)
	return r, nil
}

func dice(tp, fp, fn int) float64 {
	denom := 2*tp + fp + fn
	if denom == 0 {
		return 1 // both empty
	}
	return 2 * float64(tp) / float64(denom)
}

// String renders the report the way the metrics entrypoint prints it.
func (r *Report) String() string {
	return fmt.Sprintf(
		"dice=%.4f iou=%.4f sensitivity=%.4f specificity=%.4f slice_dice=%.4f+/-%.4f (tp=%d fp=%d fn=%d tn=%d)",
		r.Dice, r.IoU, r.Sensitivity, r.Specificity,
		r.MeanSliceDice, r.StdSliceDice,
		r.TP, r.FP, r.FN, r.TN,
	)
}
