// Command medseg-metrics evaluates a predicted segmentation against a
// ground-truth label volume and prints the overlap report. It is the
// entrypoint baked into the metrics container: one pass, fail-fast, no
// retries.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/medgo/go-medseg/metrics"
	"github.com/medgo/go-medseg/nifti"
)

func main() {
	predPath := flag.String("pred", "/data/pred.nii.gz", "predicted label volume")
	truthPath := flag.String("truth", "/data/label.nii.gz", "ground-truth label volume")
	flag.Parse()

	pred, err := nifti.Load(*predPath)
	if err != nil {
		log.Fatalf("loading prediction: %v", err)
	}
	truth, err := nifti.Load(*truthPath)
	if err != nil {
		log.Fatalf("loading ground truth: %v", err)
	}

	report, err := metrics.Evaluate(pred, truth)
	if err != nil {
		log.Fatalf("evaluating: %v", err)
	}

	fmt.Fprintln(os.Stdout, report.String())
}
