// Command medseg-demo replays the interactive segmentation tutorial: it
// preprocesses one scan plus the configured clicks, runs a single forward
// pass through the exported Deepgrow model, restores the prediction to the
// original image frame and writes figures for every stage along the way.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/medgo/go-medseg/config"
	"github.com/medgo/go-medseg/deepgrow"
	"github.com/medgo/go-medseg/render"
	"github.com/medgo/go-medseg/transform"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the demo YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		log.Fatalf("creating output dir: %v", err)
	}

	engine, err := deepgrow.NewEngine(cfg.EngineConfig())
	if err != nil {
		log.Fatalf("initializing engine: %v", err)
	}
	defer engine.Destroy()

	fg, bg := cfg.Clicks()
	record := transform.NewRecord(cfg.Image, fg, bg)

	stage := 0
	observer := func(name string, r *transform.Record) {
		stage++
		log.Printf("[%02d] %-22s %s", stage, name, transform.Describe(r))
		if !cfg.Output.StageFrames || r.Image == nil {
			return
		}
		// overlay the prediction only while it lives in the same frame
		label := r.Pred
		if label != nil && !sameExtent(r.Image, label) {
			label = nil
		}
		path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("%02d_%s.png", stage, name))
		if err := render.Save(path, render.Panel{
			Title:    name,
			Image:    r.Image,
			Label:    label,
			Alpha:    0.5,
			Guidance: r.Guidance,
		}); err != nil {
			log.Fatalf("rendering stage %s: %v", name, err)
		}
	}

	if err := engine.Segment(record, observer); err != nil {
		log.Fatalf("segmentation failed: %v", err)
	}

	// final side-by-side image/label view in the original frame
	slice := transform.NewCompose(
		transform.ChannelFirst{},
		transform.FetchSlice{},
	)
	final := &transform.Record{Volume: record.Volume, SliceIndex: record.SliceIndex}
	if err := slice.Apply(final); err != nil {
		log.Fatalf("extracting final slice: %v", err)
	}

	resultPath := filepath.Join(cfg.Output.Dir, "result.png")
	if err := render.SideBySide(resultPath, final.Image, record.Pred, nil, 0.5); err != nil {
		log.Fatalf("rendering result: %v", err)
	}
	log.Printf("done: %s", resultPath)
}

// sameExtent reports whether two tensors share their trailing [Y X] dims.
func sameExtent(a, b *transform.Tensor) bool {
	if a == nil || b == nil || len(a.Shape) < 2 || len(b.Shape) < 2 {
		return false
	}
	ay, ax := a.Shape[len(a.Shape)-2], a.Shape[len(a.Shape)-1]
	by, bx := b.Shape[len(b.Shape)-2], b.Shape[len(b.Shape)-1]
	return ay == by && ax == bx
}
