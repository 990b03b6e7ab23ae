package deepgrow

import (
	"fmt"

	"github.com/medgo/go-medseg"
	"github.com/medgo/go-medseg/transform"
	"github.com/up-zero/gotool/convertutil"
	ort "github.com/yalue/onnxruntime_go"
)

// Engine holds the ONNX session for one loaded Deepgrow model.
type Engine struct {
	session *ort.DynamicAdvancedSession
	config  Config
}

// NewEngine initializes the Deepgrow inference engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.InputName == "" {
		cfg.InputName = "image"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "pred"
	}

	onnxConfig := new(medseg.OnnxConfig)
	if err := convertutil.CopyProperties(cfg, onnxConfig); err != nil {
		return nil, fmt.Errorf("copying config: %w", err)
	}
	if err := onnxConfig.New(); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		onnxConfig.SessionOptions,
	)
	if err != nil {
		return nil, fmt.Errorf("creating ONNX session: %w", err)
	}

	return &Engine{
		session: session,
		config:  cfg,
	}, nil
}

// Destroy releases the session.
func (e *Engine) Destroy() error {
	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			return fmt.Errorf("destroying ONNX session: %w", err)
		}
	}
	return nil
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Predict executes exactly one forward pass. The prepared [3, H, W] input is
// wrapped as a (1, 3, H, W) batch; the (1, 1, H, W) score map comes back as a
// [1, H, W] tensor. Scores are raw logits, Postprocess turns them into a
// label.
func (e *Engine) Predict(input *transform.Tensor) (*transform.Tensor, error) {
	if input == nil || len(input.Shape) != 3 {
		return nil, fmt.Errorf("want a [C Y X] input tensor, have %v", input)
	}
	c, h, w := input.Shape[0], input.Shape[1], input.Shape[2]

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(c), int64(h), int64(w)), input.Data)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := e.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}

	shape := out.GetShape()
	if len(shape) != 4 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}

	pred := transform.NewTensor(int(shape[1]), int(shape[2]), int(shape[3]))
	copy(pred.Data, out.GetData())
	return pred, nil
}

// Segment runs the full pipeline on one record: preprocessing, one forward
// pass, postprocessing. The record ends with Pred and Mask restored to the
// original image frame.
func (e *Engine) Segment(r *transform.Record, obs transform.Observer) error {
	if err := Preprocess(e.config).ApplyWithObserver(r, obs); err != nil {
		return fmt.Errorf("preprocessing: %w", err)
	}

	pred, err := e.Predict(r.Image)
	if err != nil {
		return err
	}
	r.Pred = pred
	if obs != nil {
		obs("Predict", r)
	}

	if err := Postprocess(e.config).ApplyWithObserver(r, obs); err != nil {
		return fmt.Errorf("postprocessing: %w", err)
	}
	return nil
}
