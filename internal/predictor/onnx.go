package predictor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

type onnxPredictor struct {
	session    *ort.DynamicAdvancedSession
	size       int
	preprocess string
	order      string
	logger     *slog.Logger
}

func newONNX(cfg *Config, logger *slog.Logger) (*onnxPredictor, error) {
	if err := initORT(cfg.ONNX.LibraryPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ONNX.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, got %d", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	if dims := outputs[0].Dimensions; len(dims) != 2 || dims[1] != int64(len(Classes)) {
		return nil, fmt.Errorf("onnx: expected output shape [batch, %d], got %v", len(Classes), dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(cfg.ONNX.Threads)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ONNX.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	logger.Info("model loaded", "model", cfg.ONNX.ModelPath, "input", inputs[0].Name, "output", outputs[0].Name)

	return &onnxPredictor{
		session:    session,
		size:       cfg.ONNX.InputSize,
		preprocess: cfg.ONNX.Preprocess,
		order:      cfg.ONNX.ChannelOrder,
		logger:     logger,
	}, nil
}

type inference struct {
	scores []float32
	err    error
}

// Predict runs inference on a separate goroutine so a cancelled ctx returns
// promptly; the session call itself cannot be interrupted.
func (p *onnxPredictor) Predict(ctx context.Context, image []byte) (Prediction, error) {
	input, err := Tensor(image, p.size, p.preprocess, p.order)
	if err != nil {
		return Prediction{}, err
	}

	done := make(chan inference, 1)
	go func() {
		scores, err := p.infer(input)
		done <- inference{scores: scores, err: err}
	}()

	select {
	case <-ctx.Done():
		return Prediction{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return Prediction{}, res.err
		}
		return FromScores(res.scores)
	}
}

func (p *onnxPredictor) infer(input []float32) ([]float32, error) {
	size := int64(p.size)
	in, err := ort.NewTensor(ort.NewShape(1, size, size, 3), input)
	if err != nil {
		return nil, fmt.Errorf("onnx: create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(Classes))))
	if err != nil {
		return nil, fmt.Errorf("onnx: create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := p.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	src := out.GetData()
	scores := make([]float32, len(src))
	copy(scores, src)
	return scores, nil
}

// Close releases the inference session.
func (p *onnxPredictor) Close() error {
	return p.session.Destroy()
}
