package predictor_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/pestwatch/internal/predictor"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sum(probs map[string]float64) float64 {
	var total float64
	for _, p := range probs {
		total += p
	}
	return total
}

func TestFromScores(t *testing.T) {
	tests := []struct {
		name      string
		scores    []float64
		wantLabel string
		wantConf  float64
	}{
		{"distribution kept", []float64{0.1, 0.7, 0.15, 0.05}, "snail", 0.7},
		{"one-hot", []float64{0, 0, 1, 0}, "stem_borer", 1},
		{"logits softmaxed", []float64{2, 0, 0, 0}, "fall_armyworm", math.Exp(2) / (math.Exp(2) + 3)},
		{"negative logits", []float64{-3, -1, -2, -0.5}, "unknown", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := predictor.FromScores(tt.scores)
			require.NoError(t, err)

			assert.Equal(t, tt.wantLabel, pred.Label)
			if tt.wantConf > 0 {
				assert.InDelta(t, tt.wantConf, pred.Confidence, 1e-9)
			}
			assert.Len(t, pred.Probabilities, len(predictor.Classes))
			assert.InDelta(t, 1.0, sum(pred.Probabilities), 1e-6)
			assert.Equal(t, pred.Confidence, pred.Probabilities[pred.Label])

			for label, p := range pred.Probabilities {
				assert.LessOrEqual(t, p, pred.Confidence, "label %s exceeds arg-max", label)
			}
		})
	}
}

func TestFromScoresFloat32(t *testing.T) {
	pred, err := predictor.FromScores([]float32{0.05, 0.05, 0.1, 0.8})
	require.NoError(t, err)
	assert.Equal(t, "unknown", pred.Label)
	assert.InDelta(t, 0.8, pred.Confidence, 1e-6)
}

func TestFromScoresInvalid(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
	}{
		{"too few", []float64{0.5, 0.5}},
		{"too many", []float64{0.2, 0.2, 0.2, 0.2, 0.2}},
		{"nan", []float64{math.NaN(), 0, 0, 0}},
		{"inf", []float64{math.Inf(1), 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := predictor.FromScores(tt.scores)
			assert.ErrorIs(t, err, predictor.ErrScores)
		})
	}
}

func TestFromProbabilities(t *testing.T) {
	pred, err := predictor.FromProbabilities(map[string]float64{"snail": 0.9, "stem_borer": 0.1})
	require.NoError(t, err)
	assert.Equal(t, "snail", pred.Label)
	assert.Zero(t, pred.Probabilities["fall_armyworm"])

	_, err = predictor.FromProbabilities(map[string]float64{"locust": 1})
	assert.ErrorIs(t, err, predictor.ErrScores)

	_, err = predictor.FromProbabilities(map[string]float64{"snail": 0})
	assert.ErrorIs(t, err, predictor.ErrScores)
}

func TestFromProbabilitiesPartial(t *testing.T) {
	tests := []struct {
		name       string
		probs      map[string]float64
		label      string
		confidence float64
	}{
		{"single class", map[string]float64{"snail": 0.9}, "snail", 1},
		{"under one", map[string]float64{"snail": 0.6, "stem_borer": 0.2}, "snail", 0.75},
		{"logits", map[string]float64{"snail": 3, "stem_borer": 1}, "snail", 0.8098},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := predictor.FromProbabilities(tt.probs)
			require.NoError(t, err)
			assert.Equal(t, tt.label, pred.Label)

			var sum float64
			for _, p := range pred.Probabilities {
				sum += p
			}
			assert.InDelta(t, 1, sum, 1e-9)
			assert.InDelta(t, tt.confidence, pred.Confidence, 1e-3)
		})
	}
}

func TestIsClass(t *testing.T) {
	assert.True(t, predictor.IsClass("snail"))
	assert.True(t, predictor.IsClass(predictor.Unknown))
	assert.False(t, predictor.IsClass("not_a_real_class"))
}

func httpConfig(url string) *predictor.Config {
	cfg := &predictor.Config{
		Type:    predictor.TypeHTTP,
		Timeout: "5s",
		HTTP:    predictor.HTTPConfig{URL: url, MaxRetries: 2, Backoff: "1ms"},
	}
	return cfg
}

func TestHTTPPredictor(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantLabel string
	}{
		{"scores", map[string]any{"scores": []float64{0.1, 0.1, 0.7, 0.1}}, "stem_borer"},
		{"probabilities", map[string]any{"probabilities": map[string]float64{"fall_armyworm": 0.6, "snail": 0.4}}, "fall_armyworm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				file, _, err := r.FormFile("file")
				if assert.NoError(t, err) {
					data, _ := io.ReadAll(file)
					assert.Equal(t, []byte("image-bytes"), data)
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			p, err := predictor.New(httpConfig(srv.URL), discard())
			require.NoError(t, err)

			pred, err := p.Predict(context.Background(), []byte("image-bytes"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, pred.Label)
			assert.InDelta(t, 1.0, sum(pred.Probabilities), 1e-6)
		})
	}
}

func TestHTTPPredictorRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"scores": []float64{0, 1, 0, 0}})
	}))
	defer srv.Close()

	p, err := predictor.New(httpConfig(srv.URL), discard())
	require.NoError(t, err)

	pred, err := p.Predict(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "snail", pred.Label)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPPredictorFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{"client error not retried", http.StatusBadRequest, `{"error":"bad image"}`, 1},
		{"server errors exhaust retries", http.StatusInternalServerError, "boom", 3},
		{"malformed body", http.StatusOK, `{"scores": [1, 2]}`, 1},
		{"empty body", http.StatusOK, `{}`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, err := predictor.New(httpConfig(srv.URL), discard())
			require.NoError(t, err)

			_, err = p.Predict(context.Background(), []byte("x"))
			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls.Load())

			var apiErr *predictor.APIError
			if tt.status >= 400 {
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.status, apiErr.StatusCode)
			}
		})
	}
}

func TestHTTPPredictorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := httpConfig(srv.URL)
	cfg.Timeout = "50ms"
	p, err := predictor.New(cfg, discard())
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Predict(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewUnsupported(t *testing.T) {
	_, err := predictor.New(&predictor.Config{Type: "tflite"}, discard())
	assert.Error(t, err)
}

func encodePNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(32, 24, c), imaging.PNG))
	return buf.Bytes()
}

func TestTensor(t *testing.T) {
	img := encodePNG(t, color.NRGBA{R: 255, G: 128, B: 0, A: 255})

	tests := []struct {
		name       string
		preprocess string
		order      string
		want       [3]float32
	}{
		{"caffe rgb", predictor.PreprocessCaffe, "rgb", [3]float32{255 - 103.939, 128 - 116.779, 0 - 123.68}},
		{"caffe bgr", predictor.PreprocessCaffe, "bgr", [3]float32{0 - 103.939, 128 - 116.779, 255 - 123.68}},
		{"unit rgb", predictor.PreprocessUnit, "rgb", [3]float32{1, 128.0 / 255, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := predictor.Tensor(img, 100, tt.preprocess, tt.order)
			require.NoError(t, err)
			require.Len(t, out, 100*100*3)

			for c := range 3 {
				assert.InDelta(t, tt.want[c], out[c], 0.01, "first pixel channel %d", c)
				assert.InDelta(t, tt.want[c], out[len(out)-3+c], 0.01, "last pixel channel %d", c)
			}
		})
	}
}

func TestTensorInvalidImage(t *testing.T) {
	_, err := predictor.Tensor([]byte("not an image"), 100, predictor.PreprocessCaffe, "rgb")
	assert.ErrorIs(t, err, predictor.ErrImage)
}

func TestConfigFinalize(t *testing.T) {
	cfg := predictor.Config{}
	require.NoError(t, cfg.Finalize(nil))
	assert.Equal(t, predictor.TypeHTTP, cfg.Type)
	assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 100, cfg.ONNX.InputSize)

	t.Setenv("PRED_TYPE", "onnx")
	onnx := predictor.Config{}
	err := onnx.Finalize(&predictor.Env{Type: "PRED_TYPE"})
	assert.ErrorContains(t, err, "onnx.model_path")

	t.Setenv("PRED_MODEL", "/models/pest.onnx")
	onnx = predictor.Config{}
	require.NoError(t, onnx.Finalize(&predictor.Env{Type: "PRED_TYPE", ONNXModelPath: "PRED_MODEL"}))
	assert.Equal(t, "/models/pest.onnx", onnx.ONNX.ModelPath)
	assert.Equal(t, predictor.PreprocessCaffe, onnx.ONNX.Preprocess)

	bad := predictor.Config{Timeout: "soon"}
	assert.Error(t, bad.Finalize(nil))
}
