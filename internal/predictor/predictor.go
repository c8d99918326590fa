// Package predictor classifies crop-pest images into a closed set of classes.
//
// Implementations differ only in how raw model scores are obtained. Every
// Prediction is built by FromScores, so the label is always the arg-max of a
// normalised distribution covering every class.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
)

// Unknown is the sentinel class for images that match no pest.
const Unknown = "unknown"

// Classes lists the model output classes in index order.
var Classes = []string{"fall_armyworm", "snail", "stem_borer", Unknown}

var (
	// ErrScores indicates a model returned scores that cannot form a distribution.
	ErrScores = errors.New("invalid model scores")
	// ErrImage indicates the input could not be decoded as an image.
	ErrImage = errors.New("invalid image")
)

// Predictor classifies a single image.
type Predictor interface {
	Predict(ctx context.Context, image []byte) (Prediction, error)
}

// Prediction is the classification of one image.
type Prediction struct {
	Label         string             `json:"label"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// IsClass reports whether label is one of Classes.
func IsClass(label string) bool {
	return slices.Contains(Classes, label)
}

// New creates the predictor selected by cfg.Type.
func New(cfg *Config, logger *slog.Logger) (Predictor, error) {
	logger = logger.With("system", "predictor", "type", cfg.Type)

	switch cfg.Type {
	case TypeHTTP:
		return newHTTP(cfg, logger), nil
	case TypeONNX:
		return newONNX(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported predictor type: %q", cfg.Type)
	}
}

// FromScores converts raw per-class scores in Classes order into a Prediction.
// Scores that already form a probability distribution are kept as is;
// anything else (logits) is passed through softmax.
func FromScores[T float32 | float64](scores []T) (Prediction, error) {
	if len(scores) != len(Classes) {
		return Prediction{}, fmt.Errorf("%w: got %d scores for %d classes", ErrScores, len(scores), len(Classes))
	}

	values := make([]float64, len(scores))
	for i, s := range scores {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Prediction{}, fmt.Errorf("%w: non-finite score at index %d", ErrScores, i)
		}
		values[i] = v
	}

	if !isDistribution(values) {
		values = softmax(values)
	}

	best := 0
	probs := make(map[string]float64, len(Classes))
	for i, v := range values {
		probs[Classes[i]] = v
		if v > values[best] {
			best = i
		}
	}

	return Prediction{
		Label:         Classes[best],
		Confidence:    values[best],
		Probabilities: probs,
	}, nil
}

// FromProbabilities orders a label-keyed score map by Classes and applies FromScores.
// Labels outside Classes are rejected; missing classes score zero. A map of
// values in [0,1] is a partial distribution and is rescaled to sum to one
// rather than treated as logits.
func FromProbabilities(probs map[string]float64) (Prediction, error) {
	scores := make([]float64, len(Classes))
	for label, p := range probs {
		i := slices.Index(Classes, label)
		if i < 0 {
			return Prediction{}, fmt.Errorf("%w: unknown class %q", ErrScores, label)
		}
		scores[i] = p
	}

	var sum float64
	for _, v := range scores {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return FromScores(scores)
		}
		sum += v
	}
	if sum == 0 {
		return Prediction{}, fmt.Errorf("%w: all probabilities are zero", ErrScores)
	}
	for i := range scores {
		scores[i] /= sum
	}
	return FromScores(scores)
}

const distributionTolerance = 1e-3

func isDistribution(values []float64) bool {
	var sum float64
	for _, v := range values {
		if v < 0 || v > 1 {
			return false
		}
		sum += v
	}
	return math.Abs(sum-1) <= distributionTolerance
}

func softmax(values []float64) []float64 {
	peak := slices.Max(values)

	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		out[i] = math.Exp(v - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
