package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// APIError represents a non-2xx response from the model service.
type APIError struct {
	StatusCode int
	Body       string
	retryAfter string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model service HTTP %d: %s", e.StatusCode, e.Body)
}

// response accepts either a label-keyed distribution or ordered raw scores.
type response struct {
	Probabilities map[string]float64 `json:"probabilities"`
	Scores        []float64          `json:"scores"`
}

type httpPredictor struct {
	url        string
	token      string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	client     *http.Client
	logger     *slog.Logger
}

func newHTTP(cfg *Config, logger *slog.Logger) *httpPredictor {
	return &httpPredictor{
		url:        cfg.HTTP.URL,
		token:      cfg.HTTP.Token,
		timeout:    cfg.TimeoutDuration(),
		maxRetries: cfg.HTTP.MaxRetries,
		backoff:    cfg.HTTP.BackoffDuration(),
		client:     &http.Client{},
		logger:     logger,
	}
}

// Predict posts the image as multipart field "file". 429 and 5xx responses
// are retried with exponential backoff, honouring Retry-After on 429.
func (p *httpPredictor) Predict(ctx context.Context, image []byte) (Prediction, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	body, contentType, err := encodeImage(image)
	if err != nil {
		return Prediction{}, err
	}

	var lastErr *APIError
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			wait := p.delay(attempt, lastErr)
			p.logger.Debug("retrying model request", "attempt", attempt, "wait", wait, "status", lastErr.StatusCode)

			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return Prediction{}, ctx.Err()
			case <-t.C:
			}
		}

		pred, apiErr, err := p.do(ctx, body, contentType)
		if err != nil {
			return Prediction{}, err
		}
		if apiErr == nil {
			return pred, nil
		}
		if apiErr.StatusCode != http.StatusTooManyRequests && apiErr.StatusCode < 500 {
			return Prediction{}, apiErr
		}
		lastErr = apiErr
	}

	return Prediction{}, lastErr
}

func (p *httpPredictor) do(ctx context.Context, body []byte, contentType string) (Prediction, *APIError, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Prediction{}, nil, fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Prediction{}, nil, fmt.Errorf("read model response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := string(data)
		if len(text) > 512 {
			text = text[:512]
		}
		return Prediction{}, &APIError{
			StatusCode: resp.StatusCode,
			Body:       text,
			retryAfter: resp.Header.Get("Retry-After"),
		}, nil
	}

	var out response
	if err := json.Unmarshal(data, &out); err != nil {
		return Prediction{}, nil, fmt.Errorf("decode model response: %w", err)
	}

	switch {
	case len(out.Scores) > 0:
		pred, err := FromScores(out.Scores)
		return pred, nil, err
	case len(out.Probabilities) > 0:
		pred, err := FromProbabilities(out.Probabilities)
		return pred, nil, err
	default:
		return Prediction{}, nil, fmt.Errorf("%w: response has neither scores nor probabilities", ErrScores)
	}
}

func (p *httpPredictor) delay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return p.backoff * time.Duration(1<<(attempt-1))
}

func encodeImage(image []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "image")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
