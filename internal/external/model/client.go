package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/spf13/viper"
)

const defaultRequestTimeout = 10 * time.Second

// Client calls the model backend serving an endpoint. The backend sees only
// the feature payload, never the classification attributes.
type Client interface {
	Predict(ctx context.Context, endpointName string, payload capture.Payload) (json.RawMessage, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a model client from MODEL_BACKEND_URL and
// MODEL_REQUEST_TIMEOUT_MS env config.
func NewHTTPClient() (Client, error) {
	baseURL := viper.GetString("MODEL_BACKEND_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("MODEL_BACKEND_URL is not set")
	}
	timeout := defaultRequestTimeout
	if ms := viper.GetInt("MODEL_REQUEST_TIMEOUT_MS"); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *httpClient) Predict(ctx context.Context, endpointName string, payload capture.Payload) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]interface{}{"features": payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode model request: %w", err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/endpoints/"+endpointName+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metric.Incr("model_request_error", []string{"endpoint:" + endpointName})
		return nil, fmt.Errorf("model backend call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metric.Incr("model_request_error", []string{"endpoint:" + endpointName})
		return nil, fmt.Errorf("model backend returned status %d: %s", resp.StatusCode, respBody)
	}

	metric.Timing("model_request_latency", time.Since(start), []string{"endpoint:" + endpointName})
	return respBody, nil
}
