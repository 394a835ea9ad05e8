package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/metadata"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/spf13/viper"
)

const dispatcherCallerId = "traffic-generator"

// HTTPDispatcher sends generated requests through the inference gateway, the
// same front door organic traffic uses. The classification block travels in
// the custom-attributes header, never in the body.
type HTTPDispatcher struct {
	gatewayURL string
	authToken  string
	client     *http.Client
}

// NewHTTPDispatcher builds a dispatcher from GATEWAY_URL and
// GATEWAY_AUTH_TOKEN env config.
func NewHTTPDispatcher() (*HTTPDispatcher, error) {
	gatewayURL := viper.GetString("GATEWAY_URL")
	if gatewayURL == "" {
		return nil, fmt.Errorf("GATEWAY_URL is not set")
	}
	return &HTTPDispatcher{
		gatewayURL: gatewayURL,
		authToken:  viper.GetString("GATEWAY_AUTH_TOKEN"),
		client:     &http.Client{},
	}, nil
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, payload capture.Payload, meta metadata.Classification) error {
	body, err := json.Marshal(map[string]interface{}{"features": payload})
	if err != nil {
		return fmt.Errorf("failed to encode request payload: %w", err)
	}

	url := d.gatewayURL + "/api/v1/endpoints/" + meta.EndpointName + "/invoke"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("vigil-caller-id", dispatcherCallerId)
	if d.authToken != "" {
		req.Header.Set("vigil-auth-token", d.authToken)
	}
	req.Header.Set(metadata.HTTPHeader, meta.Encode())

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		// failures are counted once by the generator's abort path
		return fmt.Errorf("gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, respBody)
	}

	metric.Timing("generator_dispatch_latency", time.Since(start), []string{"endpoint:" + meta.EndpointName})
	return nil
}
