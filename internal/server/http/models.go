package http

import (
	"encoding/json"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
)

// InvokeRequest is the gateway invocation body. Only the feature payload is
// carried here; classification attributes travel in the custom-attributes
// header so the model backend never sees them.
type InvokeRequest struct {
	Features capture.Payload `json:"features" binding:"required"`
}

type InvokeResponse struct {
	EventID    string          `json:"event_id"`
	Prediction json.RawMessage `json:"prediction"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
