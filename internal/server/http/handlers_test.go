package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/metadata"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	prediction json.RawMessage
	err        error
	lastInput  capture.Payload
}

func (m *stubModel) Predict(_ context.Context, _ string, payload capture.Payload) (json.RawMessage, error) {
	m.lastInput = payload
	if m.err != nil {
		return nil, m.err
	}
	return m.prediction, nil
}

type captureSink struct {
	records []capture.Record
	err     error
}

func (s *captureSink) capture(rec capture.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func newTestRouter(model *stubModel, sink *captureSink) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return newRouter(Deps{Model: model, Capture: sink.capture})
}

func invokeBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(InvokeRequest{Features: capture.Payload{
		{Name: "tenure_months", Value: float64(12)},
		{Name: "contract", Value: "month-to-month"},
	}})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func newInvokeRequest(t *testing.T, body *bytes.Buffer, attributes string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/endpoints/churn-xgb-v3/invoke", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CallerIdHeader, "traffic-generator")
	if attributes != "" {
		req.Header.Set(metadata.HTTPHeader, attributes)
	}
	return req
}

func TestInvoke_CapturesRecordWithAttributes(t *testing.T) {
	model := &stubModel{prediction: json.RawMessage(`{"churn_probability": 0.42}`)}
	sink := &captureSink{}
	router := newTestRouter(model, sink)

	attrs := metadata.Classification{
		TransactionID:   "7",
		ApplicationName: "testApplication",
		TestIndicator:   metadata.TestIndicatorTrue,
		EndpointName:    "churn-xgb-v3",
	}.Encode()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newInvokeRequest(t, invokeBody(t), attrs))

	require.Equal(t, http.StatusOK, w.Code)

	var resp InvokeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.EventID)
	assert.JSONEq(t, `{"churn_probability": 0.42}`, string(resp.Prediction))

	require.Len(t, sink.records, 1)
	rec := sink.records[0]
	assert.Equal(t, resp.EventID, rec.EventID)
	assert.Equal(t, "churn-xgb-v3", rec.EndpointName)
	assert.Equal(t, attrs, rec.CustomAttributes, "attributes are captured verbatim from the header")
	assert.Equal(t, model.lastInput, rec.Input)
}

func TestInvoke_NoAttributesHeader(t *testing.T) {
	model := &stubModel{prediction: json.RawMessage(`{}`)}
	sink := &captureSink{}
	router := newTestRouter(model, sink)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newInvokeRequest(t, invokeBody(t), ""))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sink.records, 1)
	assert.Empty(t, sink.records[0].CustomAttributes, "organic traffic carries no attributes block")
}

func TestInvoke_BadRequestBody(t *testing.T) {
	sink := &captureSink{}
	router := newTestRouter(&stubModel{}, sink)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newInvokeRequest(t, bytes.NewBufferString("not json"), ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, sink.records)
}

func TestInvoke_ModelBackendFailure(t *testing.T) {
	model := &stubModel{err: fmt.Errorf("connection refused")}
	sink := &captureSink{}
	router := newTestRouter(model, sink)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newInvokeRequest(t, invokeBody(t), ""))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, sink.records, "failed inferences are not captured")
}

func TestInvoke_CaptureFailureDoesNotFailInference(t *testing.T) {
	model := &stubModel{prediction: json.RawMessage(`{"ok": true}`)}
	sink := &captureSink{err: fmt.Errorf("broker unavailable")}
	router := newTestRouter(model, sink)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newInvokeRequest(t, invokeBody(t), ""))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_MissingCallerId(t *testing.T) {
	router := newTestRouter(&stubModel{}, &captureSink{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/endpoints/churn-xgb-v3/invoke", invokeBody(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthSkipsAuth(t *testing.T) {
	router := newTestRouter(&stubModel{}, &captureSink{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/self", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
