package generator

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatched struct {
	payload capture.Payload
	meta    metadata.Classification
}

// recordingDispatcher captures dispatches in order; failAt triggers an error
// on the nth call (1-based, 0 disables).
type recordingDispatcher struct {
	calls  []dispatched
	failAt int
}

func (d *recordingDispatcher) Dispatch(_ context.Context, payload capture.Payload, meta metadata.Classification) error {
	if d.failAt > 0 && len(d.calls)+1 == d.failAt {
		return fmt.Errorf("inference boundary unavailable")
	}
	d.calls = append(d.calls, dispatched{payload: payload, meta: meta})
	return nil
}

func templatePayload() capture.Payload {
	return capture.Payload{
		{Name: "tenure_months", Value: 12},
		{Name: "monthly_charges", Value: 70.35},
		{Name: "contract", Value: "month-to-month"},
	}
}

func TestNew_Validation(t *testing.T) {
	d := &recordingDispatcher{}

	_, err := New("", "ep", d)
	assert.Error(t, err)

	_, err = New("app", "", d)
	assert.Error(t, err)

	_, err = New("app", "ep", nil)
	assert.Error(t, err)
}

func TestGenerate_InputValidation(t *testing.T) {
	d := &recordingDispatcher{}
	g, err := New("app", "ep", d)
	require.NoError(t, err)

	assert.Error(t, g.Generate(context.Background(), "maybe", templatePayload(), 1, nil))
	assert.Error(t, g.Generate(context.Background(), metadata.TestIndicatorFalse, templatePayload(), 0, nil))
	assert.Error(t, g.Generate(context.Background(), metadata.TestIndicatorFalse, nil, 1, nil))
	assert.Empty(t, d.calls)
}

func TestGenerate_StampsCompleteMetadata(t *testing.T) {
	d := &recordingDispatcher{}
	g, err := New("testApplication", "churn-xgb-v3", d)
	require.NoError(t, err)

	require.NoError(t, g.Generate(context.Background(), metadata.TestIndicatorFalse, templatePayload(), 3, nil))
	require.Len(t, d.calls, 3)

	for _, call := range d.calls {
		assert.NoError(t, call.meta.Validate())
		assert.Equal(t, "testApplication", call.meta.ApplicationName)
		assert.Equal(t, "churn-xgb-v3", call.meta.EndpointName)
		assert.Equal(t, metadata.TestIndicatorFalse, call.meta.TestIndicator)
	}
}

func TestGenerate_PayloadNeverCarriesClassificationFields(t *testing.T) {
	d := &recordingDispatcher{}
	g, err := New("app", "ep", d)
	require.NoError(t, err)

	require.NoError(t, g.Generate(context.Background(), metadata.TestIndicatorTrue, templatePayload(), 1, nil))
	require.Len(t, d.calls, 1)

	reserved := map[string]struct{}{
		metadata.KeyTransactionID:   {},
		metadata.KeyApplicationName: {},
		metadata.KeyTestIndicator:   {},
		metadata.KeyEndpointName:    {},
	}
	for _, name := range d.calls[0].payload.Names() {
		_, found := reserved[name]
		assert.False(t, found, "classification field %s leaked into the model-visible payload", name)
	}
	assert.Equal(t, templatePayload().Names(), d.calls[0].payload.Names())
}

func TestGenerate_TransactionIDsStrictlyIncreasing(t *testing.T) {
	d := &recordingDispatcher{}
	g, err := New("app", "ep", d)
	require.NoError(t, err)

	// 1 + 1 + 1000 generated requests across three batches on one instance
	ctx := context.Background()
	require.NoError(t, g.Generate(ctx, metadata.TestIndicatorFalse, templatePayload(), 1, nil))
	require.NoError(t, g.Generate(ctx, metadata.TestIndicatorTrue, templatePayload(), 1, nil))
	require.NoError(t, g.Generate(ctx, metadata.TestIndicatorFalse, templatePayload(), 1000, nil))
	require.Len(t, d.calls, 1002)

	seen := make(map[string]struct{}, len(d.calls))
	prev := uint64(0)
	for _, call := range d.calls {
		id, err := strconv.ParseUint(call.meta.TransactionID, 10, 64)
		require.NoError(t, err)
		assert.Greater(t, id, prev, "transaction ids must be strictly increasing")
		prev = id

		_, dup := seen[call.meta.TransactionID]
		assert.False(t, dup, "duplicate transaction id %s", call.meta.TransactionID)
		seen[call.meta.TransactionID] = struct{}{}
	}
	assert.Equal(t, uint64(1002), g.LastTransactionID())
}

func TestGenerate_IndependentInstancesDoNotShareCounter(t *testing.T) {
	d1 := &recordingDispatcher{}
	d2 := &recordingDispatcher{}
	g1, err := New("app", "ep", d1)
	require.NoError(t, err)
	g2, err := New("app", "ep", d2)
	require.NoError(t, err)

	require.NoError(t, g1.Generate(context.Background(), metadata.TestIndicatorFalse, templatePayload(), 5, nil))
	require.NoError(t, g2.Generate(context.Background(), metadata.TestIndicatorFalse, templatePayload(), 1, nil))

	assert.Equal(t, uint64(5), g1.LastTransactionID())
	assert.Equal(t, uint64(1), g2.LastTransactionID())
	assert.Equal(t, "1", d2.calls[0].meta.TransactionID)
}

func TestGenerate_AppliesMutations(t *testing.T) {
	d := &recordingDispatcher{}
	g, err := New("app", "ep", d)
	require.NoError(t, err)

	mutations := []Mutation{
		{Field: "tenure_months", Value: -100},
		{Field: "monthly_charges", Value: 1e9},
	}
	require.NoError(t, g.Generate(context.Background(), metadata.TestIndicatorTrue, templatePayload(), 2, mutations))
	require.Len(t, d.calls, 2)

	for _, call := range d.calls {
		assert.Equal(t, -100, call.payload[0].Value)
		assert.Equal(t, 1e9, call.payload[1].Value)
		assert.Equal(t, "month-to-month", call.payload[2].Value)
	}
}

func TestGenerate_AbortsBatchOnFirstDispatchFailure(t *testing.T) {
	d := &recordingDispatcher{failAt: 3}
	g, err := New("app", "ep", d)
	require.NoError(t, err)

	err = g.Generate(context.Background(), metadata.TestIndicatorFalse, templatePayload(), 10, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction 3")
	assert.Len(t, d.calls, 2, "requests after the failure must not be dispatched")
}

func TestGenerate_DispatchOrderMatchesGenerationOrder(t *testing.T) {
	d := &recordingDispatcher{}
	g, err := New("app", "ep", d)
	require.NoError(t, err)

	require.NoError(t, g.Generate(context.Background(), metadata.TestIndicatorFalse, templatePayload(), 50, nil))
	for i, call := range d.calls {
		assert.Equal(t, strconv.Itoa(i+1), call.meta.TransactionID)
	}
}

type timeoutDispatcher struct {
	sawDeadline bool
}

func (d *timeoutDispatcher) Dispatch(ctx context.Context, _ capture.Payload, _ metadata.Classification) error {
	_, d.sawDeadline = ctx.Deadline()
	return nil
}

func TestGenerate_BoundsDispatchWithTimeout(t *testing.T) {
	d := &timeoutDispatcher{}
	g, err := New("app", "ep", d, WithDispatchTimeout(50*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, g.Generate(context.Background(), metadata.TestIndicatorFalse, templatePayload(), 1, nil))
	assert.True(t, d.sawDeadline, "dispatch context must carry a deadline")
}
