package generator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/metadata"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/rs/zerolog/log"
)

const defaultDispatchTimeout = 10 * time.Second

// Dispatcher delivers one request to the inference boundary. The payload is
// the model-visible feature vector; the classification block travels out of
// band and must never be folded into the payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload capture.Payload, meta metadata.Classification) error
}

// Generator synthesizes inference traffic from a template payload. The
// transaction counter is owned by the instance, not by the process, so
// independent generators never collide; ids issued by one instance are
// strictly increasing with no reset operation.
type Generator struct {
	applicationName string
	endpointName    string
	dispatcher      Dispatcher
	timeout         time.Duration

	txnCounter uint64
}

type Option func(*Generator)

// WithDispatchTimeout bounds each inference-boundary call.
func WithDispatchTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func New(applicationName, endpointName string, dispatcher Dispatcher, opts ...Option) (*Generator, error) {
	if applicationName == "" {
		return nil, fmt.Errorf("application name is empty")
	}
	if endpointName == "" {
		return nil, fmt.Errorf("endpoint name is empty")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}
	g := &Generator{
		applicationName: applicationName,
		endpointName:    endpointName,
		dispatcher:      dispatcher,
		timeout:         defaultDispatchTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate emits size requests built from the template payload, each stamped
// with a fresh transaction id and dispatched in generation order. The batch
// aborts on the first dispatch failure: test scenarios depend on exact
// counts, so a silent gap in the sequence is worse than a short batch.
func (g *Generator) Generate(ctx context.Context, testIndicator string, template capture.Payload, size int, mutations []Mutation) error {
	if testIndicator != metadata.TestIndicatorTrue && testIndicator != metadata.TestIndicatorFalse {
		return fmt.Errorf("testIndicator must be %q or %q, got %q", metadata.TestIndicatorTrue, metadata.TestIndicatorFalse, testIndicator)
	}
	if size <= 0 {
		return fmt.Errorf("size must be positive, got %d", size)
	}
	if len(template) == 0 {
		return fmt.Errorf("template payload is empty")
	}

	for i := 0; i < size; i++ {
		g.txnCounter++
		meta := metadata.Classification{
			TransactionID:   strconv.FormatUint(g.txnCounter, 10),
			ApplicationName: g.applicationName,
			TestIndicator:   testIndicator,
			EndpointName:    g.endpointName,
		}

		payload, err := ApplyMutations(template, mutations)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", meta.TransactionID, err)
		}

		if err := g.dispatch(ctx, payload, meta); err != nil {
			metric.Incr("generator_dispatch_error", []string{"endpoint:" + g.endpointName, "app:" + g.applicationName})
			return fmt.Errorf("dispatch failed for transaction %s (request %d of %d): %w", meta.TransactionID, i+1, size, err)
		}
	}

	log.Info().Int("size", size).Str("endpoint", g.endpointName).Str("testIndicator", testIndicator).
		Msg("Generated traffic batch")
	metric.Count("generator_requests_sent", int64(size), []string{"endpoint:" + g.endpointName, "app:" + g.applicationName, "test:" + testIndicator})
	return nil
}

func (g *Generator) dispatch(ctx context.Context, payload capture.Payload, meta metadata.Classification) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.dispatcher.Dispatch(ctx, payload, meta)
}

// LastTransactionID reports the most recently issued transaction id, zero
// when nothing has been generated yet.
func (g *Generator) LastTransactionID() uint64 {
	return g.txnCounter
}
