package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	client, err := NewClient(&Config{
		Timeout:                 time.Second,
		MaxRetries:              2,
		RetryDelay:              time.Millisecond,
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   10 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestEndpointMetrics_RecordSuccess(t *testing.T) {
	metrics := &EndpointMetrics{}

	metrics.RecordSuccess(100)
	metrics.RecordSuccess(200)

	assert.Equal(t, int64(2), metrics.TotalRequests.Load())
	assert.Equal(t, int64(2), metrics.SuccessfulReqs.Load())
	assert.Equal(t, int64(0), metrics.FailedReqs.Load())
	assert.Equal(t, float64(1.0), metrics.SuccessRate())
	assert.Equal(t, int64(150), metrics.AvgLatencyMs())
}

func TestEndpointMetrics_RecordFailure(t *testing.T) {
	metrics := &EndpointMetrics{}

	metrics.RecordSuccess(100)
	metrics.RecordFailure()
	metrics.RecordFailure()

	assert.Equal(t, int64(3), metrics.TotalRequests.Load())
	assert.Equal(t, int64(1), metrics.SuccessfulReqs.Load())
	assert.Equal(t, int64(2), metrics.FailedReqs.Load())
	assert.InDelta(t, 0.333, metrics.SuccessRate(), 0.01)
	assert.Equal(t, int32(2), metrics.ConsecutiveFails.Load())
}

func TestClient_EndpointFor(t *testing.T) {
	client := newTestClient(t)

	first := client.endpointFor("http://printer-1.campus.local:631")
	second := client.endpointFor("http://printer-1.campus.local:631")
	other := client.endpointFor("http://printer-2.campus.local:631")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := newTestClient(t)
	ep := client.endpointFor("http://printer-1.campus.local:631")

	t.Run("circuit stays closed below threshold", func(t *testing.T) {
		ep.metrics.RecordFailure()
		ep.metrics.RecordFailure()
		client.checkCircuitBreaker("lib-1", ep)
		assert.False(t, ep.circuitOpen())
	})

	t.Run("circuit opens at threshold", func(t *testing.T) {
		ep.metrics.RecordFailure()
		client.checkCircuitBreaker("lib-1", ep)
		assert.True(t, ep.circuitOpen())
	})

	t.Run("open circuit fails fast without a request", func(t *testing.T) {
		printer := &model.Printer{Name: "lib-1", URI: "http://printer-1.campus.local:631"}
		_, err := client.Deliver(context.Background(), printer, &DeliverRequest{JobID: 1})
		assert.ErrorIs(t, err, ErrCircuitOpen)
	})

	t.Run("circuit closes after timeout", func(t *testing.T) {
		ep.circuitOpenUntil.Store(time.Now().Add(-time.Second).Unix())
		assert.False(t, ep.circuitOpen())
	})

	t.Run("success resets consecutive failures", func(t *testing.T) {
		ep.metrics.RecordSuccess(50)
		assert.Equal(t, int32(0), ep.metrics.ConsecutiveFails.Load())
	})
}

func TestClient_Metrics(t *testing.T) {
	client := newTestClient(t)

	assert.Nil(t, client.Metrics("http://unknown.campus.local:631"))

	ep := client.endpointFor("http://printer-1.campus.local:631")
	ep.metrics.RecordSuccess(10)
	m := client.Metrics("http://printer-1.campus.local:631")
	require.NotNil(t, m)
	assert.Equal(t, int64(1), m.SuccessfulReqs.Load())
}
