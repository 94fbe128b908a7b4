package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrPrinterRejected = errors.New("printer rejected the job")
	ErrCircuitOpen     = errors.New("printer circuit breaker open")
)

type DeliveryStatus string

const (
	StatusAccepted DeliveryStatus = "ACCEPTED"
	StatusRejected DeliveryStatus = "REJECTED"
)

// DeliverRequest is the payload posted to a printer's IPP bridge.
type DeliverRequest struct {
	JobID       int64  `json:"job_id"`
	DocumentURL string `json:"document_url"`
	Copies      uint   `json:"copies"`
	PaperSize   string `json:"paper_size"`
	Duplex      string `json:"duplex"`
	Orientation string `json:"orientation"`
	PageRange   string `json:"page_range,omitempty"`
	Pages       uint   `json:"pages"`
}

type DeliverResponse struct {
	JobID         int64          `json:"job_id"`
	Status        DeliveryStatus `json:"status"`
	QueuePosition int            `json:"queue_position,omitempty"`
	ErrorCode     string         `json:"error_code,omitempty"`
	ErrorMsg      string         `json:"error_message,omitempty"`
	AcceptedAt    time.Time      `json:"accepted_at"`
}

type EndpointMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	ConsecutiveFails atomic.Int32
	LastSuccessTime  atomic.Int64
	LastErrorTime    atomic.Int64
}

func (m *EndpointMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())
}

func (m *EndpointMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *EndpointMetrics) AvgLatencyMs() int64 {
	total := m.SuccessfulReqs.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

func (m *EndpointMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

// endpoint tracks per-printer delivery health. Printers are addressed
// directly by URI, so unlike an operator pool there is no selection
// step, only a circuit breaker per device.
type endpoint struct {
	uri              string
	metrics          *EndpointMetrics
	circuitOpenUntil atomic.Int64
}

func (e *endpoint) circuitOpen() bool {
	openUntil := e.circuitOpenUntil.Load()
	return openUntil > 0 && time.Now().Unix() <= openUntil
}

type Config struct {
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

type Client struct {
	config    *Config
	client    *fasthttp.Client
	mu        sync.RWMutex
	endpoints map[string]*endpoint
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = 30 * time.Second
	}

	client := &Client{
		config: config,
		client: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
		endpoints: make(map[string]*endpoint),
	}

	logger.Info("Printer client initialized", "timeout", config.Timeout, "max_retries", config.MaxRetries)

	return client, nil
}

func (c *Client) endpointFor(uri string) *endpoint {
	c.mu.RLock()
	e, ok := c.endpoints[uri]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.endpoints[uri]; ok {
		return e
	}
	e = &endpoint{uri: uri, metrics: &EndpointMetrics{}}
	c.endpoints[uri] = e
	return e
}

// Deliver posts a job to the printer, retrying transport failures up to
// MaxRetries times. A REJECTED response is terminal and never retried.
func (c *Client) Deliver(ctx context.Context, printer *model.Printer, req *DeliverRequest) (*DeliverResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ep := c.endpointFor(printer.URI)
	if ep.circuitOpen() {
		return nil, fmt.Errorf("printer %s: %w", printer.Name, ErrCircuitOpen)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		startTime := time.Now()
		response, err := c.doRequest(ctx, printer.URI, "POST", "/jobs", reqBody)
		latency := time.Since(startTime).Milliseconds()

		if err != nil {
			ep.metrics.RecordFailure()
			c.checkCircuitBreaker(printer.Name, ep)

			logger.Warn("Delivery failed, retrying", "error", err, "printer", printer.Name, "attempt", attempt+1)

			lastErr = err
			continue
		}

		ep.metrics.RecordSuccess(latency)

		var resp DeliverResponse
		if err := json.Unmarshal(response, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		if resp.Status == StatusRejected {
			logger.Warn("Printer rejected job", "job_id", req.JobID, "printer", printer.Name, "error_code", resp.ErrorCode)
			return &resp, fmt.Errorf("%w: %s", ErrPrinterRejected, resp.ErrorMsg)
		}

		logger.Info("Job delivered to printer", "job_id", req.JobID, "printer", printer.Name, "latency_ms", latency)

		return &resp, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// Health queries the printer's health endpoint.
func (c *Client) Health(ctx context.Context, printer *model.Printer) bool {
	response, err := c.doRequest(ctx, printer.URI, "GET", "/health", nil)
	if err != nil {
		return false
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(response, &health); err != nil {
		return false
	}

	return health.Status == "healthy"
}

// Metrics returns the delivery metrics tracked for a printer URI, or
// nil if no delivery has been attempted yet.
func (c *Client) Metrics(uri string) *EndpointMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.endpoints[uri]; ok {
		return e.metrics
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, baseURL, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(baseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")

	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode != fasthttp.StatusOK && statusCode != fasthttp.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}

func (c *Client) checkCircuitBreaker(name string, ep *endpoint) {
	consecutiveFails := ep.metrics.ConsecutiveFails.Load()
	if consecutiveFails >= int32(c.config.CircuitBreakerThreshold) {
		openUntil := time.Now().Add(c.config.CircuitBreakerTimeout).Unix()
		ep.circuitOpenUntil.Store(openUntil)

		logger.Warn("Circuit breaker opened", "printer", name, "consecutive_fails", consecutiveFails, "timeout", c.config.CircuitBreakerTimeout)
	}
}
