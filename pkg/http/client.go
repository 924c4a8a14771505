// Package http provides a reusable HTTP client with resilience features and
// a shared cookie store
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
	"tradebot/pkg/telemetry"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// APIError represents an API error response
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == status
}

// Client is a wrapper around http.Client with resilience, rate limiting and
// a swappable cookie jar shared by every authenticated call.
type Client struct {
	mu       sync.RWMutex
	client   *http.Client
	pipeline failsafe.Executor[*http.Response]
	limiter  *rate.Limiter

	// OTel
	tracer      trace.Tracer
	reqCounter  metric.Int64Counter
	errCounter  metric.Int64Counter
	latencyHist metric.Float64Histogram
}

// NewClient creates a new HTTP client with default resilience policies
func NewClient(timeout time.Duration, requestsPerSecond float64) *Client {
	// Retry on network errors or 5xx/429 responses. 4xx responses are
	// returned to the caller untouched; the authenticator inspects 403.
	retryPolicy := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500 || resp.StatusCode == 429
		}).
		WithBackoff(100*time.Millisecond, 2*time.Second).
		WithMaxRetries(3).
		Build()

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500
		}).
		WithFailureThresholdRatio(5, 10). // 5 failures out of 10
		WithDelay(10 * time.Second).
		Build()

	jar, _ := cookiejar.New(nil)

	tracer := telemetry.GetTracer("http-client")
	meter := telemetry.GetMeter("http-client")

	reqCounter, _ := meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	errCounter, _ := meter.Int64Counter("http_errors_total",
		metric.WithDescription("Total number of HTTP errors"))
	latencyHist, _ := meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"))

	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}

	return &Client{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		pipeline:    failsafe.With[*http.Response](retryPolicy, breaker),
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)),
		tracer:      tracer,
		reqCounter:  reqCounter,
		errCounter:  errCounter,
		latencyHist: latencyHist,
	}
}

// GetText sends a GET request and returns the response body as a string
func (c *Client) GetText(ctx context.Context, rawURL string, params map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	req.URL.RawQuery = q.Encode()

	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Get sends a GET request and returns the raw body
func (c *Client) Get(ctx context.Context, rawURL string, params map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	req.URL.RawQuery = q.Encode()

	return c.do(req)
}

// PostForm sends an application/x-www-form-urlencoded POST request
func (c *Client) PostForm(ctx context.Context, rawURL string, fields url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

// ReplaceCookies atomically replaces the cookie store with the given cookies
// set for every listed host. Either all cookies are installed or, on a jar
// construction error, none are.
func (c *Client) ReplaceCookies(hosts []string, cookies map[string]string) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}

	for _, host := range hosts {
		u := &url.URL{Scheme: "https", Host: host, Path: "/"}
		jarCookies := make([]*http.Cookie, 0, len(cookies))
		for name, value := range cookies {
			jarCookies = append(jarCookies, &http.Cookie{
				Name:   name,
				Value:  value,
				Path:   "/",
				Domain: host,
			})
		}
		jar.SetCookies(u, jarCookies)
	}

	c.mu.Lock()
	c.client.Jar = jar
	c.mu.Unlock()
	return nil
}

// Cookies returns the cookies currently stored for the given host.
func (c *Client) Cookies(host string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u := &url.URL{Scheme: "https", Host: host, Path: "/"}
	result := make(map[string]string)
	for _, cookie := range c.client.Jar.Cookies(u) {
		result[cookie.Name] = cookie.Value
	}
	return result
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	ctx := req.Context()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("%s %s", req.Method, req.URL.Path),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)

	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	resp, err := c.pipeline.GetWithExecution(func(exec failsafe.Execution[*http.Response]) (*http.Response, error) {
		attempt := req
		if req.GetBody != nil {
			// Rewind the body so retried attempts resend it
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			attempt = req.Clone(ctx)
			attempt.Body = body
		}
		return client.Do(attempt)
	})

	duration := time.Since(start).Seconds()
	c.reqCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", req.Method),
		attribute.String("path", req.URL.Path),
	))
	c.latencyHist.Record(ctx, duration, metric.WithAttributes(
		attribute.String("method", req.Method),
		attribute.String("path", req.URL.Path),
	))

	if err != nil {
		span.RecordError(err)
		c.errCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", req.Method),
			attribute.String("path", req.URL.Path),
			attribute.String("error", "pipeline_failed"),
		))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.errCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", req.Method),
			attribute.String("path", req.URL.Path),
			attribute.Int("status", resp.StatusCode),
		))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return body, nil
}
