package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tunemeld/internal/shared"
)

const maxErrorBody = 512

// GraphQLRequest is the body POSTed to the API.
type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// GraphQLResponse is the envelope returned by the API.
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// GraphQLError is one entry of a response's error list.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// ClientOptions configures a [GraphQLClient].
type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	RateLimit  float64 // requests per second; <= 0 disables limiting
	MaxRetries uint64  // retries for connection failures only
	PlayCounts *PlayCountCache
	Logger     *log.Logger
}

// GraphQLClient implements [DataGateway] against the tunemeld API.
//
// Each query is POSTed to {BaseURL}/api/{QueryName}/ so requests are distinguishable in server logs.
type GraphQLClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	maxRetries uint64
	playCounts *PlayCountCache
	logger     *log.Logger

	// retryInterval is the initial backoff interval; tests shorten it.
	retryInterval time.Duration
}

// NewGraphQLClient creates a [GraphQLClient] from opts.
func NewGraphQLClient(opts ClientOptions) *GraphQLClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := max(int(opts.RateLimit), 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &GraphQLClient{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		httpClient:    client,
		timeout:       opts.Timeout,
		limiter:       limiter,
		maxRetries:    opts.MaxRetries,
		playCounts:    opts.PlayCounts,
		logger:        shared.WithLogger(logger, "component", "gateway"),
		retryInterval: 250 * time.Millisecond,
	}
}

// NewGraphQLClientFromConfig builds a client from the [shared.APIConfig] section and an optional play count cache.
func NewGraphQLClientFromConfig(cfg shared.APIConfig, cache *PlayCountCache, logger *log.Logger) *GraphQLClient {
	return NewGraphQLClient(ClientOptions{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout(),
		RateLimit:  cfg.RateLimit,
		MaxRetries: cfg.MaxRetries,
		PlayCounts: cache,
		Logger:     logger,
	})
}

// Endpoint returns the URL a named query is POSTed to.
func (c *GraphQLClient) Endpoint(queryName string) string {
	return fmt.Sprintf("%s/api/%s/", c.baseURL, queryName)
}

// Query executes a named GraphQL query and decodes its data object into out.
//
// Connection failures are retried with exponential backoff; every other failure is returned immediately.
func (c *GraphQLClient) Query(ctx context.Context, q Query, vars map[string]any, out any) error {
	if vars == nil {
		vars = map[string]any{}
	}

	body, err := json.Marshal(GraphQLRequest{Query: q.Text, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	requestID := shared.GenerateID()
	start := time.Now()
	attempt := 0

	operation := func() error {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(c.classify(q.Name, requestID, start, err))
			}
		}

		err := c.do(ctx, q.Name, requestID, body, out)
		if err == nil {
			return nil
		}

		var gerr *GatewayError
		if errors.As(err, &gerr) && gerr.Retryable() && ctx.Err() == nil {
			c.logger.Warn("request failed, retrying", "query", q.Name, "request_id", requestID, "attempt", attempt, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx)

	if err := backoff.Retry(operation, b); err != nil {
		var gerr *GatewayError
		if !errors.As(err, &gerr) {
			err = c.classify(q.Name, requestID, start, err)
		}
		c.logger.Error("graphql query failed", "query", q.Name, "request_id", requestID, "attempts", attempt, "error", err)
		return err
	}

	c.logger.Debug("graphql query", "query", q.Name, "request_id", requestID, "attempts", attempt, "duration", time.Since(start))
	return nil
}

func (c *GraphQLClient) do(ctx context.Context, name, requestID string, body []byte, out any) error {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(name), bytes.NewReader(body))
	if err != nil {
		return &GatewayError{Kind: KindConnection, Query: name, RequestID: requestID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classify(name, requestID, start, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{
			Kind: KindDecode, Query: name, RequestID: requestID, Status: resp.StatusCode,
			Duration: time.Since(start), Err: fmt.Errorf("failed to read response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GatewayError{
			Kind: KindHTTP, Query: name, RequestID: requestID, Status: resp.StatusCode,
			Body: truncate(string(raw), maxErrorBody), Duration: time.Since(start),
		}
	}

	var envelope GraphQLResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &GatewayError{
			Kind: KindDecode, Query: name, RequestID: requestID, Status: resp.StatusCode,
			Body: truncate(string(raw), maxErrorBody), Duration: time.Since(start), Err: err,
		}
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			messages[i] = e.Message
		}
		return &GatewayError{
			Kind: KindQuery, Query: name, RequestID: requestID, Status: resp.StatusCode,
			Messages: messages, Duration: time.Since(start),
		}
	}

	if out == nil {
		return nil
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return &GatewayError{
			Kind: KindDecode, Query: name, RequestID: requestID, Status: resp.StatusCode,
			Duration: time.Since(start), Err: errors.New("response has no data"),
		}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &GatewayError{
			Kind: KindDecode, Query: name, RequestID: requestID, Status: resp.StatusCode,
			Duration: time.Since(start), Err: err,
		}
	}
	return nil
}

// classify maps a transport-level error onto a [GatewayError].
func (c *GraphQLClient) classify(name, requestID string, start time.Time, err error) *GatewayError {
	gerr := &GatewayError{Query: name, RequestID: requestID, Duration: time.Since(start), Err: err}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		gerr.Kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		gerr.Kind = KindTimeout
	default:
		gerr.Kind = KindConnection
	}
	return gerr
}
