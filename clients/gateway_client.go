package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "curation-bff/common/errors"
	awspkg "curation-bff/pkg/aws"

	"go.uber.org/zap"
)

// maxResponseBytes bounds how much of an upstream body is buffered.
const maxResponseBytes = 10 << 20

// ForwardOptions describes one outbound request.
type ForwardOptions struct {
	Query   url.Values
	Body    interface{}
	Headers http.Header
	Mode    HeaderMode
}

// UpstreamResponse is a successful (2xx) upstream reply.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the body into out. An empty body leaves out untouched.
func (r *UpstreamResponse) Decode(out interface{}) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return apperrors.InternalProxy(fmt.Errorf("decode upstream response: %w", err))
	}
	return nil
}

// GatewayClient forwards calls to one upstream base URL with the caller's
// credentials. Requests are sent at most once.
type GatewayClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
	metrics *awspkg.MetricsClient
}

func NewGatewayClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *GatewayClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewayClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// WithMetrics records upstream error counts on m.
func (g *GatewayClient) WithMetrics(m *awspkg.MetricsClient) *GatewayClient {
	g.metrics = m
	return g
}

// Forward issues method against baseURL+path. Credentials come from ctx.
// Non-2xx responses become Upstream errors; transport and decoding failures
// become InternalProxy errors.
func (g *GatewayClient) Forward(ctx context.Context, method, path string, opts ForwardOptions) (*UpstreamResponse, error) {
	creds, ok := CredentialsFrom(ctx)
	if !ok {
		return nil, apperrors.Unauthenticated("")
	}
	authHeaders, err := creds.Headers(g.apiKey, opts.Mode)
	if err != nil {
		return nil, err
	}

	u := g.baseURL + path
	if len(opts.Query) > 0 {
		u += "?" + opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, apperrors.InternalProxy(fmt.Errorf("encode request body: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, apperrors.InternalProxy(err)
	}
	for k, v := range opts.Headers {
		for _, vv := range v {
			req.Header.Add(k, vv)
		}
	}
	// authenticated headers win over caller-supplied ones
	for k, v := range authHeaders {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("upstream request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, apperrors.InternalProxy(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.InternalProxy(fmt.Errorf("read upstream response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upErr := upstreamError(resp.StatusCode, respBody)
		g.logger.Error("upstream returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("detail", respBody),
		)
		g.recordUpstreamError(resp.StatusCode)
		return nil, upErr
	}

	return &UpstreamResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// ForwardJSON forwards and decodes a 2xx body into out.
func (g *GatewayClient) ForwardJSON(ctx context.Context, method, path string, opts ForwardOptions, out interface{}) error {
	resp, err := g.Forward(ctx, method, path, opts)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (g *GatewayClient) recordUpstreamError(status int) {
	if !g.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = g.metrics.RecordCount(ctx, awspkg.MetricUpstreamErrors, map[string]string{
			"Upstream": g.baseURL,
			"Status":   fmt.Sprintf("%d", status),
		})
	}()
}
