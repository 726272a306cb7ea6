package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fdwatch/fdwatch/internal/chart"
	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/logger"
)

// maxBody caps a single response. Log increments are the only large
// payloads and a server that hands back more than this in one poll is
// misbehaving.
const maxBody = 64 << 20

// DialFunc opens the network connection behind every API request. The SSH
// tunnel in pkg/sshutil provides one.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client talks to the fastdeploy API. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	http       *http.Client
	endpoints  Endpoints
	exposition map[string]string
	log        logger.Logger
	metrics    *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Apply it before WithTimeout or
// WithDialer, which modify the client in place.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithDialer routes requests through dial.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = dial
		// the tunnel host resolves names, not us
		transport.Proxy = nil
		c.http.Transport = transport
	}
}

// WithEndpoints overrides API paths; empty fields keep their defaults.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e.Merge(DefaultEndpoints()) }
}

// WithExposition makes FetchMetric scrape a Prometheus text exposition for
// serverID instead of calling the metric endpoint.
func WithExposition(serverID, rawURL string) Option {
	return func(c *Client) {
		if rawURL != "" {
			c.exposition[serverID] = rawURL
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records request counts and latency in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for the API rooted at baseURL, for example
// http://localhost:8040/api/fastdeploy.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New(errors.ErrConfig,
			"No API address configured",
			"Set 'api' in .fdwatch.yaml, export FDWATCH_API, or pass --api")
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil || u.Scheme == "" || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing scheme or host")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid API address: %s", baseURL),
			"Use a full URL like http://localhost:8040/api/fastdeploy")
	}

	c := &Client{
		base:       u,
		http:       &http.Client{Timeout: 10 * time.Second},
		endpoints:  DefaultEndpoints(),
		exposition: make(map[string]string),
		log:        logger.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// envelope is the JSON wrapper around every structured API response.
type envelope struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

func (e envelope) err(name string) error {
	if e.Status == 0 {
		return nil
	}
	msg := e.Msg
	if msg == "" {
		msg = "status " + strconv.Itoa(e.Status)
	}
	return errors.New(errors.ErrFetch, fmt.Sprintf("%s: %s", name, msg), "")
}

func (e envelope) hasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

func (c *Client) endpointURL(path string, query url.Values) string {
	ref := &url.URL{Path: strings.TrimLeft(path, "/")}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	return c.base.ResolveReference(ref).String()
}

// call issues a GET and hands the body to handle. Transport failures,
// non-2xx statuses and handler errors all count as failed requests.
func (c *Client) call(ctx context.Context, name, target string, handle func(body []byte, contentType string) error) (err error) {
	start := time.Now()
	defer func() { c.metrics.observe(name, start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't build %s request", name),
			"Check the API address in your config")
	}

	c.log.Debug("GET %s", target)
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFetch,
			fmt.Sprintf("%s request failed", name),
			"Check the API address and that the server is reachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFetch,
			fmt.Sprintf("Reading %s response failed", name), "")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		if env := (envelope{}); json.Unmarshal(body, &env) == nil && env.Msg != "" {
			detail = env.Msg
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return errors.WrapWithCode(fmt.Errorf("%s", detail), errors.ErrFetch,
			fmt.Sprintf("%s returned HTTP %d", name, resp.StatusCode), "")
	}

	return handle(body, resp.Header.Get("Content-Type"))
}

// getJSON calls a structured endpoint and decodes its data into out. A
// null or missing data field leaves out untouched.
func (c *Client) getJSON(ctx context.Context, name, path string, query url.Values, out any) error {
	return c.call(ctx, name, c.endpointURL(path, query), func(body []byte, _ string) error {
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return errors.WrapWithCode(err, errors.ErrPayload,
				fmt.Sprintf("%s sent a response that isn't JSON", name), "")
		}
		if err := env.err(name); err != nil {
			return err
		}
		if out == nil || !env.hasData() {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.WrapWithCode(err, errors.ErrPayload,
				fmt.Sprintf("%s sent data in an unexpected shape", name), "")
		}
		return nil
	})
}

func serverQuery(serverID string) url.Values {
	return url.Values{"server_id": []string{serverID}}
}

// CheckAlive returns nil when the server process is running. A dead server
// comes back as an error carrying the API's explanation.
func (c *Client) CheckAlive(ctx context.Context, serverID string) error {
	return c.getJSON(ctx, "check_alive", c.endpoints.CheckAlive, serverQuery(serverID), nil)
}

// FetchLogIncrement returns log output past fromOffset. An empty string
// means nothing new.
func (c *Client) FetchLogIncrement(ctx context.Context, serverID string, fromOffset int) (string, error) {
	q := serverQuery(serverID)
	q.Set("length", strconv.Itoa(fromOffset))

	var chunk string
	err := c.call(ctx, "output", c.endpointURL(c.endpoints.Output, q), func(body []byte, contentType string) error {
		chunk = decodeOutput(body, contentType)
		return nil
	})
	if err != nil {
		return "", err
	}
	c.metrics.addLogBytes(len(chunk))
	return chunk, nil
}

// decodeOutput accepts the plain-text body the API normally sends, and the
// JSON envelope some deployments wrap it in.
func decodeOutput(body []byte, contentType string) string {
	if strings.HasPrefix(contentType, "application/json") {
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Status == 0 {
			var s string
			if env.hasData() && json.Unmarshal(env.Data, &s) == nil {
				return s
			}
			if !env.hasData() {
				return ""
			}
		}
	}
	if s := string(body); s != "null" && s != "None" {
		return s
	}
	return ""
}

// FetchMetric returns the current metric snapshot. A server with an
// exposition URL configured is scraped directly.
func (c *Client) FetchMetric(ctx context.Context, serverID string) (*chart.Snapshot, error) {
	if target, ok := c.exposition[serverID]; ok {
		return c.scrapeExposition(ctx, target)
	}

	snap := &chart.Snapshot{}
	if err := c.getJSON(ctx, "metric", c.endpoints.Metric, serverQuery(serverID), snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *Client) scrapeExposition(ctx context.Context, target string) (*chart.Snapshot, error) {
	var snap *chart.Snapshot
	err := c.call(ctx, "exposition", target, func(body []byte, _ string) error {
		parsed, err := chart.ParseExposition(bytes.NewReader(body))
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrPayload,
				"Metrics endpoint sent an unreadable exposition",
				"Check the exposition URL points at a Prometheus /metrics endpoint")
		}
		snap = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// FetchExpandedMetric returns the stacked-bar detail for one device type.
func (c *Client) FetchExpandedMetric(ctx context.Context, serverID, deviceType string, topK int) (*chart.Expanded, error) {
	q := serverQuery(serverID)
	q.Set("device_type", deviceType)
	q.Set("topk", strconv.Itoa(topK))

	exp := &chart.Expanded{}
	if err := c.getJSON(ctx, "metric_expand", c.endpoints.MetricExpand, q, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// FetchConfig returns the server's model configuration.
func (c *Client) FetchConfig(ctx context.Context, serverID string) (ServerConfig, error) {
	var raw any
	if err := c.getJSON(ctx, "config", c.endpoints.Config, serverQuery(serverID), &raw); err != nil {
		return ServerConfig{}, err
	}
	return NewServerConfig(raw), nil
}

// ListServers returns the ids of servers the API knows to be running.
func (c *Client) ListServers(ctx context.Context) ([]string, error) {
	var raw []any
	if err := c.getJSON(ctx, "list", c.endpoints.List, nil, &raw); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		ids = append(ids, scalarString(v))
	}
	return ids, nil
}

// StopServer asks the API to stop a server.
func (c *Client) StopServer(ctx context.Context, serverID string) error {
	return c.getJSON(ctx, "stop", c.endpoints.Stop, serverQuery(serverID), nil)
}

// ClientURL is the address of the server's interactive client page.
func (c *Client) ClientURL(serverID string) string {
	return c.endpointURL(c.endpoints.Client, serverQuery(serverID))
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
