// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/helper/gc"
)

// DefaultTimeout bounds every remote call when the configuration does not
// override it. A hung MISP instance surfaces as a KindTransport error once
// the timeout fires instead of blocking the invocation forever.
const DefaultTimeout = 30 * time.Second

// API is the operation surface the MCP handlers depend on. Handlers receive
// an API by constructor injection so tests can substitute a fake without any
// network access. *Client is the production implementation.
type API interface {
	// TestConnection verifies reachability and authentication in one call.
	TestConnection(ctx context.Context) (*VersionInfo, error)

	// GetVersion returns the remote MISP version and permission flags.
	GetVersion(ctx context.Context) (*VersionInfo, error)

	// CreateEvent creates a new event and returns the stored copy.
	CreateEvent(ctx context.Context, req CreateEventRequest) (*Event, error)

	// GetEvent retrieves one event by numeric id or UUID, attributes included.
	GetEvent(ctx context.Context, eventID string) (*Event, error)

	// SearchEvents runs a filtered event search.
	SearchEvents(ctx context.Context, req EventSearchRequest) ([]Event, error)

	// AddAttribute attaches a new attribute to an existing event.
	AddAttribute(ctx context.Context, eventID string, payload AttributePayload) (*Attribute, error)

	// SearchAttributes runs a filtered attribute search.
	SearchAttributes(ctx context.Context, req AttributeSearchRequest) ([]Attribute, error)

	// ListFeeds returns the configured feed sources.
	ListFeeds(ctx context.Context) ([]Feed, error)

	// Metrics returns a snapshot of request counters for diagnostics.
	Metrics() MetricsSnapshot
}

// Config carries the validated connection settings for a [Client]. It is
// built once at startup and passed by value; nothing reads the environment
// after construction.
type Config struct {
	// BaseURL is the absolute URL of the MISP instance, scheme included.
	BaseURL string

	// APIKey is the MISP automation key sent on every request.
	APIKey string

	// VerifySSL controls TLS certificate verification. Disabling it is only
	// intended for self-signed lab instances.
	VerifySSL bool

	// Timeout bounds each remote call. Zero selects [DefaultTimeout].
	Timeout time.Duration

	// UserAgent identifies this adapter to the MISP instance. Optional.
	UserAgent string
}

// Client is an authenticated handle to one MISP instance. It wraps a single
// long-lived [http.Client], which is safe for concurrent use, so one Client
// serves every concurrently dispatched tool invocation. No retries are
// performed; a failed remote call surfaces immediately to the caller.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
	metrics   metrics
}

var _ API = (*Client)(nil)

// NewClient validates cfg and returns a ready Client. Validation failures are
// KindConfiguration errors naming the offending setting, so startup can fail
// fast with an actionable message.
func NewClient(cfg Config) (*Client, error) {
	const op = "misp: new client"

	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, newError(KindConfiguration, op, "MISP_URL is required", nil)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, newError(KindConfiguration, op, fmt.Sprintf("MISP_URL must be an absolute URL including scheme, got %q", cfg.BaseURL), err)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, newError(KindConfiguration, op, "MISP_API_KEY is required", nil)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "misp-mcp-server"
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: userAgent,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// newRequest builds an authenticated request. MISP expects the automation key
// bare in the Authorization header, not as a bearer token.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

// do executes the request, classifies failures into the error taxonomy, and
// decodes the 2xx response body into v when v is non-nil.
func (c *Client) do(op string, req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		terr := classifyTransport(op, err)
		c.metrics.record(terr)
		return terr
	}
	defer resp.Body.Close()

	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	if _, err := buf.ReadFrom(resp.Body); err != nil {
		terr := newError(KindTransport, op, "reading response from MISP failed", err)
		c.metrics.record(terr)
		return terr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := classifyStatus(op, resp.StatusCode, buf.Bytes())
		c.metrics.record(serr)
		return serr
	}

	if v != nil {
		if err := json.Unmarshal(buf.Bytes(), v); err != nil {
			uerr := newError(KindUnknown, op, "MISP returned a response this adapter could not decode", err)
			c.metrics.record(uerr)
			return uerr
		}
	}

	c.metrics.record(nil)
	return nil
}

// classifyTransport maps http.Client.Do failures (DNS, TCP, TLS, timeouts,
// context cancellation) onto KindTransport.
func classifyTransport(op string, err error) *Error {
	detail := "could not reach the MISP instance"
	if uerr, ok := err.(*url.Error); ok && uerr.Timeout() {
		detail = "the request to MISP timed out"
	}
	return newError(KindTransport, op, detail, err)
}

// classifyStatus maps non-2xx responses onto the taxonomy, pulling the
// human-readable message out of MISP's JSON error envelope when present.
func classifyStatus(op string, status int, body []byte) *Error {
	detail := errorDetail(body)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if detail == "" {
			detail = "MISP rejected the API key"
		}
		return newError(KindAuthentication, op, fmt.Sprintf("%s (HTTP %d)", detail, status), nil)
	case status == http.StatusNotFound:
		if detail == "" {
			detail = "the requested object does not exist on this MISP instance"
		}
		return newError(KindNotFound, op, detail, nil)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if detail == "" {
			detail = "MISP rejected the request payload"
		}
		return newError(KindValidation, op, detail, nil)
	default:
		if detail == "" {
			detail = "unexpected response from MISP"
		}
		return newError(KindUnknown, op, fmt.Sprintf("%s (HTTP %d)", detail, status), nil)
	}
}

// apiError is MISP's JSON error envelope. The errors member varies between a
// list, a map of field errors, and a bare string depending on the controller.
type apiError struct {
	Name    string          `json:"name"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

const maxErrorDetail = 240

func errorDetail(body []byte) string {
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}

	detail := envelope.Message
	if detail == "" {
		detail = envelope.Name
	}
	if len(envelope.Errors) > 0 && string(envelope.Errors) != "null" {
		extra := string(envelope.Errors)
		if detail != "" {
			detail += ": " + extra
		} else {
			detail = extra
		}
	}
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail] + "..."
	}
	return detail
}
