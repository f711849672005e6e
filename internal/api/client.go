package api

import (
	"crypto/tls"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/icholy/digest"
)

// The appliance exposes two parallel sub-APIs with different endpoint
// sets and schemas, addressed by path segment.
const (
	// ComponentAI is the legacy communication module.
	ComponentAI = "ai"
	// ComponentHH is the newer household module.
	ComponentHH = "hh"
)

const (
	// defaultTimeout bounds a single request; the command retry loop
	// layers no timeout of its own on top.
	defaultTimeout = 10 * time.Second

	// The connection pool is kept tiny to protect the low-power
	// embedded device from overload. Aggregator fan-out beyond this
	// simply queues for a connection.
	maxConns          = 3
	maxKeepaliveConns = 1

	// transportRetries is the connect-level retry budget, nested inside
	// and separate from the command retry loop.
	transportRetries = 5
)

// Credentials hold the digest authentication username and password.
type Credentials struct {
	Username string
	Password string
}

// Client talks to one appliance. All methods are safe for concurrent
// use; concurrent calls share one bounded connection pool.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
	lastStamp  atomic.Int64
}

// NewClient creates a client for the appliance at baseURL, e.g.
// "http://192.168.1.50". A nil credentials means unauthenticated
// requests. TLS certificate verification is disabled: appliances use
// self-signed local certificates.
func NewClient(baseURL string, credentials *Credentials) *Client {
	base := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		MaxConnsPerHost:     maxConns,
		MaxIdleConnsPerHost: maxKeepaliveConns,
	}

	var rt http.RoundTripper = base
	if credentials != nil {
		rt = &digest.Transport{
			Transport: base,
			Username:  credentials.Username,
			Password:  credentials.Password,
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &retryTransport{next: rt, retries: transportRetries},
			Timeout:   defaultTimeout,
		},
		retryDelay: defaultRetryDelay,
	}
}

// BaseURL returns the appliance base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetRetryDelay overrides the default linear backoff unit of the
// command retry loop. Mainly useful in tests.
func (c *Client) SetRetryDelay(d time.Duration) {
	c.retryDelay = d
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// cacheBuster returns a strictly increasing timestamp string. Every
// command carries it as the "_" query parameter so the device never
// serves a stale cached response, even for calls within one second.
func (c *Client) cacheBuster() string {
	now := time.Now().Unix()
	for {
		last := c.lastStamp.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if c.lastStamp.CompareAndSwap(last, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}

// retryTransport retries requests that failed before producing any
// response, mirroring the connect-level retries of the embedded
// device's official clients. Command-level retry policy (status codes,
// backoff, fallbacks) lives in Client.command, not here.
type retryTransport struct {
	next    http.RoundTripper
	retries int
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		resp, err := t.next.RoundTrip(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		// Only safe to retry when the request is replayable and the
		// caller has not given up.
		if req.Body != nil || req.Context().Err() != nil {
			break
		}
	}
	return nil, lastErr
}
