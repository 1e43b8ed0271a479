package commvault

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/commvault-exporter/commvault-exporter/internal/store/types"
	"github.com/commvault-exporter/commvault-exporter/internal/syslog"
)

// ErrAuth marks login failures. Probes treat it as fatal for the target
// while transport failures after authentication only degrade to no data.
var ErrAuth = errors.New("commvault authentication failed")

const loginEndpoint = "/Login"

// Client talks to one target's Commvault REST API. It is stateless apart
// from delegating token reuse to the shared TokenCache, so building one
// per probe is cheap.
type Client struct {
	target string
	cfg    types.Target
	http   *http.Client
	tokens *TokenCache
}

// NewClient validates the target configuration and builds a client with
// the target's timeout and TLS-verification settings.
func NewClient(targetName string, cfg types.Target, tokens *TokenCache) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewClient: %q -> %w", targetName, err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.SkipTLSVerify, //nolint:gosec
	}

	return &Client{
		target: targetName,
		cfg:    cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout(),
			Transport: transport,
		},
		tokens: tokens,
	}, nil
}

// Target returns the target name this client probes.
func (c *Client) Target() string {
	return c.target
}

// Login authenticates against the target and returns the token plus its
// computed expiry. The backend does not always report expiry, so it is
// derived from the nominal lifetime minus the safety margin.
func (c *Client) Login(ctx context.Context) (string, time.Time, error) {
	encoded := base64.StdEncoding.EncodeToString([]byte(c.cfg.Password))
	payload, err := json.Marshal(loginRequest{
		Username: c.cfg.Username,
		Password: encoded,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("Login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(loginEndpoint, nil), bytes.NewReader(payload))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("Login: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("Login: request failed -> %w: %w", ErrAuth, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", time.Time{}, fmt.Errorf("Login: unexpected status %d -> %w", resp.StatusCode, ErrAuth)
	}

	var parsed loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", time.Time{}, fmt.Errorf("Login: invalid response body -> %w: %w", ErrAuth, err)
	}

	token, ok := extractToken(&parsed)
	if !ok {
		return "", time.Time{}, fmt.Errorf("Login: no token field in response -> %w", ErrAuth)
	}

	expires := time.Now().Add(tokenLifetime - tokenSafetyMargin)

	syslog.L.Debug().WithTarget(c.target).WithMessage("login succeeded").Write()
	return token, expires, nil
}

// Get issues an authenticated GET and decodes the JSON body into out.
// Auth failures are returned so the probe can be marked failed. Anything
// after authentication (HTTP error status, transport error, undecodable
// body) is logged and reported as no data: found=false with a nil error,
// so one failing fetch never aborts sibling sub-collectors.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, out any) (found bool, err error) {
	token, err := c.tokens.Token(ctx, c.target, c.Login)
	if err != nil {
		return false, fmt.Errorf("Get: %s -> %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(endpoint, params), nil)
	if err != nil {
		return false, fmt.Errorf("Get: %s -> %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authtoken", token)

	resp, err := c.http.Do(req)
	if err != nil {
		syslog.L.Warn().WithTarget(c.target).
			WithField("endpoint", endpoint).
			WithField("error", err.Error()).
			WithMessage("request failed, treating as no data").Write()
		return false, nil
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		// Token went stale before its computed expiry; drop it so the
		// next probe logs in again.
		c.tokens.Invalidate(c.target)
		syslog.L.Warn().WithTarget(c.target).
			WithField("endpoint", endpoint).
			WithMessage("token rejected by backend, cache invalidated").Write()
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		syslog.L.Warn().WithTarget(c.target).
			WithField("endpoint", endpoint).
			WithField("status", resp.StatusCode).
			WithMessage("unexpected status, treating as no data").Write()
		return false, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		syslog.L.Warn().WithTarget(c.target).
			WithField("endpoint", endpoint).
			WithField("error", err.Error()).
			WithMessage("failed reading body, treating as no data").Write()
		return false, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		syslog.L.Warn().WithTarget(c.target).
			WithField("endpoint", endpoint).
			WithField("error", err.Error()).
			WithMessage("undecodable body, treating as no data").Write()
		return false, nil
	}

	return true, nil
}

func (c *Client) endpointURL(endpoint string, params url.Values) string {
	u := strings.TrimSuffix(c.cfg.APIURL, "/") + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
