package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-chat-auth/internal/config"
	"github.com/jrsteele09/go-chat-auth/internal/errors"
)

const (
	methodSignInWithPassword = "signInWithPassword"
	methodSignUp             = "signUp"
	contentTypeJSON          = "application/json"
)

// Client talks to the Identity Toolkit REST API.
type Client struct {
	baseURL        string
	secureTokenURL string
	apiKey         string
	httpClient     *http.Client
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for all calls.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL overrides the accounts endpoint root (used by tests and the
// auth emulator).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithSecureTokenURL overrides the refresh token endpoint.
func WithSecureTokenURL(tokenURL string) ClientOption {
	return func(c *Client) {
		c.secureTokenURL = tokenURL
	}
}

// NewClient creates a Client from configuration. Options are applied after
// the configured values.
func NewClient(cfg config.IdentityConfig, options ...ClientOption) (*Client, error) {
	if cfg.GetAPIKey() == "" {
		return nil, errors.Wrapf(errors.ErrMissingAPIKey, "[identity NewClient]")
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.GetIdentityBaseURL(), "/"),
		secureTokenURL: cfg.GetSecureTokenURL(),
		apiKey:         cfg.GetAPIKey(),
		httpClient:     &http.Client{Timeout: cfg.GetIdentityTimeout()},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// SignInWithPassword verifies an email/password pair.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*SignInResponse, error) {
	var resp SignInResponse
	if err := c.post(ctx, methodSignInWithPassword, passwordRequest(email, password), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignUp registers a new email/password account.
func (c *Client) SignUp(ctx context.Context, email, password string) (*SignUpResponse, error) {
	var resp SignUpResponse
	if err := c.post(ctx, methodSignUp, passwordRequest(email, password), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func passwordRequest(email, password string) PasswordRequest {
	return PasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/accounts:%s?key=%s", c.baseURL, method, url.QueryEscape(c.apiKey))
}

func (c *Client) post(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("[identity %s] failed to encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("[identity %s] failed to build request: %w", method, err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("[identity %s] %w: %w", method, errors.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("[identity %s] %w: reading body: %w", method, errors.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if apiErr := parseAPIError(resp.StatusCode, data); apiErr != nil {
			return apiErr
		}
		return fmt.Errorf("[identity %s] %w: status %d", method, errors.ErrUnexpectedResponse, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("[identity %s] %w: %w", method, errors.ErrUnexpectedResponse, err)
	}
	return nil
}
