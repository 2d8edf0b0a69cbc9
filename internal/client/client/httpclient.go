package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dmitrijs2005/filedash/internal/common"
	"github.com/dmitrijs2005/filedash/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const maxErrorBody = 64 * 1024

type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	logger  logging.Logger

	conn   *grpc.ClientConn
	health grpc_health_v1.HealthClient

	refreshMu sync.Mutex
}

type Option func(*HTTPClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// WithHealthAddr makes Ping use the gRPC health service at addr instead
// of GET /healthz.
func WithHealthAddr(addr string) Option {
	return func(c *HTTPClient) {
		if addr == "" {
			return
		}
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			c.logger.Warn(context.Background(), "health client disabled", "addr", addr, "error", err)
			return
		}
		c.conn = conn
		c.health = grpc_health_v1.NewHealthClient(conn)
	}
}

func NewHTTPClient(baseURL string, tokens TokenStore, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  tokens,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("module", "api_client")
	return c, nil
}

func (c *HTTPClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	if c.health == nil {
		return c.do(ctx, http.MethodGet, "/healthz", nil, nil, false)
	}

	resp, err := c.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return mapRPCError(err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return ErrUnavailable
	}
	return nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// envelope mirrors the {success, data, error} shape of the auth endpoints.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data"`
	Error   string `json:"error"`
}

func unwrap[T any](env *envelope[T]) (*T, error) {
	if !env.Success || env.Data == nil {
		if env.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, env.Error)
		}
		return nil, ErrInvalidResponse
	}
	return env.Data, nil
}

func (c *HTTPClient) Register(ctx context.Context, email, password string) (*models.AuthResult, error) {
	var env envelope[models.AuthResult]
	if err := c.do(ctx, http.MethodPost, "/auth/signup", credentials{email, password}, &env, false); err != nil {
		return nil, err
	}
	return unwrap(&env)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	var env envelope[models.AuthResult]
	if err := c.do(ctx, http.MethodPost, "/auth/login", credentials{email, password}, &env, false); err != nil {
		return nil, err
	}
	return unwrap(&env)
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	var env envelope[models.TokenPair]
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, &env, false); err != nil {
		return nil, err
	}
	return unwrap(&env)
}

func (c *HTTPClient) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return c.do(ctx, http.MethodPost, "/auth/logout", body, nil, true)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var env envelope[models.User]
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &env, true); err != nil {
		return nil, err
	}
	return unwrap(&env)
}

func (c *HTTPClient) ListFiles(ctx context.Context, q models.ListQuery) (*models.FileList, error) {
	path := "/files"
	if enc := q.Values().Encode(); enc != "" {
		path += "?" + enc
	}
	var out models.FileList
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteFile(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/files/"+url.PathEscape(id), nil, nil, true)
}

// DownloadURL returns the signed link the server redirects to without
// following it.
func (c *HTTPClient) DownloadURL(ctx context.Context, id string) (string, error) {
	noRedirect := *c.http
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := c.send(ctx, &noRedirect, http.MethodGet, "/files/"+url.PathEscape(id)+"/download", nil, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", fmt.Errorf("%w: redirect without location", ErrInvalidResponse)
		}
		return loc, nil
	case resp.StatusCode >= 400:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", mapStatus(resp.StatusCode, b)
	default:
		var out struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.URL == "" {
			return "", fmt.Errorf("%w: no download url", ErrInvalidResponse)
		}
		return out.URL, nil
	}
}

// do sends a JSON request and decodes a JSON answer into out (when non-nil).
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any, auth bool) error {
	resp, err := c.send(ctx, c.http, method, path, in, auth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return mapStatus(resp.StatusCode, b)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// send performs the request and, for authenticated calls answered with
// "token expired", refreshes the token pair once and retries.
func (c *HTTPClient) send(ctx context.Context, hc *http.Client, method, path string, in any, auth bool) (*http.Response, error) {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		payload = b
	}

	resp, err := c.sendOnce(ctx, hc, method, path, payload, auth)
	if err != nil || !auth || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	if d, _ := detailFromBody(b); d != common.ErrTokenExpired.Error() {
		resp.Body = io.NopCloser(bytes.NewReader(b))
		return resp, nil
	}

	if err := c.refreshTokens(ctx); err != nil {
		c.logger.Warn(ctx, "token refresh failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	c.logger.Debug(ctx, "tokens refreshed, retrying", "path", path)
	return c.sendOnce(ctx, hc, method, path, payload, auth)
}

func (c *HTTPClient) sendOnce(ctx context.Context, hc *http.Client, method, path string, payload []byte, auth bool) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if auth {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}
	return resp, nil
}

func (c *HTTPClient) accessToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", ErrUnauthorized
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("read access token: %w", err)
	}
	if token == "" {
		return "", ErrUnauthorized
	}
	return token, nil
}

func (c *HTTPClient) refreshTokens(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.tokens == nil {
		return ErrUnauthorized
	}
	refresh, err := c.tokens.RefreshToken(ctx)
	if err != nil {
		return err
	}
	if refresh == "" {
		return ErrUnauthorized
	}

	pair, err := c.Refresh(ctx, refresh)
	if err != nil {
		return err
	}
	return c.tokens.SaveTokens(ctx, *pair)
}

func mapTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func mapRPCError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
