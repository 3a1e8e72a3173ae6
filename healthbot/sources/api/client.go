package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"healthbot/healthbot/middlewares"
	"healthbot/healthbot/types"
	httputils "healthbot/healthbot/utils/http"
	"healthbot/healthbot/utils/logging"

	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

// TokenSource yields the stored bearer token, "" when signed out.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the health assistant backend.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	tokens  TokenSource
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. It applies to a copy of the HTTP
// client, whichever order the options come in.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: middlewares.Chain(http.DefaultTransport, middlewares.RequestID(), middlewares.AccessLog()),
		},
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// Health asks the backend whether it is up; no token is needed.
func (c *Client) Health(ctx context.Context) (*types.Health, error) {
	var out types.Health
	if err := c.send(ctx, http.MethodGet, "/health", nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignUp(ctx context.Context, req types.SignUpRequest) (*types.SignUpResponse, error) {
	var out types.SignUpResponse
	if err := c.send(ctx, http.MethodPost, "/api/auth/signup", req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignIn(ctx context.Context, req types.SignInRequest) (*types.Token, error) {
	var out types.Token
	if err := c.send(ctx, http.MethodPost, "/api/auth/signin", req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]types.SessionSummary, error) {
	var out []types.SessionSummary
	if err := c.send(ctx, http.MethodGet, "/api/chat/sessions", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*types.ChatSession, error) {
	var out types.ChatSession
	if err := c.send(ctx, http.MethodGet, "/api/chat/session/"+url.PathEscape(id), nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/chat/session/"+url.PathEscape(id), nil, true, nil)
}

// SendMessage posts to the session, or asks for a new one when sessionID is "".
func (c *Client) SendMessage(ctx context.Context, message, sessionID string) (*types.ChatResponse, error) {
	req := types.ChatRequest{Message: message}
	if sessionID != "" {
		req.SessionID = &sessionID
	}
	var out types.ChatResponse
	if err := c.send(ctx, http.MethodPost, "/api/chat/message", req, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]types.Document, error) {
	var out []types.Document
	if err := c.send(ctx, http.MethodGet, "/api/pdf/documents", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader) (*types.UploadResult, error) {
	req, err := httputils.NewMultipartRequest(ctx, c.baseURL+"/api/pdf/upload", "file", filename, content)
	if err != nil {
		return nil, err
	}
	var out types.UploadResult
	if err := c.do(req, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/pdf/document/"+url.PathEscape(id), nil, true, nil)
}

func (c *Client) GetProfile(ctx context.Context) (*types.Profile, error) {
	var out types.Profile
	if err := c.send(ctx, http.MethodGet, "/api/profile", nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveBasicInfo(ctx context.Context, info types.BasicInfo) error {
	return c.send(ctx, http.MethodPost, "/api/profile/basic-info", info, true, nil)
}

func (c *Client) SaveMedicalHistory(ctx context.Context, history types.MedicalHistory) error {
	return c.send(ctx, http.MethodPost, "/api/profile/medical-history", history, true, nil)
}

func (c *Client) SaveAllergies(ctx context.Context, allergies types.Allergies) error {
	return c.send(ctx, http.MethodPost, "/api/profile/allergies", allergies, true, nil)
}

func (c *Client) SaveLifestyle(ctx context.Context, lifestyle types.Lifestyle) error {
	return c.send(ctx, http.MethodPost, "/api/profile/lifestyle", lifestyle, true, nil)
}

func (c *Client) AddMedication(ctx context.Context, med types.Medication) error {
	return c.send(ctx, http.MethodPost, "/api/profile/medications", med, true, nil)
}

func (c *Client) DeleteMedication(ctx context.Context, index int) error {
	return c.send(ctx, http.MethodDelete, "/api/profile/medications/"+strconv.Itoa(index), nil, true, nil)
}

func (c *Client) send(ctx context.Context, method, path string, body any, auth bool, out any) error {
	req, err := httputils.NewJSONRequest(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	return c.do(req, auth, out)
}

func (c *Client) do(req *http.Request, auth bool, out any) error {
	ctx := req.Context()
	method, path := req.Method, req.URL.Path
	defer logging.LogDuration(ctx, method+" "+path)()

	if auth {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if token == "" {
			return ErrNotSignedIn
		}
		if tokenExpired(token, c.now()) {
			return &Error{Method: method, Path: path, Status: http.StatusUnauthorized, Detail: "token expired"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logging.AppLogger.Warn("backend unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode, Detail: httputils.Detail(data)}
		logging.AppLogger.Info("backend rejected request",
			zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.String("detail", apiErr.Detail))
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
