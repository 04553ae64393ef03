package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenSource yields the bearer token at request time. An empty token means
// the request is sent without an Authorization header.
type TokenSource interface {
	Token() string
}

// Client talks to the equipment analytics service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     *zap.Logger
}

// NewClient builds a client for baseURL. An httpTimeout of 0 keeps the
// transport default (no client-side timeout). tokens and logger may be nil.
func NewClient(baseURL string, httpTimeout time.Duration, tokens TokenSource, logger *zap.Logger) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &http.Client{}
	if httpTimeout > 0 {
		hc.Timeout = httpTimeout
	}
	return &Client{
		httpClient: hc,
		baseURL:    baseURL,
		tokens:     tokens,
		logger:     logger,
	}
}

// Login exchanges credentials for a token. It does not store the token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out tokenResponse
	if err := c.postJSON(ctx, "auth/login/", credentials{Username: username, Password: password}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("login response carried no token")
	}
	return out.Token, nil
}

// Register creates an account. Duplicate usernames come back as *BadRequestError.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.postJSON(ctx, "auth/register/", credentials{Username: username, Password: password}, nil)
}

// Upload sends one CSV as the multipart form field "file".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", "text/csv")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "upload/", &body, mw.FormDataContentType(), true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Summary fetches the latest dataset's summary. An account without uploads
// yields an error wrapping ErrNoSummary.
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	if err := c.getJSON(ctx, "summary/", &out); err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: %v", ErrNoSummary, nf)
		}
		return nil, err
	}
	return &out, nil
}

// History returns past uploads in the order the service sent them.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var out []HistoryEntry
	if err := c.getJSON(ctx, "history/", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []HistoryEntry{}
	}
	return out, nil
}

// DatasetRows fetches the row preview for one history entry.
func (c *Client) DatasetRows(ctx context.Context, id int64) (*DatasetTable, error) {
	var out DatasetTable
	if err := c.getJSON(ctx, "dataset/"+strconv.FormatInt(id, 10)+"/data/", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadPDF streams the report for dataset id into w and returns the byte count.
func (c *Client) DownloadPDF(ctx context.Context, id int64, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, "generate_pdf/"+strconv.FormatInt(id, 10)+"/", nil, "", true)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("stream pdf: %w", err)
	}
	return n, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	// login and register are the only unauthenticated endpoints
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json", false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "", true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends one request, exactly once. On a 2xx it returns the open response;
// otherwise the body is consumed and a classified error is returned.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, auth bool) (*http.Response, error) {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth && c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.String("request_id", reqID), zap.Error(err))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isUnreachable(err) {
			return nil, &UnreachableError{Host: hostOf(c.baseURL), Err: err}
		}
		return nil, fmt.Errorf("http request: %w", err)
	}
	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", reqID),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: extractRequestID(resp)}
	if apiErr.RequestID == "" {
		apiErr.RequestID = reqID
	}
	var m map[string]any
	if json.Unmarshal(raw, &m) == nil {
		apiErr.Message = errorMessage(m)
	}
	return nil, classifyAPIError(apiErr)
}

// errorMessage extracts {"error": "..."}, {"error": {"message": "..."}},
// {"detail": "..."} or {"message": "..."}.
func errorMessage(m map[string]any) string {
	switch v := m["error"].(type) {
	case string:
		return v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	for _, k := range []string{"detail", "message"} {
		if msg, ok := m[k].(string); ok {
			return msg
		}
	}
	return ""
}

func isUnreachable(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "X-Correlation-Id"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}
