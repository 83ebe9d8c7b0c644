package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to the document backend (/chat, /upload_and_analyze, /generate_document).
type Client struct {
	httpClient       *http.Client
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	logger           *zap.Logger
}

// ChatRequest is the body posted to /chat.
type ChatRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// ChatResponse is the reply from /chat. Action and Params are optional.
type ChatResponse struct {
	BotMessage string         `json:"bot_message"`
	Action     string         `json:"action,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	RequestID  string         `json:"-"`
}

// AnalyzeResponse is the reply from /upload_and_analyze. Summary is kept opaque.
type AnalyzeResponse struct {
	BotMessage      string          `json:"bot_message"`
	Summary         json.RawMessage `json:"summary,omitempty"`
	Insights        []string        `json:"insights,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
	RequestID       string          `json:"-"`
}

// GenerateResponse is the reply from /generate_document.
type GenerateResponse struct {
	BotMessage  string `json:"bot_message"`
	DownloadURL string `json:"download_url,omitempty"`
	RequestID   string `json:"-"`
}

// NewClient allows customizing HTTP timeout and retry/backoff behavior.
func NewClient(baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, logger *zap.Logger) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient:       &http.Client{Timeout: httpTimeout},
		baseURL:          strings.TrimRight(baseURL, "/"),
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
		logger:           logger,
	}
}

// BaseURL returns the backend root the client posts to.
func (c *Client) BaseURL() string { return c.baseURL }

// Chat forwards a user message to /chat.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message cannot be empty")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var out ChatResponse
	rid, err := c.post(ctx, "/chat", "application/json", payload, &out)
	if err != nil {
		return nil, err
	}
	out.RequestID = rid
	return &out, nil
}

// UploadAndAnalyze sends a file as multipart field "file" to /upload_and_analyze.
func (c *Client) UploadAndAnalyze(ctx context.Context, filename string, content []byte) (*AnalyzeResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	var out AnalyzeResponse
	rid, err := c.post(ctx, "/upload_and_analyze", mw.FormDataContentType(), buf.Bytes(), &out)
	if err != nil {
		return nil, err
	}
	out.RequestID = rid
	return &out, nil
}

// GenerateDocument posts the action params returned by /chat to /generate_document.
func (c *Client) GenerateDocument(ctx context.Context, params map[string]any) (*GenerateResponse, error) {
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var out GenerateResponse
	rid, err := c.post(ctx, "/generate_document", "application/json", payload, &out)
	if err != nil {
		return nil, err
	}
	out.RequestID = rid
	return &out, nil
}

// post sends payload with retries on 429, 5xx and transient network errors,
// decodes a 2xx body into out and returns the response request id.
func (c *Client) post(ctx context.Context, path, contentType string, payload []byte, out any) (string, error) {
	endpoint := c.baseURL + path
	maxAttempts := c.retryMaxAttempts
	backoff := c.retryBaseDelay
	log := c.logger.With(zap.String("endpoint", path))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", contentType)
		httpReq.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if isRetryableNetErr(err) && attempt < maxAttempts {
				log.Debug("retrying after network error", zap.Int("attempt", attempt), zap.Error(err))
				lastErr = err
				if err := sleep(ctx, withJitter(backoff)); err != nil {
					return "", err
				}
				backoff *= 2
				continue
			}
			return "", &UnreachableError{Host: c.baseURL, Err: err}
		}

		rid, retryAfter, err := c.readResponse(resp, out, attempt < maxAttempts)
		if err == nil {
			return rid, nil
		}
		lastErr = err
		if retryAfter < 0 {
			return "", err
		}
		wait := retryAfter
		if wait == 0 {
			wait = withJitter(backoff)
			if c.retryMaxDelay > 0 && wait > c.retryMaxDelay {
				wait = c.retryMaxDelay
			}
			backoff *= 2
		}
		log.Debug("retrying after backend error", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		if err := sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// readResponse consumes resp. A negative retryAfter means the error is final;
// zero means retry with backoff; positive is a server-requested delay.
func (c *Client) readResponse(resp *http.Response, out any, canRetry bool) (string, time.Duration, error) {
	defer resp.Body.Close()
	rid := extractRequestID(resp)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return rid, -1, fmt.Errorf("decode response: %w", err)
		}
		return rid, 0, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: rid}
	src := raw
	if v, ok := raw["error"].(map[string]any); ok {
		src = v
	} else if s, ok := raw["error"].(string); ok {
		apiErr.Message = s
	}
	if msg, ok := src["message"].(string); ok {
		apiErr.Message = msg
	} else if msg, ok := src["detail"].(string); ok {
		apiErr.Message = msg
	}
	if code, ok := src["code"].(string); ok {
		apiErr.Code = code
	}
	if apiErr.Message == "" && len(raw) == 0 {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
	if retryable && canRetry {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
				return rid, time.Duration(secs) * time.Second, &RateLimitError{APIError: apiErr, RetryAfter: time.Duration(secs) * time.Second}
			}
		}
		return rid, 0, apiErr
	}
	return rid, -1, classifyAPIError(apiErr, resp)
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	// EOF or connection reset
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

// parseRetryAfterSeconds tries to interpret Retry-After header value as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// classifyAPIError maps generic APIError to typed errors.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	switch {
	case sc == http.StatusTooManyRequests:
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case sc >= 400 && sc <= 499 && sc != http.StatusNotFound:
		return &BadRequestError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "X-Correlation-Id", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
