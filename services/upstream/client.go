package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxRefreshAttempts caps orchestrated token refreshes per logical request.
// Each successful refresh buys exactly one replay of the original request.
const maxRefreshAttempts = 3

// ProofFile is a payment-proof image attached to a booking submission.
type ProofFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Client talks to the remote booking API. It owns bearer-token handling,
// response classification and the multipart submission encoding; callers see
// raw list payloads or classified APIErrors only.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   *TokenStore
	logger   *zap.Logger
	email    string
	password string
}

// NewClient builds an upstream client. Credentials are used for the initial
// login and as the refresh fallback.
func NewClient(baseURL string, tokens *TokenStore, logger *zap.Logger, email, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		tokens:   tokens,
		logger:   logger,
		email:    email,
		password: password,
	}
}

// GetList fetches a reference-data list. The returned bytes are the raw JSON
// payload; shape normalization is the caller's concern.
func (c *Client) GetList(ctx context.Context, path string, params url.Values) ([]byte, *APIError) {
	build := func(token string) (*http.Request, error) {
		u := c.baseURL + path
		if len(params) > 0 {
			u += "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	status, body, apiErr := c.doAuthed(ctx, build)
	if apiErr != nil {
		return nil, apiErr
	}
	if status < 200 || status >= 300 {
		return nil, ClassifyResponse(status, body)
	}
	return body, nil
}

// SubmitBooking performs the single multipart POST that creates a booking.
// fields may repeat keys (item ids). Returns the booking id parsed from the
// response; a well-formed response without an id is a MalformedResponse
// failure, never papered over with a synthesized id.
func (c *Client) SubmitBooking(ctx context.Context, path string, fields url.Values, proof *ProofFile) (string, *APIError) {
	build := func(token string) (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for key, values := range fields {
			for _, v := range values {
				if err := w.WriteField(key, v); err != nil {
					return nil, err
				}
			}
		}
		if proof != nil {
			part, err := w.CreateFormFile("payment_proof", proof.FileName)
			if err != nil {
				return nil, err
			}
			if _, err := part.Write(proof.Data); err != nil {
				return nil, err
			}
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}

	status, body, apiErr := c.doAuthed(ctx, build)
	if apiErr != nil {
		return "", apiErr
	}
	if status < 200 || status >= 300 {
		return "", ClassifyResponse(status, body)
	}

	id, ok := parseBookingID(body)
	if !ok {
		return "", NewAPIError(ClassMalformedResponse, status, "booking response did not contain a booking id")
	}
	return id, nil
}

// CancelBooking proxies the upstream cancel endpoint.
func (c *Client) CancelBooking(ctx context.Context, path, bookingID, reason string) *APIError {
	build := func(token string) (*http.Request, error) {
		payload, _ := json.Marshal(map[string]string{"cancel_reason": reason})
		u := fmt.Sprintf("%s%s/%s", c.baseURL, path, url.PathEscape(bookingID))
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	status, body, apiErr := c.doAuthed(ctx, build)
	if apiErr != nil {
		return apiErr
	}
	if status < 200 || status >= 300 {
		return ClassifyResponse(status, body)
	}
	return nil
}

// doAuthed runs an authenticated request. On 401/403 it refreshes the token
// and replays the original request exactly once per successful refresh, up to
// maxRefreshAttempts, then clears the token store and reports AuthExpired.
// The request body is rebuilt per attempt via the build callback.
func (c *Client) doAuthed(ctx context.Context, build func(token string) (*http.Request, error)) (int, []byte, *APIError) {
	token := c.tokens.Access(ctx)
	if Expired(token) {
		if err := c.refresh(ctx); err != nil {
			return 0, nil, err
		}
		token = c.tokens.Access(ctx)
	}

	for attempt := 0; ; attempt++ {
		req, err := build(token)
		if err != nil {
			return 0, nil, NewAPIError(ClassNetworkUnreachable, 0, fmt.Sprintf("failed to build request: %v", err))
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, nil, NewAPIError(ClassNetworkUnreachable, 0, "check your connection")
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return 0, nil, NewAPIError(ClassNetworkUnreachable, 0, "failed to read response")
		}

		if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
			return resp.StatusCode, body, nil
		}

		if attempt >= maxRefreshAttempts-1 {
			c.tokens.Clear(ctx)
			return resp.StatusCode, body, NewAPIError(ClassAuthExpired, resp.StatusCode, "session expired, please sign in again")
		}
		if apiErr := c.refresh(ctx); apiErr != nil {
			return resp.StatusCode, body, apiErr
		}
		token = c.tokens.Access(ctx)
		c.logger.Debug("replaying request after token refresh", zap.Int("attempt", attempt+1))
	}
}

// refresh exchanges the refresh token for a new pair, falling back to a full
// credential login when no refresh token is stored. Failure clears the store.
func (c *Client) refresh(ctx context.Context) *APIError {
	var payload []byte
	path := "/auth/refresh"
	if rt := c.tokens.Refresh(ctx); rt != "" {
		payload, _ = json.Marshal(map[string]string{"refresh_token": rt})
	} else {
		path = "/auth/login"
		payload, _ = json.Marshal(map[string]string{"email": c.email, "password": c.password})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return NewAPIError(ClassNetworkUnreachable, 0, fmt.Sprintf("failed to build refresh request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return NewAPIError(ClassNetworkUnreachable, 0, "check your connection")
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.tokens.Clear(ctx)
		return NewAPIError(ClassAuthExpired, resp.StatusCode, "session expired, please sign in again")
	}

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil || tokens.AccessToken == "" {
		c.tokens.Clear(ctx)
		return NewAPIError(ClassMalformedResponse, resp.StatusCode, "token refresh returned no access token")
	}
	if err := c.tokens.Save(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		return NewAPIError(ClassServerError, 0, fmt.Sprintf("failed to persist tokens: %v", err))
	}
	return nil
}

// parseBookingID pulls the booking id out of a create-booking response. The
// upstream is loose about the key name; the candidates below are the frozen
// contract, anything else is malformed.
func parseBookingID(body []byte) (string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	for _, key := range []string{"id", "booking_id", "bookingId"} {
		if id, ok := idValue(payload[key]); ok {
			return id, true
		}
	}
	if data, ok := payload["data"].(map[string]any); ok {
		if id, ok := idValue(data["id"]); ok {
			return id, true
		}
	}
	return "", false
}

func idValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return fmt.Sprintf("%.0f", t), true
	default:
		return "", false
	}
}
