// Package api is the HTTP boundary to the LockerRoom identity endpoints.
// All responses are validated and converted into tagged results here;
// nothing past this package sees raw HTTP errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lockerroom/lockerroom/internal/domain/user"
	"github.com/lockerroom/lockerroom/internal/observability"
)

// RequestError is a non-2xx answer to login/register/password calls,
// carrying the server's structured message for the UI.
type RequestError struct {
	Status  int
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("request failed with status %d", e.Status)
}

type Client struct {
	baseURL string
	httpc   *http.Client
	log     *slog.Logger
	prom    *observability.Prom // optional
}

// New builds a client with its own cookie jar so auth cookies can be
// expired on logout.
func New(baseURL string, log *slog.Logger, prom *observability.Prom) *Client {
	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
		log:  log,
		prom: prom,
	}
}

// FetchCurrentUser asks the server who the bearer of token is. The request
// carries no-store directives plus a cache-busting query parameter: the
// answer must reflect the server's current truth, never a proxy cache.
func (c *Client) FetchCurrentUser(ctx context.Context, token string) FetchResult {
	endpoint := c.baseURL + "/api/users/me?_ts=" + strconv.FormatInt(time.Now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)

	if err != nil {
		return c.fetchResult(FetchResult{Kind: FetchTransient, Err: err})
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpc.Do(req)

	if err != nil {
		// timeouts, DNS, connection resets: all transient
		return c.fetchResult(FetchResult{Kind: FetchTransient, Err: err})
	}

	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var u user.User

		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return c.fetchResult(FetchResult{Kind: FetchTransient, Err: fmt.Errorf("decode me response: %w", err)})
		}

		if u.ID == "" || u.Role == "" {
			// unexpected shape: reject at the boundary rather than let a
			// half-empty identity propagate
			return c.fetchResult(FetchResult{Kind: FetchTransient, Err: fmt.Errorf("me response missing id/role")})
		}

		return c.fetchResult(FetchResult{Kind: FetchOK, User: u})

	case resp.StatusCode == http.StatusUnauthorized:
		return c.fetchResult(FetchResult{Kind: FetchUnauthorized})

	case resp.StatusCode == http.StatusForbidden:
		code, msg := decodeError(resp.Body)

		if code == codeAccountDeactivated {
			return c.fetchResult(FetchResult{Kind: FetchForbiddenDeactivated, Message: msg})
		}

		return c.fetchResult(FetchResult{Kind: FetchForbidden, Message: msg})

	default:
		return c.fetchResult(FetchResult{Kind: FetchTransient, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)})
	}
}

// Login posts credentials and returns the token + merged-ready user payload.
// Non-2xx comes back as *RequestError with the server's message.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	return c.postIdentity(ctx, "/api/auth/login", LoginRequest{Email: email, Password: password})
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (LoginResponse, error) {
	return c.postIdentity(ctx, "/api/auth/signup", req)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.postJSON(ctx, "/api/auth/forgot-password", ForgotPasswordRequest{Email: email})

	return err
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	_, err := c.postJSON(ctx, "/api/auth/reset-password", ResetPasswordRequest{Token: token, NewPassword: newPassword})

	return err
}

// ExpireAuthCookies overwrites every auth-looking cookie for the API origin
// with a past expiry, which drops it from the jar.
func (c *Client) ExpireAuthCookies() {
	if c.httpc.Jar == nil {
		return
	}

	u, err := url.Parse(c.baseURL)

	if err != nil {
		return
	}

	past := time.Unix(0, 0)
	expired := make([]*http.Cookie, 0)

	for _, ck := range c.httpc.Jar.Cookies(u) {
		if ck.Name == "token" || strings.HasPrefix(ck.Name, "auth") || ck.Name == "refresh_token" {
			expired = append(expired, &http.Cookie{
				Name:    ck.Name,
				Value:   "",
				Expires: past,
				MaxAge:  -1,
			})
		}
	}

	if len(expired) > 0 {
		c.httpc.Jar.SetCookies(u, expired)
	}
}

func (c *Client) postIdentity(ctx context.Context, path string, body any) (LoginResponse, error) {
	raw, err := c.postJSON(ctx, path, body)

	if err != nil {
		return LoginResponse{}, err
	}

	var out LoginResponse

	if err := json.Unmarshal(raw, &out); err != nil {
		return LoginResponse{}, fmt.Errorf("decode identity response: %w", err)
	}

	if out.Token == "" || out.User.ID == "" {
		return LoginResponse{}, fmt.Errorf("identity response missing token/user")
	}

	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)

	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))

	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, msg := decodeError(bytes.NewReader(raw))

		return nil, &RequestError{Status: resp.StatusCode, Code: code, Message: msg}
	}

	return raw, nil
}

func decodeError(r io.Reader) (code, message string) {
	var e apiError

	if json.NewDecoder(r).Decode(&e) != nil {
		return "", ""
	}

	return e.Error.Code, e.Error.Message
}

func (c *Client) fetchResult(res FetchResult) FetchResult {
	if c.prom != nil {
		c.prom.FetchOutcomes.WithLabelValues(res.Kind.String()).Inc()
	}

	if res.Kind == FetchTransient && c.log != nil {
		c.log.Warn("identity fetch degraded", "err", res.Err)
	}

	return res
}
