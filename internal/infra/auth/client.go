package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"assistant-chat/internal/domain"
	"assistant-chat/internal/domain/model"
	"assistant-chat/internal/domain/ports/adapter"
	"assistant-chat/internal/infra/logging"
	"assistant-chat/internal/infra/metrics"
)

var _ adapter.Authenticator = (*Client)(nil)

const (
	DevEmail = "dev@local"
	DevToken = "dev-token"
)

// Client signs users in against the platform API and stores the result in a Session.
type Client struct {
	apiURL          string
	loginPath       string
	googleLoginPath string
	appID           string
	devLogin        bool

	http    *http.Client
	session *Session
	log     *zerolog.Logger
}

func NewClient(apiURL, loginPath, googleLoginPath, appID string, devLogin bool, session *Session, logger *zerolog.Logger) *Client {
	l := logger.With().Str("component", "auth_client").Logger()
	return &Client{
		apiURL:          strings.TrimRight(apiURL, "/"),
		loginPath:       loginPath,
		googleLoginPath: googleLoginPath,
		appID:           appID,
		devLogin:        devLogin,
		http:            &http.Client{Timeout: 15 * time.Second},
		session:         session,
		log:             &l,
	}
}

func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) Session() *Session { return c.session }

// loginResponse is the body returned by both login endpoints.
type loginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        *loginUser `json:"user,omitempty"`
}

// flexID accepts both string and numeric user ids.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexID(b)
	return nil
}

type loginUser struct {
	ID           flexID            `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	Avatar       string            `json:"avatar"`
	Applications map[string]string `json:"applications"`
}

// tokenClaims is the payload of the platform access token.
type tokenClaims struct {
	Name         string            `json:"name,omitempty"`
	Picture      string            `json:"picture,omitempty"`
	Applications map[string]string `json:"applications,omitempty"`
	jwt.RegisteredClaims
}

// googleClaims is the subset of a Google ID token forwarded to the platform.
type googleClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Login exchanges e-mail and password for a token. Any rejection by the
// server is reported as domain.ErrInvalidLogin.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	if c.devLogin && email == DevEmail {
		u := DevUser(c.appID)
		c.session.set(DevToken, u)
		metrics.IncLoginAttempt("ok")
		return u, nil
	}
	if c.apiURL == "" {
		metrics.IncLoginAttempt("error")
		return nil, errors.New("auth: api_url is not configured")
	}

	body := map[string]string{"email": email, "password": password}
	resp, err := c.post(ctx, c.loginPath, body)
	if err != nil {
		metrics.IncLoginAttempt("error")
		return nil, err
	}
	if resp.status < 200 || resp.status >= 300 {
		metrics.IncLoginAttempt("invalid")
		c.log.Warn().Int("status", resp.status).Str("email", logging.Redact(email, false)).Msg("login rejected")
		return nil, domain.ErrInvalidLogin
	}
	return c.accept(resp.body)
}

// LoginWithGoogle forwards the identity in a Google credential to the platform.
func (c *Client) LoginWithGoogle(ctx context.Context, credential string) (*model.User, error) {
	var gc googleClaims
	if _, _, err := jwt.NewParser().ParseUnverified(credential, &gc); err != nil {
		metrics.IncLoginAttempt("invalid")
		return nil, fmt.Errorf("%w: google credential: %v", domain.ErrInvalidArgument, err)
	}
	if c.apiURL == "" {
		metrics.IncLoginAttempt("error")
		return nil, errors.New("auth: api_url is not configured")
	}

	body := map[string]string{"googleId": gc.Subject, "email": gc.Email, "name": gc.Name}
	resp, err := c.post(ctx, c.googleLoginPath, body)
	if err != nil {
		metrics.IncLoginAttempt("error")
		return nil, err
	}
	if resp.status < 200 || resp.status >= 300 {
		msg := errorMessage(resp.body)
		if strings.Contains(msg, "User not found") {
			metrics.IncLoginAttempt("forbidden")
			return nil, domain.ErrUserNotRegistered
		}
		metrics.IncLoginAttempt("invalid")
		if msg == "" {
			msg = "google sign-in failed"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidLogin, msg)
	}
	return c.accept(resp.body)
}

func (c *Client) Logout(ctx context.Context) {
	c.session.Clear(ctx)
}

func (c *Client) accept(body []byte) (*model.User, error) {
	user, token, err := ParseLoginResponse(body)
	if err != nil {
		metrics.IncLoginAttempt("error")
		return nil, err
	}
	if !user.HasRequiredPermissions(c.appID) {
		metrics.IncLoginAttempt("forbidden")
		c.log.Warn().Str("user", user.Email).Str("app", c.appID).Msg("user lacks access to application")
		return nil, domain.ErrUserNotRegistered
	}
	c.session.set(token, user)
	metrics.IncLoginAttempt("ok")
	return user, nil
}

type rawReply struct {
	status int
	body   []byte
}

func (c *Client) post(ctx context.Context, path string, payload any) (*rawReply, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("auth: read body: %w", err)
	}
	return &rawReply{status: resp.StatusCode, body: data}, nil
}

// ParseLoginResponse takes the user from the body when present and from the
// access token claims otherwise. The token signature is not verified here;
// the platform API verifies it on every call.
func ParseLoginResponse(body []byte) (*model.User, string, error) {
	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, "", fmt.Errorf("auth: decode login response: %w", err)
	}
	if lr.AccessToken == "" {
		return nil, "", errors.New("auth: login response has no access_token")
	}

	var claims tokenClaims
	_, _, perr := jwt.NewParser().ParseUnverified(lr.AccessToken, &claims)

	var user *model.User
	if lr.User != nil {
		user = &model.User{
			ID:           string(lr.User.ID),
			Email:        lr.User.Email,
			Name:         lr.User.Name,
			Avatar:       lr.User.Avatar,
			Applications: lr.User.Applications,
		}
	} else {
		if perr != nil {
			return nil, "", fmt.Errorf("auth: decode access token: %w", perr)
		}
		user = &model.User{
			ID:           claims.Subject,
			Email:        claims.Subject,
			Name:         claims.Name,
			Avatar:       claims.Picture,
			Applications: claims.Applications,
		}
	}
	if user.Name == "" {
		user.Name = user.Email
	}
	if perr == nil && claims.ExpiresAt != nil {
		user.TokenExpiry = claims.ExpiresAt.Time
	}
	return user, lr.AccessToken, nil
}

// DevUser is the local account used when dev login is enabled.
func DevUser(appID string) *model.User {
	return &model.User{
		ID:           "dev",
		Email:        DevEmail,
		Name:         "Developer",
		Applications: map[string]string{appID: model.RoleNameUser},
	}
}

func errorMessage(body []byte) string {
	var e struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}
