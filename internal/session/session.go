// Package session holds the credentials for the Hisense cloud and exchanges the
// long-lived refresh token for short-lived access tokens.
//
// A Session never refreshes on its own. The device client calls Refresh when
// the command host rejects a request, and the CLI exposes it as a button.
// The access token is swapped atomically, so a Session may be shared by
// several device clients and goroutines.
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/metrics"
	"github.com/muurk/hisense/internal/protocol"
	"github.com/muurk/hisense/internal/urls"
)

const (
	// AppKey is the fixed application key of the vendor mobile app
	AppKey = "1234567890"

	// DefaultTimeout bounds every refresh exchange
	DefaultTimeout = 10 * time.Second
)

// Session holds a refresh token and the current access token
type Session struct {
	// Endpoint is the refresh URL. Tests point it at an httptest server.
	Endpoint string
	// AppKey is sent with every refresh
	AppKey string
	// HTTPClient performs the exchange
	HTTPClient *http.Client

	refreshToken string
	accessToken  atomic.Pointer[string]
	refreshes    atomic.Int64
}

// New creates a session with no access token
func New(refreshToken string) *Session {
	return &Session{
		Endpoint:     urls.RefreshTokenURL,
		AppKey:       AppKey,
		HTTPClient:   &http.Client{Timeout: DefaultTimeout},
		refreshToken: strings.TrimSpace(refreshToken),
	}
}

// NewWithAccessToken creates a session seeded with an existing access token
func NewWithAccessToken(refreshToken, accessToken string) *Session {
	s := New(refreshToken)
	if accessToken != "" {
		s.accessToken.Store(&accessToken)
	}
	return s
}

// AccessToken returns the current access token, or "" when none has been issued
func (s *Session) AccessToken() string {
	if p := s.accessToken.Load(); p != nil {
		return *p
	}
	return ""
}

// HasAccessToken reports whether an access token is held
func (s *Session) HasAccessToken() bool {
	return s.accessToken.Load() != nil
}

// RefreshCount returns the number of successful refreshes
func (s *Session) RefreshCount() int64 {
	return s.refreshes.Load()
}

// Refresh exchanges the refresh token for a new access token.
//
// Every failure is an auth error and leaves the current access token in place.
func (s *Session) Refresh(ctx context.Context) error {
	token, err := s.exchange(ctx)
	metrics.ObserveRefresh(err == nil)
	logging.LogTokenRefresh(err == nil, token, err)
	if err != nil {
		return err
	}

	s.accessToken.Store(&token)
	s.refreshes.Add(1)
	return nil
}

func (s *Session) exchange(ctx context.Context) (string, error) {
	if s.refreshToken == "" {
		return "", protocol.NewAuthError("no refresh token configured", nil)
	}

	form := url.Values{}
	form.Set("refreshToken", s.refreshToken)
	form.Set("appKey", s.AppKey)
	form.Set("format", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", protocol.NewAuthError("failed to build refresh request", err)
	}
	protocol.ApplyRefreshHeaders(req)

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	logging.LogCloudRequest(http.MethodPost, s.Endpoint, "", 1)
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return "", protocol.NewAuthError("refresh request failed",
			protocol.NewTransportError("refresh request failed", s.Endpoint, err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := protocol.ReadBody(resp)
	if err != nil {
		return "", protocol.NewAuthError("failed to read refresh response", err)
	}
	logging.LogCloudResponse(s.Endpoint, resp.StatusCode, -1, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := protocol.NewAuthError(fmt.Sprintf("refresh endpoint returned HTTP %d", resp.StatusCode), nil)
		e.StatusCode = resp.StatusCode
		return "", e
	}

	return protocol.ParseRefreshResponse(body)
}
