package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-authclient/core"
	goerrors "github.com/goliatone/go-errors"
)

const defaultTokenEndpointTimeout = 15 * time.Second

// StaticCredentialSource issues a fixed credential. Useful for tests and
// for deployments where an external agent rotates the value out of band.
type StaticCredentialSource struct {
	Value string
	TTL   time.Duration
	nowFn func() time.Time
}

func NewStaticCredentialSource(value string, ttl time.Duration) *StaticCredentialSource {
	return &StaticCredentialSource{
		Value: strings.TrimSpace(value),
		TTL:   ttl,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (s *StaticCredentialSource) IssueCredential(context.Context) (core.Credential, error) {
	if s == nil || strings.TrimSpace(s.Value) == "" {
		return core.Credential{}, fmt.Errorf("auth: static credential value is required")
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := s.nowFn()
	return core.Credential{
		Value:     s.Value,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

type tokenEndpointResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in"`
}

// TokenEndpointSource renews credentials against an HTTP token endpoint.
// The refresh secret authenticates the renewal itself; the issued token is
// what gets attached to ordinary calls.
type TokenEndpointSource struct {
	Client        *http.Client
	URL           string
	RefreshSecret string
}

func NewTokenEndpointSource(endpointURL string, refreshSecret string) *TokenEndpointSource {
	return &TokenEndpointSource{
		Client:        &http.Client{Timeout: defaultTokenEndpointTimeout},
		URL:           strings.TrimSpace(endpointURL),
		RefreshSecret: strings.TrimSpace(refreshSecret),
	}
}

func (s *TokenEndpointSource) IssueCredential(ctx context.Context) (core.Credential, error) {
	if s == nil || strings.TrimSpace(s.URL) == "" {
		return core.Credential{}, fmt.Errorf("auth: token endpoint url is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTokenEndpointTimeout}
	}

	payload, err := json.Marshal(map[string]string{"refresh_secret": s.RefreshSecret})
	if err != nil {
		return core.Credential{}, fmt.Errorf("auth: encode token request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return core.Credential{}, fmt.Errorf("auth: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return core.Credential{}, goerrors.Wrap(err, goerrors.CategoryExternal, "auth: token endpoint unreachable").
			WithTextCode(core.ClientErrorRenewalFailed)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return core.Credential{}, fmt.Errorf("auth: read token response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return core.Credential{}, goerrors.New(
			fmt.Sprintf("auth: token endpoint returned status %d", res.StatusCode),
			goerrors.CategoryAuth,
		).WithTextCode(core.ClientErrorRenewalFailed)
	}

	var decoded tokenEndpointResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return core.Credential{}, fmt.Errorf("auth: decode token response: %w", err)
	}
	if strings.TrimSpace(decoded.Token) == "" {
		return core.Credential{}, goerrors.New(
			"auth: token endpoint returned an empty token",
			goerrors.CategoryAuth,
		).WithTextCode(core.ClientErrorRenewalFailed)
	}

	now := time.Now().UTC()
	expiresAt := decoded.ExpiresAt
	if expiresAt.IsZero() && decoded.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(decoded.ExpiresIn) * time.Second)
	}
	return core.Credential{
		Value:     decoded.Token,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

var (
	_ core.CredentialSource = (*StaticCredentialSource)(nil)
	_ core.CredentialSource = (*TokenEndpointSource)(nil)
)
