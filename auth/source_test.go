package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-authclient/core"
)

func TestStaticCredentialSource(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	source := NewStaticCredentialSource("  tok-static  ", 30*time.Minute)
	source.nowFn = func() time.Time { return now }

	cred, err := source.IssueCredential(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if cred.Value != "tok-static" {
		t.Fatalf("expected trimmed value, got %q", cred.Value)
	}
	if !cred.IssuedAt.Equal(now) {
		t.Fatalf("expected issued-at %v, got %v", now, cred.IssuedAt)
	}
	if !cred.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
		t.Fatalf("expected expiry 30m out, got %v", cred.ExpiresAt)
	}
}

func TestStaticCredentialSource_DefaultsAndRejections(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	source := NewStaticCredentialSource("tok-static", 0)
	source.nowFn = func() time.Time { return now }

	cred, err := source.IssueCredential(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !cred.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected one hour default ttl, got %v", cred.ExpiresAt)
	}

	empty := NewStaticCredentialSource("   ", time.Hour)
	if _, err := empty.IssueCredential(context.Background()); err == nil {
		t.Fatalf("expected empty value rejection")
	}
}

func TestTokenEndpointSource_IssuesCredential(t *testing.T) {
	expiresAt := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	var gotSecret, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		gotSecret = payload["refresh_secret"]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      "tok-issued",
			"expires_at": expiresAt,
		})
	}))
	defer server.Close()

	source := NewTokenEndpointSource(server.URL, "refresh-1")
	cred, err := source.IssueCredential(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if cred.Value != "tok-issued" {
		t.Fatalf("expected issued token, got %q", cred.Value)
	}
	if !cred.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("expected expiry %v, got %v", expiresAt, cred.ExpiresAt)
	}
	if gotSecret != "refresh-1" {
		t.Fatalf("expected refresh secret forwarded, got %q", gotSecret)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected json content type, got %q", gotContentType)
	}
}

func TestTokenEndpointSource_ExpiresInFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"token":"tok-issued","expires_in":600}`))
	}))
	defer server.Close()

	source := NewTokenEndpointSource(server.URL, "refresh-1")
	before := time.Now().UTC()
	cred, err := source.IssueCredential(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if cred.ExpiresAt.Before(before.Add(9*time.Minute)) || cred.ExpiresAt.After(before.Add(11*time.Minute)) {
		t.Fatalf("expected expiry roughly 10m out, got %v", cred.ExpiresAt)
	}
}

func TestTokenEndpointSource_Failures(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		source := NewTokenEndpointSource(server.URL, "refresh-1")
		_, err := source.IssueCredential(context.Background())
		if core.TextCode(err) != core.ClientErrorRenewalFailed {
			t.Fatalf("expected %s, got %q (%v)", core.ClientErrorRenewalFailed, core.TextCode(err), err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"token":"   "}`))
		}))
		defer server.Close()

		source := NewTokenEndpointSource(server.URL, "refresh-1")
		_, err := source.IssueCredential(context.Background())
		if core.TextCode(err) != core.ClientErrorRenewalFailed {
			t.Fatalf("expected %s, got %q (%v)", core.ClientErrorRenewalFailed, core.TextCode(err), err)
		}
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		url := server.URL
		server.Close()

		source := NewTokenEndpointSource(url, "refresh-1")
		_, err := source.IssueCredential(context.Background())
		if core.TextCode(err) != core.ClientErrorRenewalFailed {
			t.Fatalf("expected %s, got %q (%v)", core.ClientErrorRenewalFailed, core.TextCode(err), err)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		source := NewTokenEndpointSource("   ", "refresh-1")
		if _, err := source.IssueCredential(context.Background()); err == nil {
			t.Fatalf("expected missing url rejection")
		}
	})
}
