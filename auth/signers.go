package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-authclient/core"
)

const (
	defaultAPIKeyHeader    = "X-API-Key"
	defaultSignatureHeader = "X-Signature"
	defaultTimestampHeader = "X-Timestamp"
	defaultKeyIDHeader     = "X-Key-ID"
)

// APIKeySigner attaches the credential as a named header or query
// parameter instead of an Authorization bearer token.
type APIKeySigner struct {
	Header     string
	Prefix     string
	QueryParam string
}

func NewAPIKeySigner(header string, prefix string) *APIKeySigner {
	header = strings.TrimSpace(header)
	if header == "" {
		header = defaultAPIKeyHeader
	}
	return &APIKeySigner{Header: header, Prefix: strings.TrimSpace(prefix)}
}

func (s *APIKeySigner) Sign(_ context.Context, req *core.TransportRequest, cred core.Credential) error {
	if s == nil || req == nil {
		return fmt.Errorf("auth: transport request is required")
	}
	key := strings.TrimSpace(cred.Value)
	if key == "" {
		return fmt.Errorf("auth: credential value is required for api-key signing")
	}

	if param := strings.TrimSpace(s.QueryParam); param != "" {
		if req.Query == nil {
			req.Query = map[string]string{}
		}
		req.Query[param] = key
		return nil
	}

	header := strings.TrimSpace(s.Header)
	if header == "" {
		header = defaultAPIKeyHeader
	}
	value := key
	if prefix := strings.TrimSpace(s.Prefix); prefix != "" {
		value = prefix + " " + key
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers[header] = value
	return nil
}

// HMACSigner signs each request with an HMAC-SHA256 digest over the method,
// URL, timestamp, and body, keyed by the credential value. The timestamp
// header lets the server reject replays outside its acceptance window.
type HMACSigner struct {
	SignatureHeader string
	TimestampHeader string
	KeyIDHeader     string
	KeyID           string

	nowFn func() time.Time
}

func NewHMACSigner(keyID string) *HMACSigner {
	return &HMACSigner{
		SignatureHeader: defaultSignatureHeader,
		TimestampHeader: defaultTimestampHeader,
		KeyIDHeader:     defaultKeyIDHeader,
		KeyID:           strings.TrimSpace(keyID),
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *HMACSigner) Sign(_ context.Context, req *core.TransportRequest, cred core.Credential) error {
	if s == nil || req == nil {
		return fmt.Errorf("auth: transport request is required")
	}
	secret := strings.TrimSpace(cred.Value)
	if secret == "" {
		return fmt.Errorf("auth: credential value is required for hmac signing")
	}

	nowFn := s.nowFn
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	timestamp := strconv.FormatInt(nowFn().Unix(), 10)
	signature := computeSignature(secret, req.Method, req.URL, timestamp, req.Body)

	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers[s.headerOr(s.SignatureHeader, defaultSignatureHeader)] = signature
	req.Headers[s.headerOr(s.TimestampHeader, defaultTimestampHeader)] = timestamp
	if keyID := strings.TrimSpace(s.KeyID); keyID != "" {
		req.Headers[s.headerOr(s.KeyIDHeader, defaultKeyIDHeader)] = keyID
	}
	return nil
}

func (s *HMACSigner) headerOr(header string, fallback string) string {
	if trimmed := strings.TrimSpace(header); trimmed != "" {
		return trimmed
	}
	return fallback
}

func computeSignature(secret string, method string, requestURL string, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.ToUpper(strings.TrimSpace(method))))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strings.TrimSpace(requestURL)))
	mac.Write([]byte("\n"))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("\n"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

var (
	_ core.Signer = (*APIKeySigner)(nil)
	_ core.Signer = (*HMACSigner)(nil)
)
