package core

import (
	"strings"
	"time"
)

const DefaultExpiryBuffer = 5 * time.Minute

// CredentialState captures validity flags derived from a credential at a
// point in time. A credential inside the expiry buffer counts as expiring
// even though its true expiry has not passed.
type CredentialState struct {
	HasValue       bool
	ExpiresAt      time.Time
	IsExpired      bool
	IsExpiringSoon bool
}

// Usable reports whether the credential can be attached to a request
// without renewal.
func (s CredentialState) Usable() bool {
	return s.HasValue && !s.IsExpired && !s.IsExpiringSoon
}

// ResolveCredentialState evaluates expiry flags for a credential against
// the given buffer window.
func ResolveCredentialState(now time.Time, cred Credential, buffer time.Duration) CredentialState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if buffer <= 0 {
		buffer = DefaultExpiryBuffer
	}

	state := CredentialState{
		HasValue: strings.TrimSpace(cred.Value) != "",
	}
	if !state.HasValue {
		return state
	}
	if cred.ExpiresAt.IsZero() {
		state.IsExpired = true
		return state
	}
	expiresAt := cred.ExpiresAt.UTC()
	state.ExpiresAt = expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(buffer))
	return state
}

// ShouldRenewCredential reports whether a renewal must run before the
// credential is attached to an outbound call.
func ShouldRenewCredential(now time.Time, cred Credential, buffer time.Duration) bool {
	return !ResolveCredentialState(now, cred, buffer).Usable()
}
