package core

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MemoryCredentialStore is the default in-process credential slot. It honors
// the same bounded slot lifetime as the persisted stores so behavior does
// not change when a deployment adds persistence.
type MemoryCredentialStore struct {
	mu          sync.Mutex
	cred        Credential
	persistedAt time.Time
	hasValue    bool
	maxLifetime time.Duration
	nowFn       func() time.Time
}

func NewMemoryCredentialStore(maxLifetime time.Duration) *MemoryCredentialStore {
	if maxLifetime <= 0 || maxLifetime > maxStoreLifetime {
		maxLifetime = maxStoreLifetime
	}
	return &MemoryCredentialStore{
		maxLifetime: maxLifetime,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryCredentialStore) Get(_ context.Context) (Credential, bool, error) {
	if s == nil {
		return Credential{}, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasValue {
		return Credential{}, false, nil
	}
	if s.nowFn().After(s.persistedAt.Add(s.maxLifetime)) {
		s.cred = Credential{}
		s.hasValue = false
		return Credential{}, false, nil
	}
	return s.cred, true, nil
}

func (s *MemoryCredentialStore) Save(_ context.Context, cred Credential) error {
	if s == nil {
		return nil
	}
	if strings.TrimSpace(cred.Value) == "" {
		return newClientError("core: credential value is required", goerrors.CategoryBadInput, ClientErrorBadInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = cred
	s.persistedAt = s.nowFn()
	s.hasValue = true
	return nil
}

func (s *MemoryCredentialStore) Clear(_ context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = Credential{}
	s.hasValue = false
	return nil
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)
