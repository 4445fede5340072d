package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-authclient/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const credentialSlotCacheKeyPrefix = "go-authclient::credential_slot::v1"

type cachedSlot struct {
	Cred  core.Credential
	Found bool
}

// CachedCredentialStore fronts the SQL slot store with a read-through cache
// so the per-request validity check does not hit the database. Writes and
// clears invalidate the cached slot before returning.
type CachedCredentialStore struct {
	base    core.CredentialStore
	cache   repositorycache.CacheService
	slotKey string
}

func NewCachedCredentialStore(
	base core.CredentialStore,
	cacheService repositorycache.CacheService,
	slotKey string,
) (*CachedCredentialStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base credential store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: credential cache service is required")
	}
	slotKey = strings.TrimSpace(slotKey)
	if slotKey == "" {
		slotKey = DefaultSlotKey
	}
	return &CachedCredentialStore{base: base, cache: cacheService, slotKey: slotKey}, nil
}

// CredentialSlotCacheKey returns the deterministic cache key for one slot:
// go-authclient::credential_slot::v1::<slot_key> with the slot segment
// URL-path escaped.
func CredentialSlotCacheKey(slotKey string) string {
	return credentialSlotCacheKeyPrefix + "::" + url.PathEscape(strings.TrimSpace(slotKey))
}

func (s *CachedCredentialStore) Get(ctx context.Context) (core.Credential, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Credential{}, false, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	cacheKey := CredentialSlotCacheKey(s.slotKey)
	slot, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedSlot, error) {
		cred, found, fetchErr := s.base.Get(ctx)
		if fetchErr != nil {
			return cachedSlot{}, fetchErr
		}
		return cachedSlot{Cred: cred, Found: found}, nil
	})
	if err != nil {
		return core.Credential{}, false, err
	}
	return slot.Cred, slot.Found, nil
}

func (s *CachedCredentialStore) Save(ctx context.Context, cred core.Credential) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Save(ctx, cred); err != nil {
		return err
	}
	return s.cache.Delete(ctx, CredentialSlotCacheKey(s.slotKey))
}

func (s *CachedCredentialStore) Clear(ctx context.Context) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Clear(ctx); err != nil {
		return err
	}
	return s.cache.Delete(ctx, CredentialSlotCacheKey(s.slotKey))
}

var _ core.CredentialStore = (*CachedCredentialStore)(nil)
