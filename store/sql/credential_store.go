package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-authclient/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const DefaultSlotKey = "default"

// CredentialStore persists the current credential as a single named slot so
// a session survives process restarts. Slots older than the configured
// maximum lifetime read back as absent, never as a stale credential.
type CredentialStore struct {
	db   *bun.DB
	repo repository.Repository[*credentialSlotRecord]

	slotKey     string
	maxLifetime time.Duration
	nowFn       func() time.Time
}

func (s *CredentialStore) Get(ctx context.Context) (core.Credential, bool, error) {
	if s == nil || s.repo == nil {
		return core.Credential{}, false, fmt.Errorf("sqlstore: credential store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("slot_key", "=", s.slotKey),
		repository.OrderBy("persisted_at DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Credential{}, false, err
	}
	if len(records) == 0 {
		return core.Credential{}, false, nil
	}

	record := records[0]
	if s.maxLifetime > 0 && s.nowFn().After(record.PersistedAt.Add(s.maxLifetime)) {
		// The slot outlived its bound; drop it so the expired value can
		// never come back after this read.
		if clearErr := s.Clear(ctx); clearErr != nil {
			return core.Credential{}, false, clearErr
		}
		return core.Credential{}, false, nil
	}
	return core.Credential{
		Value:     record.Value,
		IssuedAt:  record.IssuedAt,
		ExpiresAt: record.ExpiresAt,
	}, true, nil
}

func (s *CredentialStore) Save(ctx context.Context, cred core.Credential) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	if strings.TrimSpace(cred.Value) == "" {
		return fmt.Errorf("sqlstore: credential value is required")
	}
	now := s.nowFn()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*credentialSlotRecord)(nil)).
			Where("slot_key = ?", s.slotKey).
			Exec(ctx); err != nil {
			return err
		}
		record := &credentialSlotRecord{
			ID:          uuid.NewString(),
			SlotKey:     s.slotKey,
			Value:       cred.Value,
			IssuedAt:    cred.IssuedAt.UTC(),
			ExpiresAt:   cred.ExpiresAt.UTC(),
			PersistedAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		_, err := tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*credentialSlotRecord)(nil)).
		Where("slot_key = ?", s.slotKey).
		Exec(ctx)
	return err
}

var _ core.CredentialStore = (*CredentialStore)(nil)
