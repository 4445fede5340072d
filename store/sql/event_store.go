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

const (
	EventTypeCredentialRenewed = "credential.renewed"
	EventTypeRenewalFailed     = "credential.renewal_failed"
	EventTypeLoggedOut         = "session.logged_out"
	EventTypeStatusChanged     = "connection.status_changed"
)

// ClientEvent is one journaled lifecycle transition.
type ClientEvent struct {
	ID        string
	SlotKey   string
	EventType string
	Status    string
	Error     string
	Metadata  map[string]any
	CreatedAt time.Time
}

// EventStore journals lifecycle transitions (renewals, logouts, status
// changes) so operators can reconstruct what a client did offline.
type EventStore struct {
	db      *bun.DB
	repo    repository.Repository[*clientEventRecord]
	slotKey string
	nowFn   func() time.Time
}

func (s *EventStore) Append(ctx context.Context, event ClientEvent) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: event store is not configured")
	}
	if strings.TrimSpace(event.EventType) == "" {
		return fmt.Errorf("sqlstore: event type is required")
	}
	slotKey := strings.TrimSpace(event.SlotKey)
	if slotKey == "" {
		slotKey = s.slotKey
	}
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	record := &clientEventRecord{
		ID:        uuid.NewString(),
		SlotKey:   slotKey,
		EventType: event.EventType,
		Status:    event.Status,
		Error:     event.Error,
		Metadata:  metadata,
		CreatedAt: s.nowFn(),
	}
	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	return err
}

// ListRecent returns up to limit journal entries, newest first.
func (s *EventStore) ListRecent(ctx context.Context, limit int) ([]ClientEvent, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: event store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("slot_key", "=", s.slotKey),
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	events := make([]ClientEvent, 0, len(records))
	for _, record := range records {
		events = append(events, ClientEvent{
			ID:        record.ID,
			SlotKey:   record.SlotKey,
			EventType: record.EventType,
			Status:    record.Status,
			Error:     record.Error,
			Metadata:  record.Metadata,
			CreatedAt: record.CreatedAt,
		})
	}
	return events, nil
}

// JournalingHooks writes lifecycle transitions into the event journal.
// Wire it into the client with WithLifecycleHooks.
type JournalingHooks struct {
	Events *EventStore
	Next   core.LifecycleHooks
}

func (h JournalingHooks) OnCredentialRenewed(ctx context.Context, cred core.Credential) {
	h.append(ctx, ClientEvent{
		EventType: EventTypeCredentialRenewed,
		Status:    "success",
		Metadata:  map[string]any{"expires_at": cred.ExpiresAt.UTC()},
	})
	if h.Next != nil {
		h.Next.OnCredentialRenewed(ctx, cred)
	}
}

func (h JournalingHooks) OnRenewalFailed(ctx context.Context, err error) {
	event := ClientEvent{
		EventType: EventTypeRenewalFailed,
		Status:    "failure",
	}
	if err != nil {
		event.Error = err.Error()
	}
	h.append(ctx, event)
	if h.Next != nil {
		h.Next.OnRenewalFailed(ctx, err)
	}
}

func (h JournalingHooks) OnLoggedOut(ctx context.Context, reason string) {
	h.append(ctx, ClientEvent{
		EventType: EventTypeLoggedOut,
		Status:    "success",
		Metadata:  map[string]any{"reason": reason},
	})
	if h.Next != nil {
		h.Next.OnLoggedOut(ctx, reason)
	}
}

func (h JournalingHooks) OnConnectionStatusChanged(ctx context.Context, status core.ConnectionStatus) {
	h.append(ctx, ClientEvent{
		EventType: EventTypeStatusChanged,
		Status:    string(status),
	})
	if h.Next != nil {
		h.Next.OnConnectionStatusChanged(ctx, status)
	}
}

func (h JournalingHooks) append(ctx context.Context, event ClientEvent) {
	if h.Events == nil {
		return
	}
	// Journal writes never fail the operation they observe.
	_ = h.Events.Append(ctx, event)
}

var _ core.LifecycleHooks = JournalingHooks{}
