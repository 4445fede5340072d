package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type credentialSlotRecord struct {
	bun.BaseModel `bun:"table:client_credential_slots,alias:ccs"`

	ID          string    `bun:"id,pk"`
	SlotKey     string    `bun:"slot_key,notnull"`
	Value       string    `bun:"value,notnull"`
	IssuedAt    time.Time `bun:"issued_at,nullzero,notnull"`
	ExpiresAt   time.Time `bun:"expires_at,nullzero,notnull"`
	PersistedAt time.Time `bun:"persisted_at,nullzero,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type clientEventRecord struct {
	bun.BaseModel `bun:"table:client_events,alias:ce"`

	ID        string         `bun:"id,pk"`
	SlotKey   string         `bun:"slot_key,notnull"`
	EventType string         `bun:"event_type,notnull"`
	Status    string         `bun:"status,notnull"`
	Error     string         `bun:"error"`
	Metadata  map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
