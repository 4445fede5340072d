package sqlstore

import (
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryFactory wires the bun-backed stores from a shared database
// handle. It accepts either a *bun.DB or anything exposing DB() *bun.DB
// (the persistence client does).
type RepositoryFactory struct {
	db *bun.DB

	slotKey     string
	maxLifetime time.Duration

	credentialStore *CredentialStore
	eventStore      *EventStore
}

type FactoryOption func(*RepositoryFactory)

// WithSlotKey isolates multiple clients sharing one database.
func WithSlotKey(slotKey string) FactoryOption {
	return func(f *RepositoryFactory) {
		if trimmed := strings.TrimSpace(slotKey); trimmed != "" {
			f.slotKey = trimmed
		}
	}
}

// WithMaxLifetime bounds how long a persisted slot survives restarts.
func WithMaxLifetime(maxLifetime time.Duration) FactoryOption {
	return func(f *RepositoryFactory) {
		if maxLifetime > 0 {
			f.maxLifetime = maxLifetime
		}
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{
		slotKey:     DefaultSlotKey,
		maxLifetime: 7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(factory)
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.credentialStore != nil && f.eventStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) CredentialStore() *CredentialStore {
	if f == nil {
		return nil
	}
	return f.credentialStore
}

func (f *RepositoryFactory) EventStore() *EventStore {
	if f == nil {
		return nil
	}
	return f.eventStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	slotRepo := repository.NewRepository[*credentialSlotRecord](f.db, credentialSlotHandlers())
	if validator, ok := slotRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid credential slot repository wiring: %w", err)
		}
	}

	eventRepo := repository.NewRepository[*clientEventRecord](f.db, clientEventHandlers())
	if validator, ok := eventRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid client event repository wiring: %w", err)
		}
	}

	nowFn := func() time.Time { return time.Now().UTC() }
	f.credentialStore = &CredentialStore{
		db:          f.db,
		repo:        slotRepo,
		slotKey:     f.slotKey,
		maxLifetime: f.maxLifetime,
		nowFn:       nowFn,
	}
	f.eventStore = &EventStore{
		db:      f.db,
		repo:    eventRepo,
		slotKey: f.slotKey,
		nowFn:   nowFn,
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
