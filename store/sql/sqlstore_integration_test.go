package sqlstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-authclient/core"
	sqlstore "github.com/goliatone/go-authclient/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
)

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"client_credential_slots", "client_events"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestCredentialStore_SaveGetClear(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	store := factory.CredentialStore()
	if store == nil {
		t.Fatalf("expected credential store from factory")
	}

	if _, found, err := store.Get(ctx); err != nil {
		t.Fatalf("get empty slot: %v", err)
	} else if found {
		t.Fatalf("expected empty slot before first save")
	}

	issued := time.Now().UTC().Truncate(time.Second)
	first := core.Credential{
		Value:     "token-v1",
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
	}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("save first credential: %v", err)
	}

	got, found, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get after save: %v", err)
	}
	if !found {
		t.Fatalf("expected credential after save")
	}
	if got.Value != "token-v1" {
		t.Fatalf("expected token-v1, got %q", got.Value)
	}
	if !got.ExpiresAt.Equal(first.ExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", first.ExpiresAt, got.ExpiresAt)
	}

	second := core.Credential{
		Value:     "token-v2",
		IssuedAt:  issued.Add(time.Minute),
		ExpiresAt: issued.Add(2 * time.Hour),
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("save second credential: %v", err)
	}

	var slotCount int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM client_credential_slots WHERE slot_key = ?",
		"default",
	).Scan(ctx, &slotCount); err != nil {
		t.Fatalf("count slot rows: %v", err)
	}
	if slotCount != 1 {
		t.Fatalf("expected a single slot row after overwrite, got %d", slotCount)
	}

	got, found, err = store.Get(ctx)
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if !found || got.Value != "token-v2" {
		t.Fatalf("expected token-v2 after overwrite, got found=%v value=%q", found, got.Value)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear slot: %v", err)
	}
	if _, found, err := store.Get(ctx); err != nil {
		t.Fatalf("get after clear: %v", err)
	} else if found {
		t.Fatalf("expected empty slot after clear")
	}
}

func TestCredentialStore_ExpiredSlotReadsAbsent(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(
		client,
		sqlstore.WithMaxLifetime(time.Nanosecond),
	)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	store := factory.CredentialStore()
	now := time.Now().UTC()
	if err := store.Save(ctx, core.Credential{
		Value:     "stale-token",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("save credential: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, found, err := store.Get(ctx); err != nil {
		t.Fatalf("get stale slot: %v", err)
	} else if found {
		t.Fatalf("expected slot past max lifetime to read as absent")
	}

	var slotCount int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM client_credential_slots",
	).Scan(ctx, &slotCount); err != nil {
		t.Fatalf("count slot rows: %v", err)
	}
	if slotCount != 0 {
		t.Fatalf("expected stale slot to be dropped, got %d rows", slotCount)
	}
}

func TestCredentialStore_SlotKeyIsolation(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	primary, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithSlotKey("primary"))
	if err != nil {
		t.Fatalf("new primary factory: %v", err)
	}
	secondary, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithSlotKey("secondary"))
	if err != nil {
		t.Fatalf("new secondary factory: %v", err)
	}

	now := time.Now().UTC()
	if err := primary.CredentialStore().Save(ctx, core.Credential{
		Value:     "primary-token",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("save primary credential: %v", err)
	}

	if _, found, err := secondary.CredentialStore().Get(ctx); err != nil {
		t.Fatalf("get secondary slot: %v", err)
	} else if found {
		t.Fatalf("expected secondary slot to be isolated from primary")
	}

	if err := secondary.CredentialStore().Clear(ctx); err != nil {
		t.Fatalf("clear secondary slot: %v", err)
	}
	if got, found, err := primary.CredentialStore().Get(ctx); err != nil || !found {
		t.Fatalf("expected primary slot to survive secondary clear, found=%v err=%v", found, err)
	} else if got.Value != "primary-token" {
		t.Fatalf("expected primary-token, got %q", got.Value)
	}
}

func TestEventStore_AppendAndListRecent(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	events := factory.EventStore()
	if events == nil {
		t.Fatalf("expected event store from factory")
	}

	entries := []sqlstore.ClientEvent{
		{EventType: sqlstore.EventTypeCredentialRenewed, Status: "success"},
		{EventType: sqlstore.EventTypeStatusChanged, Status: "offline"},
		{EventType: sqlstore.EventTypeStatusChanged, Status: "online"},
	}
	for _, entry := range entries {
		if err := events.Append(ctx, entry); err != nil {
			t.Fatalf("append %s: %v", entry.EventType, err)
		}
		// created_at second precision would otherwise tie the ordering.
		time.Sleep(2 * time.Millisecond)
	}

	recent, err := events.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if recent[0].Status != "online" || recent[1].Status != "offline" {
		t.Fatalf("expected newest-first ordering, got %q then %q", recent[0].Status, recent[1].Status)
	}

	all, err := events.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("list with default limit: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events with default limit, got %d", len(all))
	}
}

func TestJournalingHooks_WriteLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	hooks := sqlstore.JournalingHooks{Events: factory.EventStore()}
	now := time.Now().UTC()

	hooks.OnCredentialRenewed(ctx, core.Credential{Value: "tok", IssuedAt: now, ExpiresAt: now.Add(time.Hour)})
	hooks.OnConnectionStatusChanged(ctx, core.StatusOffline)
	hooks.OnLoggedOut(ctx, "user_logout")

	recent, err := factory.EventStore().ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 journal entries, got %d", len(recent))
	}

	types := map[string]bool{}
	for _, event := range recent {
		types[event.EventType] = true
	}
	for _, expected := range []string{
		sqlstore.EventTypeCredentialRenewed,
		sqlstore.EventTypeStatusChanged,
		sqlstore.EventTypeLoggedOut,
	} {
		if !types[expected] {
			t.Fatalf("expected %s journal entry, got %v", expected, types)
		}
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:authclient-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.NewSQLiteClient(context.Background(), dsn)
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
