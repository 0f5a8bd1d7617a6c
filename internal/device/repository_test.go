package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the registry schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			construct_id TEXT NOT NULL,
			grid_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			functional INTEGER NOT NULL DEFAULT 1,
			state TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
		CREATE TABLE device_groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
		CREATE TABLE device_group_members (
			group_id TEXT NOT NULL REFERENCES device_groups(id) ON DELETE CASCADE,
			device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
			sort_order INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (group_id, device_id)
		);
		CREATE TABLE inventories (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
			slot_index INTEGER NOT NULL,
			max_volume REAL NOT NULL DEFAULT 0,
			UNIQUE (device_id, slot_index)
		);
		CREATE TABLE inventory_items (
			id TEXT PRIMARY KEY,
			inventory_id TEXT NOT NULL REFERENCES inventories(id) ON DELETE CASCADE,
			category TEXT NOT NULL,
			subtype TEXT NOT NULL,
			amount REAL NOT NULL CHECK (amount >= 0),
			unit_volume REAL NOT NULL DEFAULT 0
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testDevice creates a battery for testing.
func testDevice(id, name string) *Device {
	return &Device{
		ID:          id,
		Name:        name,
		ConstructID: "asteroid",
		GridID:      "asteroid-main",
		Kind:        KindBattery,
		Enabled:     true,
		Functional:  true,
		State:       State{Power: &PowerState{MaxStored: 3, CurrentStored: 1.5}},
	}
}

func TestSQLiteRepository_Create(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testDevice("bat-1", "Battery 1")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	if err := repo.Create(ctx, testDevice("bat-1", "Duplicate")); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Create() duplicate error = %v, want ErrDeviceExists", err)
	}
}

func TestSQLiteRepository_GetByID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("bat-1", "Battery 1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "bat-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Battery 1" || got.Kind != KindBattery || !got.IsWorking() {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.State.Power == nil || got.State.Power.CurrentStored != 1.5 {
		t.Errorf("State.Power = %+v, want current 1.5", got.State.Power)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_ListByConstruct(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	a := testDevice("a", "B Battery")
	b := testDevice("b", "A Battery")
	c := testDevice("c", "Ship Battery")
	c.ConstructID = "ship"
	for _, d := range []*Device{a, b, c} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.ID, err)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].Name != "A Battery" {
		t.Errorf("List() = %d devices, first %q; want 3 ordered by name", len(all), all[0].Name)
	}

	local, err := repo.ListByConstruct(ctx, "asteroid")
	if err != nil {
		t.Fatalf("ListByConstruct() error = %v", err)
	}
	if len(local) != 2 {
		t.Errorf("ListByConstruct() = %d devices, want 2", len(local))
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testDevice("bat-1", "Battery 1")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d.Name = "Renamed"
	d.Enabled = false
	if err := repo.Update(ctx, d); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, "bat-1")
	if got.Name != "Renamed" || got.Enabled {
		t.Errorf("after Update() = %+v", got)
	}

	if err := repo.Update(ctx, testDevice("missing", "x")); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_UpdateState(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("bat-1", "Battery 1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.UpdateState(ctx, "bat-1", State{Power: &PowerState{MaxStored: 3, CurrentStored: 3}}); err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, "bat-1")
	if got.State.Power.CurrentStored != 3 {
		t.Errorf("CurrentStored = %v, want 3", got.State.Power.CurrentStored)
	}

	if err := repo.UpdateState(ctx, "missing", State{}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("UpdateState(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	inv := NewSQLiteInventoryRepository(db)
	ctx := context.Background()

	cargo := testDevice("cargo-1", "Cargo")
	cargo.Kind = KindCargoContainer
	cargo.State = State{}
	if err := repo.Create(ctx, cargo); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := inv.CreateSlot(ctx, &Slot{DeviceID: "cargo-1"}); err != nil {
		t.Fatalf("CreateSlot() error = %v", err)
	}

	if err := repo.Delete(ctx, "cargo-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	slots, _ := inv.ListSlots(ctx)
	if len(slots) != 0 {
		t.Errorf("inventories after delete = %d, want 0 (cascade)", len(slots))
	}

	if err := repo.Delete(ctx, "cargo-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrDeviceNotFound", err)
	}
}
