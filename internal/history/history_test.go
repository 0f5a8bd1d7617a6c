package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gridctl/internal/infrastructure/database"
	_ "github.com/nerrad567/gridctl/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreate_FillsDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := &Entry{Source: "direct", Command: "update_status", Success: true}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Errorf("Create() left ID %q, CreatedAt %v", e.ID, e.CreatedAt)
	}
}

func TestList_RoundTripAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{RunID: "r1", Source: "schedule", Command: "update_status", Success: true, CreatedAt: base},
		{RunID: "r2", Source: "mqtt", Command: "move_items", Argument: "move_items", Success: false,
			Error: "controller: destination container not found", Duration: 1500 * time.Millisecond,
			Details: map[string]any{"destination": "Ship Cargo", "transferred": 0}, CreatedAt: base.Add(100 * time.Millisecond)},
		{RunID: "r3", Source: "direct", Command: "toggle_alert_lights", Success: true, CreatedAt: base.Add(time.Second)},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create(%s) error = %v", entries[i].RunID, err)
		}
	}

	got, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got.Total != 3 || len(got.Entries) != 3 || got.Limit != DefaultLimit {
		t.Fatalf("List() = total %d, %d entries, limit %d", got.Total, len(got.Entries), got.Limit)
	}
	order := []string{got.Entries[0].RunID, got.Entries[1].RunID, got.Entries[2].RunID}
	if order[0] != "r3" || order[1] != "r2" || order[2] != "r1" {
		t.Errorf("order = %v, want newest first", order)
	}

	failed := got.Entries[1]
	if failed.Success || failed.Error == "" || failed.Duration != 1500*time.Millisecond {
		t.Errorf("failed entry = %+v", failed)
	}
	if failed.Details["destination"] != "Ship Cargo" {
		t.Errorf("details = %v", failed.Details)
	}
	if !failed.CreatedAt.Equal(base.Add(100 * time.Millisecond)) {
		t.Errorf("CreatedAt = %v", failed.CreatedAt)
	}
}

func TestList_Filters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []Entry{
		{Source: "schedule", Command: "update_status", Success: true},
		{Source: "schedule", Command: "update_status", Success: false, Error: "precondition"},
		{Source: "mqtt", Command: "move_items", Success: true},
		{Source: "direct", Command: "unknown", Success: true},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	failed, succeeded := true, false
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"by command", Filter{Command: "update_status"}, 2},
		{"by source", Filter{Source: "mqtt"}, 1},
		{"failed only", Filter{Failed: &failed}, 1},
		{"successful only", Filter{Failed: &succeeded}, 3},
		{"combined", Filter{Source: "schedule", Failed: &failed}, 1},
		{"no match", Filter{Command: "move_items", Source: "schedule"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if got.Total != tt.want || len(got.Entries) != tt.want {
				t.Errorf("List(%+v) total = %d, entries = %d, want %d", tt.filter, got.Total, len(got.Entries), tt.want)
			}
		})
	}
}

func TestList_Paging(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Create(ctx, &Entry{Source: "schedule", Command: "update_status", Success: true}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 5 || len(page.Entries) != 1 {
		t.Errorf("page = total %d, %d entries, want 5/1", page.Total, len(page.Entries))
	}

	clamped, err := repo.List(ctx, Filter{Limit: 1000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if clamped.Limit != MaxLimit || clamped.Offset != 0 {
		t.Errorf("clamped limit/offset = %d/%d", clamped.Limit, clamped.Offset)
	}
}
