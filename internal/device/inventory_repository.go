package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InventoryRepository persists inventory slots and their item stacks.
type InventoryRepository interface {
	CreateSlot(ctx context.Context, slot *Slot) error
	ListSlots(ctx context.Context) ([]Slot, error)
	AddItem(ctx context.Context, item *Item) error
	ListItems(ctx context.Context, inventoryID string) ([]Item, error)
	UsedVolume(ctx context.Context, inventoryID string) (float64, error)

	// TransferItem moves one stack between slots in a single transaction.
	TransferItem(ctx context.Context, itemID, srcInventoryID, dstInventoryID string) error
}

// SQLiteInventoryRepository implements InventoryRepository using SQLite.
type SQLiteInventoryRepository struct {
	db *sql.DB
}

// NewSQLiteInventoryRepository creates a SQLite-backed inventory repository.
func NewSQLiteInventoryRepository(db *sql.DB) *SQLiteInventoryRepository {
	return &SQLiteInventoryRepository{db: db}
}

// CreateSlot inserts an inventory slot for a device.
func (r *SQLiteInventoryRepository) CreateSlot(ctx context.Context, slot *Slot) error {
	if slot.DeviceID == "" {
		return fmt.Errorf("%w: slot device id is required", ErrInvalidDevice)
	}
	if slot.SlotIndex < 0 || slot.MaxVolume < 0 {
		return fmt.Errorf("%w: slot index and max volume must be non-negative", ErrInvalidState)
	}
	if slot.ID == "" {
		slot.ID = GenerateID()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inventories (id, device_id, slot_index, max_volume) VALUES (?, ?, ?, ?)`,
		slot.ID, slot.DeviceID, slot.SlotIndex, slot.MaxVolume,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("slot %d of %s: %w", slot.SlotIndex, slot.DeviceID, ErrDeviceExists)
		}
		return fmt.Errorf("inserting inventory: %w", err)
	}
	return nil
}

// ListSlots returns every inventory slot ordered by device and index.
func (r *SQLiteInventoryRepository) ListSlots(ctx context.Context) ([]Slot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, slot_index, max_volume FROM inventories ORDER BY device_id, slot_index`)
	if err != nil {
		return nil, fmt.Errorf("querying inventories: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.DeviceID, &s.SlotIndex, &s.MaxVolume); err != nil {
			return nil, fmt.Errorf("scanning inventory: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inventories: %w", err)
	}
	return slots, nil
}

// AddItem inserts a stack into an inventory.
func (r *SQLiteInventoryRepository) AddItem(ctx context.Context, item *Item) error {
	if item.InventoryID == "" || item.Subtype == "" {
		return fmt.Errorf("%w: item needs an inventory and a subtype", ErrInvalidState)
	}
	if err := validateMeasure("amount", item.Amount); err != nil {
		return err
	}
	if err := validateMeasure("unit_volume", item.UnitVolume); err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = GenerateID()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory_items (id, inventory_id, category, subtype, amount, unit_volume)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.InventoryID, string(item.Category), item.Subtype, item.Amount, item.UnitVolume,
	)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// ListItems returns the stacks of one inventory in insertion order.
func (r *SQLiteInventoryRepository) ListItems(ctx context.Context, inventoryID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, inventory_id, category, subtype, amount, unit_volume
		FROM inventory_items WHERE inventory_id = ? ORDER BY rowid`,
		inventoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var category string
		if err := rows.Scan(&it.ID, &it.InventoryID, &category, &it.Subtype, &it.Amount, &it.UnitVolume); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.Category = ItemCategory(category)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// UsedVolume sums the volume of all stacks in an inventory.
func (r *SQLiteInventoryRepository) UsedVolume(ctx context.Context, inventoryID string) (float64, error) {
	return usedVolume(ctx, r.db, inventoryID)
}

// TransferItem moves the whole stack itemID from src to dst.
//
// The stack merges into an existing dst stack with the same category and
// subtype. Returns ErrItemNotFound when the stack is no longer in src,
// ErrInventoryNotFound when dst does not exist and ErrInventoryFull when dst
// lacks the free volume. Nothing is written on failure.
func (r *SQLiteInventoryRepository) TransferItem(ctx context.Context, itemID, srcInventoryID, dstInventoryID string) error {
	if srcInventoryID == dstInventoryID {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	var item Item
	var category string
	err = tx.QueryRowContext(ctx,
		`SELECT id, inventory_id, category, subtype, amount, unit_volume
		FROM inventory_items WHERE id = ? AND inventory_id = ?`,
		itemID, srcInventoryID,
	).Scan(&item.ID, &item.InventoryID, &category, &item.Subtype, &item.Amount, &item.UnitVolume)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("loading item: %w", err)
	}
	item.Category = ItemCategory(category)

	var maxVolume float64
	err = tx.QueryRowContext(ctx, `SELECT max_volume FROM inventories WHERE id = ?`, dstInventoryID).Scan(&maxVolume)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInventoryNotFound
	}
	if err != nil {
		return fmt.Errorf("loading destination: %w", err)
	}

	if maxVolume > 0 {
		used, err := usedVolume(ctx, tx, dstInventoryID)
		if err != nil {
			return err
		}
		if used+item.Volume() > maxVolume {
			return ErrInventoryFull
		}
	}

	var stackID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM inventory_items WHERE inventory_id = ? AND category = ? AND subtype = ? LIMIT 1`,
		dstInventoryID, category, item.Subtype,
	).Scan(&stackID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_items SET inventory_id = ? WHERE id = ?`, dstInventoryID, item.ID,
		); err != nil {
			return fmt.Errorf("moving item: %w", err)
		}
	case err != nil:
		return fmt.Errorf("finding destination stack: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_items SET amount = amount + ? WHERE id = ?`, item.Amount, stackID,
		); err != nil {
			return fmt.Errorf("merging item: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, item.ID); err != nil {
			return fmt.Errorf("removing source stack: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func usedVolume(ctx context.Context, q querier, inventoryID string) (float64, error) {
	var used float64
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount * unit_volume), 0) FROM inventory_items WHERE inventory_id = ?`,
		inventoryID,
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("summing inventory volume: %w", err)
	}
	return used, nil
}
