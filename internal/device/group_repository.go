package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GroupRepository defines persistence operations for role groups.
type GroupRepository interface {
	Create(ctx context.Context, group *DeviceGroup) error
	GetByName(ctx context.Context, name string) (*DeviceGroup, error)
	List(ctx context.Context) ([]DeviceGroup, error)
	Delete(ctx context.Context, id string) error
	SetMembers(ctx context.Context, groupID string, deviceIDs []string) error
	GetMemberDeviceIDs(ctx context.Context, groupID string) ([]string, error)
}

// SQLiteGroupRepository implements GroupRepository using SQLite.
type SQLiteGroupRepository struct {
	db *sql.DB
}

// NewSQLiteGroupRepository creates a SQLite-backed group repository.
//
// Parameters:
//   - db: Open SQLite connection used for group queries
//
// Returns:
//   - *SQLiteGroupRepository: Repository instance ready for use
//
// Example:
//
//	groups := device.NewSQLiteGroupRepository(db)
func NewSQLiteGroupRepository(db *sql.DB) *SQLiteGroupRepository {
	return &SQLiteGroupRepository{db: db}
}

// Create inserts a new device group.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - group: Group definition to persist; ID is generated when empty
//
// Returns:
//   - error: nil on success, ErrGroupExists when the name is taken, otherwise a database error
func (r *SQLiteGroupRepository) Create(ctx context.Context, group *DeviceGroup) error {
	if group == nil {
		return fmt.Errorf("group is required")
	}
	if err := ValidateName(group.Name); err != nil {
		return err
	}
	if group.ID == "" {
		group.ID = GenerateID()
	}
	group.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_groups (id, name, created_at) VALUES (?, ?, ?)`,
		group.ID, group.Name, group.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrGroupExists
		}
		return fmt.Errorf("inserting device group: %w", err)
	}
	return nil
}

// GetByName retrieves a device group by its exact name.
//
// Returns:
//   - *DeviceGroup: Group definition when found
//   - error: ErrGroupNotFound if missing, otherwise the underlying query error
func (r *SQLiteGroupRepository) GetByName(ctx context.Context, name string) (*DeviceGroup, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM device_groups WHERE name = ?`, name)

	group, err := scanGroupRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("querying device group: %w", err)
	}
	return group, nil
}

// List returns all device groups ordered by name.
func (r *SQLiteGroupRepository) List(ctx context.Context) ([]DeviceGroup, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM device_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying device groups: %w", err)
	}
	defer rows.Close()

	var groups []DeviceGroup
	for rows.Next() {
		group, err := scanGroupRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device group: %w", err)
		}
		groups = append(groups, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device groups: %w", err)
	}
	return groups, nil
}

// Delete removes a group and its memberships.
func (r *SQLiteGroupRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM device_groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device group: %w", err)
	}
	return requireRow(result, ErrGroupNotFound)
}

// SetMembers replaces the ordered membership of a group.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - groupID: Unique device group identifier
//   - deviceIDs: Member device IDs in display order; duplicates keep their first position
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
//
// Example:
//
//	err := groups.SetMembers(ctx, grp.ID, []string{lightA.ID, lightB.ID})
func (r *SQLiteGroupRepository) SetMembers(ctx context.Context, groupID string, deviceIDs []string) error {
	if groupID == "" {
		return fmt.Errorf("group id is required")
	}

	uniqueIDs := dedupeOrdered(deviceIDs)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM device_group_members WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("clearing group members: %w", err)
	}

	if len(uniqueIDs) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO device_group_members (group_id, device_id, sort_order) VALUES (?, ?, ?)",
		)
		if err != nil {
			return fmt.Errorf("preparing member insert: %w", err)
		}
		defer stmt.Close()

		for i, deviceID := range uniqueIDs {
			if _, err := stmt.ExecContext(ctx, groupID, deviceID, i); err != nil {
				return fmt.Errorf("inserting group member: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetMemberDeviceIDs returns the member device IDs of a group in sort order.
func (r *SQLiteGroupRepository) GetMemberDeviceIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT device_id FROM device_group_members
		WHERE group_id = ?
		ORDER BY sort_order, device_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying group members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning group member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating group members: %w", err)
	}
	return ids, nil
}

func scanGroupRow(scanner rowScanner) (*DeviceGroup, error) {
	var group DeviceGroup
	var createdAt string
	if err := scanner.Scan(&group.ID, &group.Name, &createdAt); err != nil {
		return nil, err
	}
	group.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // written by us or schema default
	return &group, nil
}

// dedupeOrdered drops repeated values, keeping first occurrences in order.
func dedupeOrdered(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
