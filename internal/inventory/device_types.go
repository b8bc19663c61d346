package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func getDeviceType(ctx context.Context, q txExec, name string) (DeviceType, error) {
	var t DeviceType
	err := q.QueryRowContext(ctx, "SELECT id, name FROM device_types WHERE name = ?", name).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return DeviceType{}, fmt.Errorf("%w: device type %s", ErrNotFound, name)
	}
	if err != nil {
		return DeviceType{}, fmt.Errorf("failed to get device type %s: %w", name, err)
	}
	t.Templates, err = intColumn(ctx, q, "SELECT template_id FROM device_type_templates WHERE device_type_id = ? ORDER BY template_id", t.ID)
	if err != nil {
		return DeviceType{}, err
	}
	return t, nil
}

// DeviceType returns the named device type with its templates.
func (db *DB) DeviceType(ctx context.Context, name string) (DeviceType, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return getDeviceType(ctx, db.conn, name)
}

// DeviceTypes lists all device types ordered by name.
func (db *DB) DeviceTypes(ctx context.Context) ([]DeviceType, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, "SELECT name FROM device_types ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query device types: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan device type: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	types := make([]DeviceType, 0, len(names))
	for _, name := range names {
		t, err := getDeviceType(ctx, db.conn, name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// saveDeviceType inserts or updates a device type and replaces its templates.
func (db *DB) saveDeviceType(ctx context.Context, t DeviceType) (DeviceType, error) {
	if err := t.normalize(); err != nil {
		return DeviceType{}, err
	}

	var saved DeviceType
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO device_types (name) VALUES (?)
			ON CONFLICT(name) DO UPDATE SET name = excluded.name
			RETURNING id
		`, t.Name).Scan(&id)
		if err != nil {
			return constraintErr(err, "device type "+t.Name)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM device_type_templates WHERE device_type_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear templates: %w", err)
		}
		for _, tpl := range t.Templates {
			if _, err := tx.ExecContext(ctx, "INSERT INTO device_type_templates (device_type_id, template_id) VALUES (?, ?)", id, tpl); err != nil {
				return fmt.Errorf("failed to add template %d: %w", tpl, err)
			}
		}
		saved, err = getDeviceType(ctx, tx, t.Name)
		return err
	})
	return saved, err
}
