package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SetSetting stores a setting. An empty description keeps the existing one.
func (db *DB) SetSetting(ctx context.Context, name, value, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: setting name is required", ErrInvalid)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	query := `
		INSERT INTO settings (name, value, description)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			description = CASE WHEN excluded.description = '' THEN settings.description ELSE excluded.description END
	`
	if _, err := db.conn.ExecContext(ctx, query, name, value, description); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", name, err)
	}
	return nil
}

// GetSetting returns the named setting.
func (db *DB) GetSetting(ctx context.Context, name string) (Setting, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var s Setting
	err := db.conn.QueryRowContext(ctx, "SELECT name, value, description FROM settings WHERE name = ?", name).
		Scan(&s.Name, &s.Value, &s.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Setting{}, fmt.Errorf("%w: setting %s", ErrNotFound, name)
	}
	if err != nil {
		return Setting{}, fmt.Errorf("failed to get setting %s: %w", name, err)
	}
	return s, nil
}

// Settings lists all settings ordered by name.
func (db *DB) Settings(ctx context.Context) ([]Setting, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, "SELECT name, value, description FROM settings ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Name, &s.Value, &s.Description); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UnsetSetting removes the named setting.
func (db *DB) UnsetSetting(ctx context.Context, name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx, "DELETE FROM settings WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: setting %s", ErrNotFound, name)
	}
	return nil
}

// LookupSetting adapts GetSetting to a (value, found, error) lookup.
func (db *DB) LookupSetting(ctx context.Context) func(name string) (string, bool, error) {
	return func(name string) (string, bool, error) {
		s, err := db.GetSetting(ctx, name)
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return s.Value, true, nil
	}
}
