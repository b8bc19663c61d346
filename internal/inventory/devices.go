package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const deviceSelect = `
	SELECT d.id, d.hostname, d.name, d.ip, COALESCE(t.name, ''), d.monitored, d.snmp
	FROM devices d
	LEFT JOIN device_types t ON t.id = d.device_type_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.Hostname, &d.Name, &d.IP, &d.DeviceType, &d.Monitored, &d.SNMP)
	return d, err
}

func getDevice(ctx context.Context, q txExec, hostname string) (Device, error) {
	d, err := scanDevice(q.QueryRowContext(ctx, deviceSelect+" WHERE d.hostname = ?", hostname))
	if errors.Is(err, sql.ErrNoRows) {
		return Device{}, fmt.Errorf("%w: device %s", ErrNotFound, hostname)
	}
	if err != nil {
		return Device{}, fmt.Errorf("failed to get device %s: %w", hostname, err)
	}
	if d.Groups, err = intColumn(ctx, q, "SELECT group_id FROM device_groups WHERE device_id = ? ORDER BY group_id", d.ID); err != nil {
		return Device{}, err
	}
	return d, nil
}

// queryDevices reads all matching rows before loading groups so no result
// set is open while the next query runs.
func queryDevices(ctx context.Context, q txExec, where string, args ...any) ([]Device, error) {
	rows, err := q.QueryContext(ctx, deviceSelect+" "+where+" ORDER BY d.hostname", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range devices {
		if devices[i].Groups, err = intColumn(ctx, q, "SELECT group_id FROM device_groups WHERE device_id = ? ORDER BY group_id", devices[i].ID); err != nil {
			return nil, err
		}
	}
	return devices, nil
}

func intColumn(ctx context.Context, q txExec, query string, args ...any) ([]int, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func deviceTypeID(ctx context.Context, q txExec, name string) (sql.NullInt64, error) {
	if name == "" {
		return sql.NullInt64{}, nil
	}
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM device_types WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.NullInt64{}, fmt.Errorf("%w: device type %s", ErrNotFound, name)
	}
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("failed to get device type %s: %w", name, err)
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func setDeviceGroups(ctx context.Context, q txExec, deviceID int64, groups []int) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM device_groups WHERE device_id = ?", deviceID); err != nil {
		return fmt.Errorf("failed to clear device groups: %w", err)
	}
	for _, g := range groups {
		if _, err := q.ExecContext(ctx, "INSERT INTO device_groups (device_id, group_id) VALUES (?, ?)", deviceID, g); err != nil {
			return fmt.Errorf("failed to add device group %d: %w", g, err)
		}
	}
	return nil
}

// Device returns the device with the given hostname.
func (db *DB) Device(ctx context.Context, hostname string) (Device, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return getDevice(ctx, db.conn, hostname)
}

// Devices lists all devices ordered by hostname.
func (db *DB) Devices(ctx context.Context) ([]Device, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return queryDevices(ctx, db.conn, "")
}

// DevicesOfType lists the devices with the named device type.
func (db *DB) DevicesOfType(ctx context.Context, typeName string) ([]Device, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return queryDevices(ctx, db.conn, "WHERE t.name = ?", typeName)
}

// saveDevice inserts or updates d keyed by hostname. Groups are replaced when
// d.Groups is non-empty or the device is new. The previous state is returned
// when the device existed.
func (db *DB) saveDevice(ctx context.Context, d Device) (*Device, Device, error) {
	if err := d.normalize(); err != nil {
		return nil, Device{}, err
	}

	var old *Device
	var saved Device
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		prev, err := getDevice(ctx, tx, d.Hostname)
		switch {
		case err == nil:
			old = &prev
		case !errors.Is(err, ErrNotFound):
			return err
		}

		typeID, err := deviceTypeID(ctx, tx, d.DeviceType)
		if err != nil {
			return err
		}

		var id int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO devices (hostname, name, ip, device_type_id, monitored, snmp)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(hostname) DO UPDATE SET
				name = excluded.name,
				ip = excluded.ip,
				device_type_id = excluded.device_type_id,
				monitored = excluded.monitored,
				snmp = excluded.snmp
			RETURNING id
		`, d.Hostname, d.Name, d.IP, typeID, d.Monitored, d.SNMP).Scan(&id)
		if err != nil {
			return constraintErr(err, "device "+d.Hostname)
		}

		if d.Groups != nil || old == nil {
			if err := setDeviceGroups(ctx, tx, id, d.Groups); err != nil {
				return err
			}
		}
		saved, err = getDevice(ctx, tx, d.Hostname)
		return err
	})
	if err != nil {
		return nil, Device{}, err
	}
	return old, saved, nil
}

// setGroups replaces the monitoring groups of a device.
func (db *DB) setGroups(ctx context.Context, hostname string, groups []int) (Device, error) {
	var saved Device
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		d, err := getDevice(ctx, tx, hostname)
		if err != nil {
			return err
		}
		if err := setDeviceGroups(ctx, tx, d.ID, uniqueInts(groups)); err != nil {
			return err
		}
		saved, err = getDevice(ctx, tx, hostname)
		return err
	})
	return saved, err
}

// deleteDevice removes a device that hosts no subdomains.
func (db *DB) deleteDevice(ctx context.Context, hostname string) (Device, error) {
	var deleted Device
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		d, err := getDevice(ctx, tx, hostname)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", d.ID); err != nil {
			return constraintErr(err, "device "+hostname)
		}
		deleted = d
		return nil
	})
	return deleted, err
}
