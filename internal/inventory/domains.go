package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const subdomainSelect = `
	SELECT s.id, s.name, dm.name, dm.registrar, dv.hostname, dv.ip
	FROM subdomains s
	JOIN domains dm ON dm.id = s.domain_id
	JOIN devices dv ON dv.id = s.hosted_on`

func getDomain(ctx context.Context, q txExec, name string) (Domain, error) {
	var d Domain
	err := q.QueryRowContext(ctx, "SELECT id, name, registrar FROM domains WHERE name = ?", name).
		Scan(&d.ID, &d.Name, &d.Registrar)
	if errors.Is(err, sql.ErrNoRows) {
		return Domain{}, fmt.Errorf("%w: domain %s", ErrNotFound, name)
	}
	if err != nil {
		return Domain{}, fmt.Errorf("failed to get domain %s: %w", name, err)
	}
	return d, nil
}

func getSubdomain(ctx context.Context, q txExec, name, domain string) (Subdomain, error) {
	var s Subdomain
	err := q.QueryRowContext(ctx, subdomainSelect+" WHERE s.name = ? AND dm.name = ?", name, domain).
		Scan(&s.ID, &s.Name, &s.Domain, &s.Registrar, &s.HostedOn, &s.HostIP)
	if errors.Is(err, sql.ErrNoRows) {
		return Subdomain{}, fmt.Errorf("%w: subdomain %s.%s", ErrNotFound, name, domain)
	}
	if err != nil {
		return Subdomain{}, fmt.Errorf("failed to get subdomain %s.%s: %w", name, domain, err)
	}
	return s, nil
}

func querySubdomains(ctx context.Context, q txExec, where string, args ...any) ([]Subdomain, error) {
	rows, err := q.QueryContext(ctx, subdomainSelect+" "+where+" ORDER BY dm.name, s.name", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subdomains: %w", err)
	}
	defer rows.Close()

	var out []Subdomain
	for rows.Next() {
		var s Subdomain
		if err := rows.Scan(&s.ID, &s.Name, &s.Domain, &s.Registrar, &s.HostedOn, &s.HostIP); err != nil {
			return nil, fmt.Errorf("failed to scan subdomain: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Domain returns the named domain.
func (db *DB) Domain(ctx context.Context, name string) (Domain, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return getDomain(ctx, db.conn, name)
}

// Domains lists all domains ordered by name.
func (db *DB) Domains(ctx context.Context) ([]Domain, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, "SELECT id, name, registrar FROM domains ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}
	defer rows.Close()

	var out []Domain
	for rows.Next() {
		var d Domain
		if err := rows.Scan(&d.ID, &d.Name, &d.Registrar); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Subdomain returns one subdomain of domain.
func (db *DB) Subdomain(ctx context.Context, name, domain string) (Subdomain, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return getSubdomain(ctx, db.conn, name, domain)
}

// Subdomains lists all subdomains ordered by domain then name.
func (db *DB) Subdomains(ctx context.Context) ([]Subdomain, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return querySubdomains(ctx, db.conn, "")
}

// SubdomainsHostedOn lists the subdomains served by the given device.
func (db *DB) SubdomainsHostedOn(ctx context.Context, hostname string) ([]Subdomain, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return querySubdomains(ctx, db.conn, "WHERE dv.hostname = ?", hostname)
}

// saveDomain inserts a domain or updates its registrar.
func (db *DB) saveDomain(ctx context.Context, d Domain) (Domain, error) {
	if err := d.normalize(); err != nil {
		return Domain{}, err
	}
	var saved Domain
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO domains (name, registrar) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET registrar = excluded.registrar
		`, d.Name, d.Registrar)
		if err != nil {
			return constraintErr(err, "domain "+d.Name)
		}
		saved, err = getDomain(ctx, tx, d.Name)
		return err
	})
	return saved, err
}

// deleteDomain removes a domain without subdomains.
func (db *DB) deleteDomain(ctx context.Context, name string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		d, err := getDomain(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM domains WHERE id = ?", d.ID); err != nil {
			return constraintErr(err, "domain "+name)
		}
		return nil
	})
}

// saveSubdomain points name.domain at the device hostedOn, creating the
// subdomain when needed. The previous state is returned when it existed.
func (db *DB) saveSubdomain(ctx context.Context, name, domain, hostedOn string) (*Subdomain, Subdomain, error) {
	label, err := normalizeLabel(name)
	if err != nil {
		return nil, Subdomain{}, err
	}
	dom := Domain{Name: domain}
	if err := dom.normalize(); err != nil {
		return nil, Subdomain{}, err
	}

	var old *Subdomain
	var saved Subdomain
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		prev, err := getSubdomain(ctx, tx, label, dom.Name)
		switch {
		case err == nil:
			old = &prev
		case !errors.Is(err, ErrNotFound):
			return err
		}

		d, err := getDomain(ctx, tx, dom.Name)
		if err != nil {
			return err
		}
		dev, err := getDevice(ctx, tx, hostedOn)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO subdomains (name, domain_id, hosted_on) VALUES (?, ?, ?)
			ON CONFLICT(name, domain_id) DO UPDATE SET hosted_on = excluded.hosted_on
		`, label, d.ID, dev.ID)
		if err != nil {
			return constraintErr(err, "subdomain "+label+"."+dom.Name)
		}
		saved, err = getSubdomain(ctx, tx, label, dom.Name)
		return err
	})
	if err != nil {
		return nil, Subdomain{}, err
	}
	return old, saved, nil
}

// deleteSubdomain removes name.domain and returns what was removed.
func (db *DB) deleteSubdomain(ctx context.Context, name, domain string) (Subdomain, error) {
	var deleted Subdomain
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		s, err := getSubdomain(ctx, tx, name, domain)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM subdomains WHERE id = ?", s.ID); err != nil {
			return fmt.Errorf("failed to delete subdomain %s: %w", s.FQDN(), err)
		}
		deleted = s
		return nil
	})
	return deleted, err
}
