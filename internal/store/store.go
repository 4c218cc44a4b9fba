// Package store persists delegations and outstanding scheduled checks in a
// single SQLite database so armed switches survive a daemon restart.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vigild/vigild/internal/registry"
	"github.com/vigild/vigild/pkg/vigilib"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Store wraps the vigil database. It implements both the registry's
// write-through persistence and the engine's delegation store.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at baseDir/vigil.db.
// The baseDir parameter allows tests to use t.TempDir().
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, "vigil.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Restrict permissions after the file exists (best-effort).
	_ = os.Chmod(dbPath, 0600)

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("failed to read user_version: %w", err)
	}

	if version < 1 {
		const schema = `
CREATE TABLE IF NOT EXISTS delegations (
	user_address          TEXT PRIMARY KEY,
	beneficiary_address   TEXT NOT NULL,
	execution_account_ref TEXT NOT NULL DEFAULT '',
	timeout_seconds       INTEGER NOT NULL,
	active                INTEGER NOT NULL DEFAULT 0,
	ens_name              TEXT NOT NULL DEFAULT '',
	updated_at            INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS scheduled_checks (
	id              TEXT PRIMARY KEY,
	user_address    TEXT NOT NULL UNIQUE,
	due_at_ns       INTEGER NOT NULL,
	timeout_seconds INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checks_due ON scheduled_checks(due_at_ns);
PRAGMA user_version = 1;`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration to v1 failed: %w", err)
		}
	}
	return nil
}

// InsertCheck persists a newly armed check.
func (s *Store) InsertCheck(c *registry.ScheduledCheck) error {
	_, err := s.db.Exec(
		`INSERT INTO scheduled_checks (id, user_address, due_at_ns, timeout_seconds)
		 VALUES (?, ?, ?, ?)`,
		c.ID, c.UserAddress, c.DueAt.UnixNano(), c.TimeoutSeconds,
	)
	return err
}

// DeleteCheck removes a consumed check.
func (s *Store) DeleteCheck(id string) error {
	_, err := s.db.Exec(`DELETE FROM scheduled_checks WHERE id = ?`, id)
	return err
}

// OutstandingChecks returns all persisted checks ordered by due time,
// used to rebuild the scheduler heap at startup.
func (s *Store) OutstandingChecks() ([]registry.ScheduledCheck, error) {
	rows, err := s.db.Query(
		`SELECT id, user_address, due_at_ns, timeout_seconds
		 FROM scheduled_checks ORDER BY due_at_ns`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.ScheduledCheck
	for rows.Next() {
		var c registry.ScheduledCheck
		var dueNS int64
		if err := rows.Scan(&c.ID, &c.UserAddress, &dueNS, &c.TimeoutSeconds); err != nil {
			return nil, err
		}
		c.DueAt = time.Unix(0, dueNS)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetDelegation returns the delegation for user, or vigilib.ErrNotFound.
func (s *Store) GetDelegation(ctx context.Context, user string) (*vigilib.Delegation, error) {
	user = vigilib.NormalizeAddress(user)
	var d vigilib.Delegation
	var active int
	err := s.db.QueryRowContext(ctx,
		`SELECT user_address, beneficiary_address, execution_account_ref,
		        timeout_seconds, active, ens_name
		 FROM delegations WHERE user_address = ?`, user,
	).Scan(&d.UserAddress, &d.BeneficiaryAddress, &d.ExecutionAccountRef,
		&d.TimeoutSeconds, &active, &d.ENSName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, vigilib.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Active = active != 0
	return &d, nil
}

// PutDelegation inserts or replaces the delegation for its user.
func (s *Store) PutDelegation(ctx context.Context, d *vigilib.Delegation) error {
	active := 0
	if d.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO delegations
		   (user_address, beneficiary_address, execution_account_ref,
		    timeout_seconds, active, ens_name, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_address) DO UPDATE SET
		   beneficiary_address = excluded.beneficiary_address,
		   execution_account_ref = excluded.execution_account_ref,
		   timeout_seconds = excluded.timeout_seconds,
		   active = excluded.active,
		   ens_name = excluded.ens_name,
		   updated_at = excluded.updated_at`,
		vigilib.NormalizeAddress(d.UserAddress),
		vigilib.NormalizeAddress(d.BeneficiaryAddress),
		d.ExecutionAccountRef, d.TimeoutSeconds, active, d.ENSName,
		time.Now().UnixNano(),
	)
	return err
}

// SetActive flips only the active flag of an existing delegation.
func (s *Store) SetActive(ctx context.Context, user string, active bool) error {
	a := 0
	if active {
		a = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE delegations SET active = ?, updated_at = ? WHERE user_address = ?`,
		a, time.Now().UnixNano(), vigilib.NormalizeAddress(user))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return vigilib.ErrNotFound
	}
	return nil
}
