package db

import (
	"fmt"
	"time"
)

// Event is one journal row. It records that an operation ran against a
// vault path and how it ended; it never carries secrets or vault contents.
type Event struct {
	ID        int64     `json:"id"`
	At        time.Time `json:"at"`
	Op        string    `json:"op"`
	VaultPath string    `json:"vaultPath,omitempty"`
	Success   bool      `json:"success"`
	ErrorKind string    `json:"errorKind,omitempty"`
}

// InsertEvent stores e and returns its database ID.
func InsertEvent(d *DB, e Event) (int64, error) {
	if d == nil || d.sql == nil {
		return 0, fmt.Errorf("database handle is nil")
	}
	if e.Op == "" {
		return 0, fmt.Errorf("event op is required")
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	res, err := d.sql.Exec(
		`INSERT INTO events (at, op, vault_path, success, error_kind) VALUES (?, ?, ?, ?, ?)`,
		e.At.UTC().Format(time.RFC3339Nano), e.Op, e.VaultPath, e.Success, e.ErrorKind,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fetch insert id: %w", err)
	}
	return id, nil
}

// RecentEvents returns up to limit events, newest first.
func RecentEvents(d *DB, limit int) ([]Event, error) {
	if d == nil || d.sql == nil {
		return nil, fmt.Errorf("database handle is nil")
	}
	if limit <= 0 {
		return []Event{}, nil
	}

	rows, err := d.sql.Query(
		`SELECT id, at, op, vault_path, success, error_kind
		 FROM events
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	results := []Event{}
	for rows.Next() {
		var (
			e  Event
			at string
		)
		if err := rows.Scan(&e.ID, &at, &e.Op, &e.VaultPath, &e.Success, &e.ErrorKind); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse event time: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return results, nil
}

// CountEvents returns the number of journal rows.
func CountEvents(d *DB) (int64, error) {
	if d == nil || d.sql == nil {
		return 0, fmt.Errorf("database handle is nil")
	}
	var n int64
	if err := d.sql.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// PruneEvents keeps the newest keep rows and deletes the rest, returning how
// many were removed.
func PruneEvents(d *DB, keep int) (int64, error) {
	if d == nil || d.sql == nil {
		return 0, fmt.Errorf("database handle is nil")
	}
	if keep < 0 {
		keep = 0
	}
	res, err := d.sql.Exec(
		`DELETE FROM events WHERE id NOT IN (SELECT id FROM events ORDER BY id DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}

// Journal is an open, migrated event log.
type Journal struct {
	db *DB
}

// OpenJournal opens (creating if needed) the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	d, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(d); err != nil {
		Close(d)
		return nil, err
	}
	return &Journal{db: d}, nil
}

// Record appends e.
func (j *Journal) Record(e Event) error {
	_, err := InsertEvent(j.db, e)
	return err
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(limit int) ([]Event, error) {
	return RecentEvents(j.db, limit)
}

// Prune keeps only the newest keep events.
func (j *Journal) Prune(keep int) (int64, error) {
	return PruneEvents(j.db, keep)
}

// Count returns the number of recorded events.
func (j *Journal) Count() (int64, error) {
	return CountEvents(j.db)
}

// Path reports the file backing j.
func (j *Journal) Path() string { return j.db.Path() }

// Close releases the underlying database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return Close(j.db)
}
