package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go-extension-exporter/internal/browsers"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultTTL is how long a cached inventory stays fresh
const DefaultTTL = 30 * time.Minute

// DB wraps the SQLite connection
type DB struct {
	conn *sql.DB
	ttl  time.Duration
	now  func() time.Time
}

// NewDB initializes a new SQLite database connection
func NewDB(path string, ttl time.Duration) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	for _, browser := range browsers.All {
		// Use composite primary key (id, profile)
		query := fmt.Sprintf(`
            CREATE TABLE IF NOT EXISTS %s_extensions (
                id TEXT,
                name TEXT NOT NULL,
                description TEXT NOT NULL,
                version TEXT NOT NULL,
                enabled INTEGER NOT NULL,
                install_type TEXT NOT NULL,
                type TEXT NOT NULL,
                icons TEXT NOT NULL,
                permissions TEXT NOT NULL,
                host_permissions TEXT NOT NULL,
                browser TEXT NOT NULL,
                profile TEXT,
                position INTEGER NOT NULL,
                timestamp INTEGER NOT NULL,
                PRIMARY KEY (id, profile)
            )`, browser)
		if _, err := conn.Exec(query); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create table %s_extensions: %w", browser, err)
		}
	}

	return &DB{conn: conn, ttl: ttl, now: time.Now}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

func tableName(browser browsers.Browser) (string, error) {
	if _, ok := browser.Config(); !ok {
		return "", fmt.Errorf("unknown browser %q", browser)
	}
	return string(browser) + "_extensions", nil
}

// GetExtensions retrieves cached extensions if fresh, or returns nil if stale/empty
func (d *DB) GetExtensions(browser browsers.Browser) ([]browsers.Extension, error) {
	table, err := tableName(browser)
	if err != nil {
		return nil, err
	}

	// Check the latest timestamp
	row := d.conn.QueryRow(fmt.Sprintf("SELECT timestamp FROM %s ORDER BY timestamp DESC LIMIT 1", table))

	var ts int64
	err = row.Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil // No data yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s timestamp: %w", table, err)
	}

	if d.now().Sub(time.Unix(ts, 0)) > d.ttl {
		return nil, nil // Cache is stale
	}

	query := fmt.Sprintf(`SELECT id, name, description, version, enabled, install_type, type,
        icons, permissions, host_permissions, browser, profile
        FROM %s WHERE timestamp = ? ORDER BY position`, table)
	rows, err := d.conn.Query(query, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch extensions: %w", err)
	}
	defer rows.Close()

	var extensions []browsers.Extension
	for rows.Next() {
		var e browsers.Extension
		var enabledInt int
		var icons, perms, hostPerms string
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Version, &enabledInt, &e.InstallType, &e.Type,
			&icons, &perms, &hostPerms, &e.Browser, &e.Profile); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Enabled = enabledInt != 0
		if err := decodeColumns(&e, icons, perms, hostPerms); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", e.ID, err)
		}
		extensions = append(extensions, e)
	}

	return extensions, rows.Err()
}

// UpdateExtensions replaces the extension table for a browser
func (d *DB) UpdateExtensions(browser browsers.Browser, extensions []browsers.Extension) error {
	table, err := tableName(browser)
	if err != nil {
		return err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Clear old data
	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (id, name, description, version, enabled, install_type, type,
        icons, permissions, host_permissions, browser, profile, position, timestamp)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)
	now := d.now().Unix()
	for i, ext := range extensions {
		enabledInt := 0
		if ext.Enabled {
			enabledInt = 1
		}
		icons, perms, hostPerms, err := encodeColumns(ext)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to encode extension %s: %w", ext.ID, err)
		}
		if _, err := tx.Exec(query, ext.ID, ext.Name, ext.Description, ext.Version, enabledInt, ext.InstallType, ext.Type,
			icons, perms, hostPerms, ext.Browser, ext.Profile, i, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert extension: %w", err)
		}
	}

	return tx.Commit()
}

func encodeColumns(ext browsers.Extension) (string, string, string, error) {
	var out [3]string
	for i, v := range []any{ext.Icons, ext.Permissions, ext.HostPermissions} {
		b, err := json.Marshal(v)
		if err != nil {
			return "", "", "", err
		}
		out[i] = string(b)
	}
	return out[0], out[1], out[2], nil
}

func decodeColumns(e *browsers.Extension, icons, perms, hostPerms string) error {
	if err := json.Unmarshal([]byte(icons), &e.Icons); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(perms), &e.Permissions); err != nil {
		return err
	}
	return json.Unmarshal([]byte(hostPerms), &e.HostPermissions)
}
