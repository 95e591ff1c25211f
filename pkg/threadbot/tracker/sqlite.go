package tracker

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend stores the record in two small tables. Save rewrites both
// inside one transaction, which gives the same all-or-nothing guarantee as
// the file backend's rename.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens or creates the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	b := &SQLiteBackend{db: db}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS tracked_channels (
			guild_id   TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			position   INTEGER NOT NULL,
			PRIMARY KEY (guild_id, channel_id)
		);

		CREATE TABLE IF NOT EXISTS thread_summary_channels (
			guild_id   TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL
		);
	`)
	return err
}

// Load reads both tables.
func (b *SQLiteBackend) Load() (*Configuration, error) {
	cfg := NewConfiguration()

	rows, err := b.db.Query(`
		SELECT guild_id, channel_id FROM tracked_channels
		ORDER BY guild_id ASC, position ASC`)
	if err != nil {
		return cfg, fmt.Errorf("load tracked channels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var guild, channel string
		if err := rows.Scan(&guild, &channel); err != nil {
			return NewConfiguration(), fmt.Errorf("scan tracked channel: %w", err)
		}
		cfg.TrackedChannels[guild] = append(cfg.TrackedChannels[guild], channel)
	}
	if err := rows.Err(); err != nil {
		return NewConfiguration(), fmt.Errorf("iterate tracked channels: %w", err)
	}

	summaryRows, err := b.db.Query(`SELECT guild_id, channel_id FROM thread_summary_channels`)
	if err != nil {
		return NewConfiguration(), fmt.Errorf("load summary channels: %w", err)
	}
	defer summaryRows.Close()
	for summaryRows.Next() {
		var guild, channel string
		if err := summaryRows.Scan(&guild, &channel); err != nil {
			return NewConfiguration(), fmt.Errorf("scan summary channel: %w", err)
		}
		cfg.ThreadSummaryChannels[guild] = channel
	}
	if err := summaryRows.Err(); err != nil {
		return NewConfiguration(), fmt.Errorf("iterate summary channels: %w", err)
	}
	return cfg, nil
}

// Save replaces both tables with cfg.
func (b *SQLiteBackend) Save(cfg *Configuration) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tracked_channels`); err != nil {
		return fmt.Errorf("clear tracked channels: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM thread_summary_channels`); err != nil {
		return fmt.Errorf("clear summary channels: %w", err)
	}

	for guild, ids := range cfg.TrackedChannels {
		for pos, id := range ids {
			if _, err := tx.Exec(`
				INSERT INTO tracked_channels (guild_id, channel_id, position)
				VALUES (?, ?, ?)`, guild, id, pos); err != nil {
				return fmt.Errorf("insert tracked channel: %w", err)
			}
		}
	}
	for guild, id := range cfg.ThreadSummaryChannels {
		if _, err := tx.Exec(`
			INSERT INTO thread_summary_channels (guild_id, channel_id)
			VALUES (?, ?)`, guild, id); err != nil {
			return fmt.Errorf("insert summary channel: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
