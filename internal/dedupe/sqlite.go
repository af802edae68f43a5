package dedupe

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultSQLiteTable = "seen_items"

// SQLiteStore keeps seen records in a local SQLite database. It is safe for
// concurrent use even though cycles are serialized by the scheduler.
type SQLiteStore struct {
	db         *sql.DB
	table      string
	tableIdent string
	policy     RetentionPolicy
}

func NewSQLiteStore(dsn string, table string, policy RetentionPolicy) (*SQLiteStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if table == "" {
		table = defaultSQLiteTable
	}
	tableIdent, err := quoteSQLiteIdentifier(table)
	if err != nil {
		return nil, err
	}
	if err := ensureSQLiteDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{
		db:         db,
		table:      table,
		tableIdent: tableIdent,
		policy:     policy,
	}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Contains(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	var one int
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", s.tableIdent)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query seen id: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) Record(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return nil
	}
	// DO NOTHING keeps the original first_seen_at on a duplicate insert.
	_, err := s.db.ExecContext(
		ctx,
		fmt.Sprintf("INSERT INTO %s (id, first_seen_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING", s.tableIdent),
		id,
		at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record seen id: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Prune(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	if cutoff, ok := s.policy.ageCutoff(now.UTC()); ok {
		res, err := s.db.ExecContext(
			ctx,
			fmt.Sprintf("DELETE FROM %s WHERE first_seen_at < ?", s.tableIdent),
			cutoff,
		)
		if err != nil {
			return removed, fmt.Errorf("prune by age: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}
	if s.policy.MaxEntries > 0 {
		size, err := s.Size(ctx)
		if err != nil {
			return removed, err
		}
		evict := s.policy.evictCount(size)
		if evict > 0 {
			res, err := s.db.ExecContext(
				ctx,
				fmt.Sprintf(
					"DELETE FROM %s WHERE id IN (SELECT id FROM %s ORDER BY first_seen_at ASC, id ASC LIMIT ?)",
					s.tableIdent, s.tableIdent,
				),
				evict,
			)
			if err != nil {
				return removed, fmt.Errorf("prune by count: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
	}
	return removed, nil
}

func (s *SQLiteStore) Size(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableIdent)
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count seen ids: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		first_seen_at TIMESTAMP NOT NULL
	)`, s.tableIdent)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create sqlite table: %w", err)
	}
	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_first_seen_at_idx ON %s (first_seen_at)", s.table, s.tableIdent)
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("create sqlite index: %w", err)
	}
	return nil
}

func ensureSQLiteDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") {
		dsn = strings.TrimPrefix(dsn, "file:")
		if idx := strings.IndexRune(dsn, '?'); idx >= 0 {
			dsn = dsn[:idx]
		}
	}
	if dsn == "" || dsn == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

var sqliteIdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteSQLiteIdentifier(identifier string) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("sqlite table name is required")
	}
	if !sqliteIdentifierPattern.MatchString(identifier) {
		return "", fmt.Errorf("sqlite table name %q must match %s", identifier, sqliteIdentifierPattern.String())
	}
	return `"` + identifier + `"`, nil
}
