package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/orm/model"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

// Dialect describes the SQL differences between supported drivers
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter
	Placeholder func(n int) string
}

var (
	// SQLite binds with "?"
	SQLite = Dialect{Name: "sqlite3", Placeholder: func(int) string { return "?" }}
	// Postgres binds with "$n"; it serves both the pgx and lib/pq drivers
	Postgres = Dialect{Name: "postgres", Placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
)

// DialectFor returns the dialect of a database/sql driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// SQL stores each entity as a JSON document in a table named after the
// storage key: (id TEXT PRIMARY KEY, payload TEXT). Collections are ordered by id.
type SQL struct {
	Base
	db      *sql.DB
	dialect Dialect
	table   string
}

var _ Store = (*SQL)(nil)

// NewSQL creates a SQL store for class. Call Migrate before first use.
func NewSQL(class *schema.Class, db *sql.DB, dialect Dialect, logger logging.Logger) (*SQL, error) {
	base, err := NewBase(class, logger, "SQL Store")
	if err != nil {
		return nil, err
	}
	return &SQL{
		Base:    base,
		db:      db,
		dialect: dialect,
		table:   quoteIdentifier(base.StorageKey()),
	}, nil
}

// Migrate creates the document table when it does not exist
func (s *SQL) Migrate(ctx context.Context) error {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, payload TEXT NOT NULL)", s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, ConvertDBError(err))
	}
	return nil
}

// FindOne reads one entity
func (s *SQL) FindOne(ctx context.Context, id any) (*model.Model, error) {
	key, ok := s.LookupKey(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.StorageKey())
	}

	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = %s", s.table, s.dialect.Placeholder(1))

	var payload string
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&payload); err != nil {
		return nil, fmt.Errorf("failed to find %s/%s: %w", s.StorageKey(), key, ConvertDBError(err))
	}
	return s.decode(payload)
}

// FindMany returns every entity ordered by id; the query is ignored
func (s *SQL) FindMany(ctx context.Context, _ url.Values) (*model.Collection[*model.Model], error) {
	query := fmt.Sprintf("SELECT payload FROM %s ORDER BY id", s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.StorageKey(), ConvertDBError(err))
	}
	defer rows.Close()

	items := make([]*model.Model, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", s.StorageKey(), err)
		}
		m, err := s.decode(payload)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.StorageKey(), ConvertDBError(err))
	}
	return model.NewCollection(items...), nil
}

// SaveOne upserts the entity's write payload
func (s *SQL) SaveOne(ctx context.Context, m *model.Model) (*model.Model, error) {
	key, err := s.Key(m)
	if err != nil {
		return nil, err
	}
	row, err := encode(m)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (id, payload) VALUES (%s, %s) ON CONFLICT (id) DO UPDATE SET payload = excluded.payload",
		s.table, s.dialect.Placeholder(1), s.dialect.Placeholder(2),
	)
	if _, err := s.db.ExecContext(ctx, query, key, string(row)); err != nil {
		return nil, fmt.Errorf("failed to save %s/%s: %w", s.StorageKey(), key, ConvertDBError(err))
	}
	return m, nil
}

// DeleteOne removes the entity
func (s *SQL) DeleteOne(ctx context.Context, m *model.Model) (*model.Model, error) {
	key, err := s.Key(m)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = %s", s.table, s.dialect.Placeholder(1))
	result, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s/%s: %w", s.StorageKey(), key, ConvertDBError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, s.StorageKey(), key)
	}
	return m, nil
}

// HasOne reports whether the entity is stored; query errors read as false
func (s *SQL) HasOne(ctx context.Context, m *model.Model) bool {
	key, err := s.Key(m)
	if err != nil {
		return false
	}

	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = %s", s.table, s.dialect.Placeholder(1))
	var one int
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&one); err != nil {
		if !IsNotFound(ConvertDBError(err)) {
			s.Logger().Debug("existence check failed", "table", s.table, "error", err)
		}
		return false
	}
	return true
}

func (s *SQL) decode(payload string) (*model.Model, error) {
	v, err := schema.ParseJSON([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("corrupt payload in %s: %w", s.table, err)
	}
	return s.Hydrate(v)
}

// quoteIdentifier quotes a table name for both SQLite and PostgreSQL
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
