// Package postgres provides a PostgreSQL knowledge store using the pgvector
// extension for similarity search.
//
// Queries are built with squirrel using dollar placeholders and executed
// through sqlx on the lib/pq driver. Cosine similarity is computed by the
// database with the <=> operator.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/custodia-labs/reverie/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

// Table names. They are prefixed so the store can share a database.
const (
	chunksTable = "reverie_chunks"
	themesTable = "reverie_themes"
	auditTable  = "reverie_classification_audit"
	metaTable   = "reverie_meta"
	migTable    = "reverie_schema_migrations"
)

const metaDims = "embedding_dims"

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Ensure Store implements the interface.
var _ driven.KnowledgeStore = (*Store)(nil)

// Store is a pgvector-backed knowledge store.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Truncate removes every row. Used to reset a shared test database.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"TRUNCATE "+auditTable+", "+chunksTable+", "+themesTable+", "+metaTable+" RESTART IDENTITY")
	return err
}

func (s *Store) migrate(ctx context.Context, fsys embed.FS) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migTable+` (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var current int
	if err := s.db.GetContext(ctx, &current, "SELECT COALESCE(MAX(version), 0) FROM "+migTable); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			upFiles = append(upFiles, e.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+migTable+" (version) VALUES ($1)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

func dims(ctx context.Context, q sqlx.QueryerContext) (int, error) {
	query, args, err := psql.Select("value").From(metaTable).Where(sq.Eq{"key": metaDims}).ToSql()
	if err != nil {
		return 0, errorSQLBuild(err)
	}
	var raw []string
	if err := sqlx.SelectContext(ctx, q, &raw, query, args...); err != nil {
		return 0, fmt.Errorf("reading embedding dimensions: %w", err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	return strconv.Atoi(raw[0])
}

func errorSQLBuild(err error) error {
	return fmt.Errorf("building sql query: %w", err)
}
