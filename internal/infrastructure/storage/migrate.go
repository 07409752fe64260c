package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

func (s *SQLStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	dir := "migrations/" + s.driver
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		if err := s.applyMigration(ctx, dir, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) applyMigration(ctx context.Context, dir, version string) error {
	query, args, err := s.builder.Select("COUNT(*)").
		From("schema_migrations").
		Where(sq.Eq{"version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build migration check: %w", err)
	}

	var applied int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&applied); err != nil {
		return fmt.Errorf("check migration %s: %w", version, err)
	}
	if applied > 0 {
		return nil
	}

	content, err := migrationsFS.ReadFile(dir + "/" + version)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}

	insert, insertArgs, err := s.builder.Insert("schema_migrations").
		Columns("version").
		Values(version).
		ToSql()
	if err != nil {
		return fmt.Errorf("build migration record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}
