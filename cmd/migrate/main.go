// Command migrate manages the coin100 schema: the coins observation table,
// the total_top100_cap aggregate table, and their indexes. SQL lives in
// migrations/ as NNNN_name.up.sql / NNNN_name.down.sql pairs and is
// compiled into the binary.
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	loadEnvFunc = godotenv.Load
	openPool    = pgxpool.New
)

var migrationFilePattern = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

type migration struct {
	version int64
	name    string
	up      string
	down    string
}

func (m migration) String() string {
	return fmt.Sprintf("%04d_%s", m.version, m.name)
}

func usage() {
	log.Fatal("usage: migrate up | migrate down [steps] | migrate version")
}

func main() {
	loadEnvFunc()

	if len(os.Args) < 2 {
		usage()
	}

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, dsn)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, ledgerDDL); err != nil {
		log.Fatalf("creating schema_migrations ledger: %v", err)
	}

	migrations, err := readMigrations(migrationsFS)
	if err != nil {
		log.Fatalf("reading embedded migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		n, err := migrateUp(ctx, pool, migrations)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Printf("schema is current, %d migration(s) applied", n)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			steps, err = strconv.Atoi(os.Args[2])
			if err != nil || steps <= 0 {
				log.Fatalf("down steps must be a positive integer, got %q", os.Args[2])
			}
		}
		n, err := migrateDown(ctx, pool, migrations, steps)
		if err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Printf("%d migration(s) rolled back", n)
	case "version":
		m, ok, err := ledgerHead(ctx, pool)
		if err != nil {
			log.Fatalf("reading schema version: %v", err)
		}
		if !ok {
			log.Println("schema is empty, no migrations applied")
			return
		}
		log.Printf("schema at %s", m)
	default:
		usage()
	}
}

const ledgerDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// readMigrations parses the embedded SQL files into ordered up/down pairs.
// Every version must carry both directions; gaps in numbering are allowed.
func readMigrations(fsys fs.FS) ([]migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files embedded")
	}

	byVersion := make(map[int64]*migration)
	for _, p := range paths {
		groups := migrationFilePattern.FindStringSubmatch(p)
		if groups == nil {
			return nil, fmt.Errorf("%s does not match NNNN_name.{up,down}.sql", p)
		}
		version, err := strconv.ParseInt(groups[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad version: %w", p, err)
		}

		text, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		sqlText := strings.TrimSpace(string(text))
		if sqlText == "" {
			return nil, fmt.Errorf("%s is empty", p)
		}

		m := byVersion[version]
		if m == nil {
			m = &migration{version: version, name: groups[2]}
			byVersion[version] = m
		} else if m.name != groups[2] {
			return nil, fmt.Errorf("version %d named both %q and %q", version, m.name, groups[2])
		}

		switch groups[3] {
		case "up":
			if m.up != "" {
				return nil, fmt.Errorf("version %d has two up files", version)
			}
			m.up = sqlText
		case "down":
			if m.down != "" {
				return nil, fmt.Errorf("version %d has two down files", version)
			}
			m.down = sqlText
		}
	}

	ordered := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up == "" || m.down == "" {
			return nil, fmt.Errorf("version %d is missing its up or down file", m.version)
		}
		ordered = append(ordered, *m)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].version < ordered[j].version })
	return ordered, nil
}

// inTx runs fn inside a transaction, rolling back on error.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool, migrations []migration) (int, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return 0, err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		err := inTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.up); err != nil {
				return fmt.Errorf("%s: %w", m, err)
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				m.version, m.name)
			return err
		})
		if err != nil {
			return count, err
		}
		log.Printf("applied %s", m)
		count++
	}
	return count, nil
}

func migrateDown(ctx context.Context, pool *pgxpool.Pool, migrations []migration, steps int) (int, error) {
	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.version] = m
	}

	rows, err := pool.Query(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, steps)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var targets []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return 0, err
		}
		targets = append(targets, v)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, version := range targets {
		m, ok := byVersion[version]
		if !ok {
			return count, fmt.Errorf("ledger holds version %d but no migration file defines it", version)
		}
		err := inTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.down); err != nil {
				return fmt.Errorf("%s: %w", m, err)
			}
			_, err := tx.Exec(ctx,
				`DELETE FROM schema_migrations WHERE version = $1`, m.version)
			return err
		})
		if err != nil {
			return count, err
		}
		log.Printf("rolled back %s", m)
		count++
	}
	return count, nil
}

func ledgerHead(ctx context.Context, pool *pgxpool.Pool) (migration, bool, error) {
	var m migration
	err := pool.QueryRow(ctx,
		`SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&m.version, &m.name)
	if errors.Is(err, pgx.ErrNoRows) {
		return migration{}, false, nil
	}
	if err != nil {
		return migration{}, false, err
	}
	return m, true, nil
}
