package db

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"

	"hypertide/internal/constants"
	"hypertide/internal/lock"
)

const schema = "hypertide_schema"

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects to the database and verifies the connection.
func Open(postgresURL string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return conn, nil
}

// Init creates the schema and runs the embedded migration scripts in
// name order. A distributed lock keeps concurrent instances from
// running the migrations at the same time.
func Init(conn *sql.DB, distributedLock lock.DistributedLockManager) error {
	if err := distributedLock.Acquire(constants.MigrationLock); err != nil {
		return err
	}
	defer distributedLock.Release(constants.MigrationLock)

	if _, err := conn.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return errors.Wrap(err, "create schema")
	}

	scripts, err := readSQLScripts()
	if err != nil {
		return err
	}
	for _, script := range scripts {
		if _, err := conn.Exec(script.sql); err != nil {
			return errors.Wrapf(err, "apply migration %s", script.name)
		}
	}

	return nil
}

type migrationScript struct {
	name string
	sql  string
}

func readSQLScripts() ([]migrationScript, error) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	scripts := make([]migrationScript, 0, len(names))
	for _, name := range names {
		content, err := migrations.ReadFile("migrations/" + name)
		if err != nil {
			return nil, errors.Wrapf(err, "read migration %s", name)
		}
		scripts = append(scripts, migrationScript{name: name, sql: string(content)})
	}
	return scripts, nil
}
