// Package storage persists named snapshot documents in SQLite, or in MySQL /
// MariaDB when given a mysql:// or mariadb:// DSN. Only the flat snapshot
// document is stored; projection tables are always recomputed.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	apperrors "github.com/iwvelando/cbdc-tax-forecast/internal/errors"
)

const timeLayout = time.RFC3339Nano

// Record is one stored snapshot.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Body      []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type dialect struct {
	driver string
	schema string
	upsert string
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: `
CREATE TABLE IF NOT EXISTS snapshots (
  id         TEXT PRIMARY KEY,
  name       TEXT NOT NULL UNIQUE,
  body       TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`,
	upsert: `INSERT INTO snapshots(id, name, body, created_at, updated_at) VALUES(?,?,?,?,?)
ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
}

var mysqlDialect = dialect{
	driver: "mysql",
	schema: `
CREATE TABLE IF NOT EXISTS snapshots (
  id         CHAR(36) PRIMARY KEY,
  name       VARCHAR(191) NOT NULL UNIQUE,
  body       MEDIUMTEXT NOT NULL,
  created_at VARCHAR(40) NOT NULL,
  updated_at VARCHAR(40) NOT NULL
)`,
	upsert: `INSERT INTO snapshots(id, name, body, created_at, updated_at) VALUES(?,?,?,?,?)
ON DUPLICATE KEY UPDATE body = VALUES(body), updated_at = VALUES(updated_at)`,
}

// DB is a snapshot store.
type DB struct {
	sql     *sql.DB
	dialect dialect
	now     func() time.Time
}

// Open connects to the store described by dsn and creates the schema if it
// does not exist yet. A mysql:// or mariadb:// DSN selects MySQL; anything
// else is treated as a SQLite file path.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidParameter, "storage DSN is empty",
			map[string]string{"field": "storage.dsn"})
	}

	d := sqliteDialect
	driverDSN := sqliteDSN(dsn)
	if isMySQL(dsn) {
		var err error
		d = mysqlDialect
		if driverDSN, err = toMySQLDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(d.driver, driverDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", d.driver, err)
	}
	if d.driver == "mysql" {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s store: %w", d.driver, err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &DB{sql: db, dialect: d, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Save stores body under name, replacing any existing snapshot of that name.
// The record keeps its ID and creation time across replacements.
func (d *DB) Save(ctx context.Context, name string, body []byte) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, apperrors.WithMetadata(apperrors.CodeInvalidParameter, "snapshot name is required",
			map[string]string{"field": "name"})
	}

	now := d.now().UTC().Format(timeLayout)
	if _, err := d.sql.ExecContext(ctx, d.dialect.upsert, uuid.NewString(), name, string(body), now, now); err != nil {
		return Record{}, fmt.Errorf("save snapshot %q: %w", name, err)
	}
	return d.Load(ctx, name)
}

// Load returns the snapshot stored under name.
func (d *DB) Load(ctx context.Context, name string) (Record, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT id, name, body, created_at, updated_at FROM snapshots WHERE name = ?", name)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, notFound(name)
	}
	if err != nil {
		return Record{}, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	return record, nil
}

// List returns every stored snapshot ordered by name.
func (d *DB) List(ctx context.Context) ([]Record, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, name, body, created_at, updated_at FROM snapshots ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Delete removes the snapshot stored under name.
func (d *DB) Delete(ctx context.Context, name string) error {
	result, err := d.sql.ExecContext(ctx, "DELETE FROM snapshots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	if affected == 0 {
		return notFound(name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		record           Record
		body             string
		created, updated string
	)
	if err := s.Scan(&record.ID, &record.Name, &body, &created, &updated); err != nil {
		return Record{}, err
	}
	record.Body = []byte(body)

	var err error
	if record.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	if record.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Record{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return record, nil
}

func notFound(name string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, fmt.Sprintf("snapshot %q not found", name),
		map[string]string{"name": name})
}

func isMySQL(dsn string) bool {
	return strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://")
}

func sqliteDSN(dsn string) string {
	if strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return "file:" + dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// toMySQLDSN converts a mysql:// or mariadb:// URL into the driver's format.
func toMySQLDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	user, pass := "", ""
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	host := u.Host
	db := strings.TrimPrefix(u.Path, "/")
	if user == "" || host == "" || db == "" {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidParameter,
			"incomplete mysql dsn: user, host and database are required",
			map[string]string{"field": "storage.dsn"})
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
		user, pass, host, db), nil
}
