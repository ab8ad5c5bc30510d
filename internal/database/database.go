// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql, which also speaks to MariaDB and the hosted
// MySQL-compatible service the school uses.
//
// Public entry points:
//
//	Open(ctx, dsn)                            – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, maxOpen, maxIdle) – fine-grained control.
//	Migrate(ctx, db)                          – applies embedded schema files.
//
// Both open helpers Ping the database before returning so callers fail fast
// during bootstrap.  Callers Close() the returned *sqlx.DB.
package database

import (
	"context"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Open returns a *sqlx.DB with 15 max open, 5 idle, and a 30-minute
// connection lifetime.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, 15, 5)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle.  The CLI uses a
// single connection.
func OpenWithOptions(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
