// Package store persists users, items and repair tickets in SQLite.
//
// Functions take the *sql.DB and return (nil, nil) for missing records.
package store

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
)

const driverName = "sqlite"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// dbx wraps db for struct scanning and named queries.
func dbx(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, driverName)
}
