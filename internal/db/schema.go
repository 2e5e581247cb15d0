package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    permissions   TEXT NOT NULL DEFAULT '',
    photo         BLOB,
    photo_mime    TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id                   TEXT PRIMARY KEY,
    machine              TEXT NOT NULL DEFAULT '',
    client               TEXT NOT NULL DEFAULT '',
    reference            TEXT NOT NULL DEFAULT '',
    element              TEXT NOT NULL DEFAULT '',
    poses                INTEGER NOT NULL DEFAULT 1 CHECK (poses >= 1),
    date_creation        TEXT NOT NULL DEFAULT '',
    cliche_code          TEXT NOT NULL DEFAULT '',
    cliche_supplier      TEXT NOT NULL DEFAULT '',
    cliche_date_creation TEXT NOT NULL DEFAULT '',
    cliche_is_ordered    INTEGER NOT NULL DEFAULT 0,
    cliche_date_order    TEXT NOT NULL DEFAULT '',
    cliche_date_expected TEXT NOT NULL DEFAULT '',
    cliche_date_delivery TEXT NOT NULL DEFAULT '',
    forme_code           TEXT NOT NULL DEFAULT '',
    forme_supplier       TEXT NOT NULL DEFAULT '',
    forme_date_creation  TEXT NOT NULL DEFAULT '',
    forme_is_ordered     INTEGER NOT NULL DEFAULT 0,
    forme_date_order     TEXT NOT NULL DEFAULT '',
    forme_date_expected  TEXT NOT NULL DEFAULT '',
    forme_date_delivery  TEXT NOT NULL DEFAULT '',
    comments             TEXT NOT NULL DEFAULT '',
    non_conformity       TEXT NOT NULL DEFAULT '',
    custom_fields        TEXT NOT NULL DEFAULT '{}',
    created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_machine ON items(machine);
CREATE INDEX IF NOT EXISTS idx_items_cliche_code ON items(cliche_code);
CREATE INDEX IF NOT EXISTS idx_items_forme_code ON items(forme_code);

CREATE TABLE IF NOT EXISTS repairs (
    id                  TEXT PRIMARY KEY,
    type                TEXT NOT NULL CHECK (type IN ('cliche', 'forme')),
    linked_code         TEXT NOT NULL,
    operator            TEXT NOT NULL DEFAULT '',
    machine             TEXT NOT NULL DEFAULT '',
    condition           TEXT NOT NULL CHECK (condition IN ('repair', 'damaged_new', 'design')),
    kind                TEXT NOT NULL CHECK (kind IN ('internal', 'external')),
    supplier            TEXT NOT NULL DEFAULT '',
    declaration_date    TEXT NOT NULL DEFAULT '',
    repair_date         TEXT NOT NULL DEFAULT '',
    problem_description TEXT NOT NULL DEFAULT '',
    corrective_action   TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_repairs_machine ON repairs(machine);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    user_id    INTEGER NOT NULL,
    revoked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires ON revoked_tokens(expires_at);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
