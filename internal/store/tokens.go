package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken records a logged out token until it would have expired anyway.
// Revoking the same id twice is a no-op.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, userID int64, expiresAt time.Time) error {
	_, err := dbx(db).NamedExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, user_id, expires_at)
		 VALUES (:jti, :user_id, :expires_at)`,
		map[string]any{"jti": jti, "user_id": userID, "expires_at": expiresAt.UTC()},
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the token id was logged out.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var revoked bool
	err := dbx(db).GetContext(ctx, &revoked,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}

// PurgeRevokedTokens drops revocations of tokens that expired before now
// and returns how many were removed.
func PurgeRevokedTokens(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	return res.RowsAffected()
}
