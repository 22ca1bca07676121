package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo stores refresh token hashes.
type TokenRepo struct{ db *sql.DB }

// NewTokenRepo returns a refresh token store over db.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh saves the hash of a new refresh token valid until exp.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		userID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns the owner of a live token. Unknown, revoked and
// expired tokens all yield ErrTokenRevoked.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revoked   bool
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked FROM refresh_tokens WHERE token_hash = ?",
		tokenHash).Scan(&userID, &expiresAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrTokenRevoked
	}
	if err != nil {
		return 0, err
	}
	if revoked || time.Now().UTC().After(expiresAt) {
		return 0, ErrTokenRevoked
	}
	return userID, nil
}

// RevokeByHash revokes one refresh token.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE refresh_tokens SET revoked = ? WHERE token_hash = ?", true, tokenHash)
	return err
}

// RevokeAllForUser revokes every refresh token of userID.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE refresh_tokens SET revoked = ? WHERE user_id = ?", true, userID)
	return err
}
