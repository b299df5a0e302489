// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for bot API
// tokens. Only token hashes are stored.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/domain"
)

// CreateToken inserts t.
func CreateToken(ctx context.Context, db *gorm.DB, t *domain.APIToken) error {
	return CreateRecord(ctx, db, t)
}

// GetActiveTokenByHash returns the unrevoked token with the given hash or
// ErrNotFound.
func GetActiveTokenByHash(ctx context.Context, db *gorm.DB, hash string) (*domain.APIToken, error) {
	var t domain.APIToken
	err := db.WithContext(ctx).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTokens returns every token, newest first.
func ListTokens(ctx context.Context, db *gorm.DB) ([]domain.APIToken, error) {
	out := []domain.APIToken{}
	err := db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&out).Error
	return out, err
}

// TouchToken records a use of the token.
func TouchToken(ctx context.Context, db *gorm.DB, id uint, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.APIToken{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// RevokeToken marks the token revoked. Revoking twice, or a missing token,
// returns ErrNotFound.
func RevokeToken(ctx context.Context, db *gorm.DB, id uint, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.APIToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
