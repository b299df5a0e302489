// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for officer
// accounts.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/domain"
)

// CreateOfficer inserts o. A taken username yields ErrDuplicate.
func CreateOfficer(ctx context.Context, db *gorm.DB, o *domain.Officer) error {
	return CreateRecord(ctx, db, o)
}

// GetOfficer fetches an officer by ID.
func GetOfficer(ctx context.Context, db *gorm.DB, id uint) (*domain.Officer, error) {
	return GetRecord[domain.Officer](ctx, db, id)
}

// GetOfficerByUsername fetches an officer by login name (case-insensitive).
func GetOfficerByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.Officer, error) {
	var o domain.Officer
	err := db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CountOfficers returns the number of officer accounts.
func CountOfficers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Officer{}).Count(&total).Error
	return total, err
}

// ListOfficersPage returns a page of officers ordered by username.
func ListOfficersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Officer, error) {
	var out []domain.Officer
	err := db.WithContext(ctx).
		Order("username asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateOfficer applies fields to the officer with the given id.
func UpdateOfficer(ctx context.Context, db *gorm.DB, id uint, fields map[string]any) error {
	delete(fields, "username")
	return UpdateRecord[domain.Officer](ctx, db, id, fields)
}
