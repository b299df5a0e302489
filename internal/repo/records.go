// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides generic CRUD functions shared by the
// citizen-bound records: arrests, reports, wanted persons, weapon licenses
// and notes.
//
// Like the rest of the package these are thin: no validation, no side
// effects. A missing row surfaces as ErrNotFound.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique constraint violation.
var ErrDuplicate = errors.New("duplicate")

// immutableColumns are never written by UpdateRecord. citizen_id in
// particular is fixed at creation.
var immutableColumns = []string{"id", "citizen_id", "officer_id", "created_at", "deleted_at"}

// RecordFilter narrows list queries. Zero fields are ignored.
type RecordFilter struct {
	CitizenID int64
	OfficerID uint
	Status    string
}

func (f RecordFilter) apply(q *gorm.DB) *gorm.DB {
	if f.CitizenID != 0 {
		q = q.Where("citizen_id = ?", f.CitizenID)
	}
	if f.OfficerID != 0 {
		q = q.Where("officer_id = ?", f.OfficerID)
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		q = q.Where("status = ?", s)
	}
	return q
}

// CreateRecord inserts rec.
func CreateRecord[T any](ctx context.Context, db *gorm.DB, rec *T) error {
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetRecord fetches a record by primary key.
func GetRecord[T any](ctx context.Context, db *gorm.DB, id uint) (*T, error) {
	var out T
	if err := db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// CountRecords returns the number of records matching f.
func CountRecords[T any](ctx context.Context, db *gorm.DB, f RecordFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(new(T))).Count(&total).Error
	return total, err
}

// ListRecordsPage returns a page of records matching f, newest first.
func ListRecordsPage[T any](ctx context.Context, db *gorm.DB, f RecordFilter, offset, limit int) ([]T, error) {
	var out []T
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListByCitizen returns every record referencing citizenID, newest first.
func ListByCitizen[T any](ctx context.Context, db *gorm.DB, citizenID int64) ([]T, error) {
	out := []T{}
	err := db.WithContext(ctx).
		Where("citizen_id = ?", citizenID).
		Order("created_at desc").
		Order("id desc").
		Find(&out).Error
	return out, err
}

// UpdateRecord applies fields to the record with the given id. Immutable
// columns are dropped from fields. Returns ErrNotFound when no row matched.
func UpdateRecord[T any](ctx context.Context, db *gorm.DB, id uint, fields map[string]any) error {
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		clean[k] = v
	}
	for _, col := range immutableColumns {
		delete(clean, col)
	}
	if len(clean) == 0 {
		// Nothing to write; still report a missing row.
		_, err := GetRecord[T](ctx, db, id)
		return err
	}
	res := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(clean)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRecord soft-deletes the record with the given id.
func DeleteRecord[T any](ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation recognizes unique violations across drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}
