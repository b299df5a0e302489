package domain

import "time"

// Idempotency records the resource produced by a previously processed create
// request, keyed by (officer_id, scope, key). Scope is the route that created
// the resource (e.g. "/api/v1/arrests"). A retried request with the same key
// gets the original resource back without re-running side effects.
type Idempotency struct {
	ID         string    `gorm:"size:36;primaryKey"`
	OfficerID  string    `gorm:"size:64;not null;uniqueIndex:ux_officer_scope_key,priority:1"`
	Scope      string    `gorm:"size:255;not null;uniqueIndex:ux_officer_scope_key,priority:2"`
	Key        string    `gorm:"size:200;not null;uniqueIndex:ux_officer_scope_key,priority:3"`
	ResourceID uint      `gorm:"not null"`
	Status     int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
