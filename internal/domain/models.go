// Package domain defines the persistence models for officers and the records
// they file against citizens: arrests, reports, wanted persons, weapon
// licenses and notes. These types are mapped with GORM and form the core data
// layer of the MDT backend.
//
// Records reference citizens by CitizenID, the numeric ID derived from the
// game database identifier (see package identity). It is not a relational
// foreign key: citizens live in a different database and are attached at
// read time.
package domain

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Officer roles.
const (
	RoleOfficer    = "officer"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// Record kinds, shared with notifications and broadcast event names.
const (
	KindArrest        = "arrest"
	KindReport        = "report"
	KindWanted        = "wanted"
	KindWeaponLicense = "weapon_license"
	KindNote          = "note"
	KindOperator      = "operator"
)

// ErrInvalidRecord wraps every validation failure returned by Validate.
var ErrInvalidRecord = errors.New("invalid record")

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// ValidationError describes a single invalid field. It matches
// ErrInvalidRecord with errors.Is.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string        { return e.Msg }
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRecord }

// CitizenRef is implemented by every record that points at a citizen.
type CitizenRef interface {
	CitizenRef() int64
}

// Record is the contract shared by the citizen-bound records handled by the
// generic record service.
type Record interface {
	CitizenRef
	RecordID() uint
	RecordKind() string
	Validate() error
}

// Officer is an MDT account.
//
// Fields:
//   - Username: unique login name.
//   - PasswordHash: bcrypt hash; never serialized.
//   - Role: officer, supervisor or admin.
//   - Active: inactive officers cannot log in.
type Officer struct {
	ID           uint           `json:"id"           gorm:"primaryKey"`
	Username     string         `json:"username"     gorm:"type:varchar(64);not null;uniqueIndex"`
	PasswordHash string         `json:"-"            gorm:"type:varchar(100);not null"`
	DisplayName  string         `json:"display_name" gorm:"type:varchar(128);not null"`
	Badge        string         `json:"badge"        gorm:"type:varchar(32)"`
	Rank         string         `json:"rank"         gorm:"type:varchar(64)"`
	Role         string         `json:"role"         gorm:"type:varchar(16);not null;default:'officer'"`
	Active       bool           `json:"active"       gorm:"not null;default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Officer.
func (Officer) TableName() string { return "officers" }

// Arrest is a booking filed by an officer against a citizen.
type Arrest struct {
	ID          uint           `json:"id"           gorm:"primaryKey"`
	CitizenID   int64          `json:"citizen_id"   gorm:"not null;index"`
	OfficerID   uint           `json:"officer_id"   gorm:"not null;index"`
	Charges     string         `json:"charges"      gorm:"type:text;not null"`
	Description string         `json:"description"  gorm:"type:text"`
	Fine        int            `json:"fine"         gorm:"not null;default:0"`
	JailMinutes int            `json:"jail_minutes" gorm:"not null;default:0"`
	Status      string         `json:"status"       gorm:"type:varchar(16);not null;default:'open';index"`
	Notes       string         `json:"notes"        gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"   gorm:"index"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

func (Arrest) TableName() string   { return "arrests" }
func (a Arrest) CitizenRef() int64 { return a.CitizenID }
func (a Arrest) RecordID() uint    { return a.ID }
func (Arrest) RecordKind() string  { return KindArrest }

// Validate checks required fields and enumerations.
func (a Arrest) Validate() error {
	switch {
	case a.CitizenID <= 0:
		return invalid("citizen_id is required")
	case strings.TrimSpace(a.Charges) == "":
		return invalid("charges are required")
	case a.Fine < 0 || a.JailMinutes < 0:
		return invalid("fine and jail_minutes must be >= 0")
	}
	return oneOf("status", a.Status, "open", "processed", "released")
}

// Report is an incident report or a denunciation concerning a citizen.
type Report struct {
	ID        uint           `json:"id"         gorm:"primaryKey"`
	CitizenID int64          `json:"citizen_id" gorm:"not null;index"`
	OfficerID uint           `json:"officer_id" gorm:"not null;index"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null"`
	Content   string         `json:"content"    gorm:"type:text;not null"`
	Kind      string         `json:"kind"       gorm:"type:varchar(16);not null;default:'incident'"`
	Status    string         `json:"status"     gorm:"type:varchar(16);not null;default:'open';index"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

func (Report) TableName() string   { return "reports" }
func (r Report) CitizenRef() int64 { return r.CitizenID }
func (r Report) RecordID() uint    { return r.ID }
func (Report) RecordKind() string  { return KindReport }

func (r Report) Validate() error {
	switch {
	case r.CitizenID <= 0:
		return invalid("citizen_id is required")
	case strings.TrimSpace(r.Title) == "":
		return invalid("title is required")
	case strings.TrimSpace(r.Content) == "":
		return invalid("content is required")
	}
	if err := oneOf("kind", r.Kind, "incident", "denunciation", "investigation"); err != nil {
		return err
	}
	return oneOf("status", r.Status, "open", "closed", "archived")
}

// WantedPerson flags a citizen as wanted. Danger ranges from 1 to 5.
type WantedPerson struct {
	ID        uint           `json:"id"         gorm:"primaryKey"`
	CitizenID int64          `json:"citizen_id" gorm:"not null;index"`
	OfficerID uint           `json:"officer_id" gorm:"not null;index"`
	Reason    string         `json:"reason"     gorm:"type:text;not null"`
	Danger    int            `json:"danger"     gorm:"not null;default:1"`
	Status    string         `json:"status"     gorm:"type:varchar(16);not null;default:'active';index"`
	Notes     string         `json:"notes"      gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

func (WantedPerson) TableName() string   { return "wanted_persons" }
func (w WantedPerson) CitizenRef() int64 { return w.CitizenID }
func (w WantedPerson) RecordID() uint    { return w.ID }
func (WantedPerson) RecordKind() string  { return KindWanted }

func (w WantedPerson) Validate() error {
	switch {
	case w.CitizenID <= 0:
		return invalid("citizen_id is required")
	case strings.TrimSpace(w.Reason) == "":
		return invalid("reason is required")
	case w.Danger < 1 || w.Danger > 5:
		return invalid("danger must be between 1 and 5")
	}
	return oneOf("status", w.Status, "active", "captured", "removed")
}

// WeaponLicense is a firearm permit issued to a citizen.
type WeaponLicense struct {
	ID        uint           `json:"id"                   gorm:"primaryKey"`
	CitizenID int64          `json:"citizen_id"           gorm:"not null;index"`
	OfficerID uint           `json:"officer_id"           gorm:"not null;index"`
	Kind      string         `json:"kind"                 gorm:"type:varchar(16);not null"`
	Status    string         `json:"status"               gorm:"type:varchar(16);not null;default:'valid';index"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Notes     string         `json:"notes"                gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"           gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"                    gorm:"index"`
}

func (WeaponLicense) TableName() string   { return "weapon_licenses" }
func (l WeaponLicense) CitizenRef() int64 { return l.CitizenID }
func (l WeaponLicense) RecordID() uint    { return l.ID }
func (WeaponLicense) RecordKind() string  { return KindWeaponLicense }

func (l WeaponLicense) Validate() error {
	if l.CitizenID <= 0 {
		return invalid("citizen_id is required")
	}
	if err := oneOf("kind", l.Kind, "pistol", "rifle", "hunting", "security"); err != nil {
		return err
	}
	return oneOf("status", l.Status, "valid", "suspended", "revoked", "expired")
}

// CitizenNote is a free-form note attached to a citizen.
type CitizenNote struct {
	ID        uint           `json:"id"         gorm:"primaryKey"`
	CitizenID int64          `json:"citizen_id" gorm:"not null;index"`
	OfficerID uint           `json:"officer_id" gorm:"not null;index"`
	Content   string         `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

func (CitizenNote) TableName() string   { return "citizen_notes" }
func (n CitizenNote) CitizenRef() int64 { return n.CitizenID }

// APIToken authenticates the bot integration surface. Only the SHA-256 hash
// of the token is stored.
type APIToken struct {
	ID         uint       `json:"id"                     gorm:"primaryKey"`
	Name       string     `json:"name"                   gorm:"type:varchar(64);not null"`
	TokenHash  string     `json:"-"                      gorm:"type:char(64);not null;uniqueIndex"`
	CreatedBy  uint       `json:"created_by"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (APIToken) TableName() string { return "api_tokens" }

// oneOf validates an enumerated field. Empty values are accepted; the
// column default applies on insert.
func oneOf(field, v string, allowed ...string) error {
	if v == "" {
		return nil
	}
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return invalid(field + " must be one of: " + strings.Join(allowed, ", "))
}
