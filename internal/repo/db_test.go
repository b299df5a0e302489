package repo

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/domain"
)

func openTempStore(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "mdt.db"), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestOpen_RejectsBadTargets(t *testing.T) {
	cases := []struct {
		name, driver, path, dsn string
	}{
		{"unknown driver", "oracle", "", ""},
		{"empty postgres dsn", "postgres", "", "  "},
		{"missing sqlite dir", "sqlite", filepath.Join(t.TempDir(), "gone", "mdt.db"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if db, err := Open(tc.driver, tc.path, tc.dsn); err == nil || db != nil {
				t.Fatalf("Open = %v, %v; want error", db, err)
			}
		})
	}
}

func TestOpenSQLite_Tuning(t *testing.T) {
	db := openTempStore(t)

	pragmas := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
	}
	for _, p := range pragmas {
		var got string
		if err := db.Raw("PRAGMA " + p.name).Row().Scan(&got); err != nil {
			t.Fatalf("PRAGMA %s: %v", p.name, err)
		}
		if strings.ToLower(got) != p.want {
			t.Fatalf("PRAGMA %s = %q; want %q", p.name, got, p.want)
		}
	}

	sqlDB, _ := db.DB()
	if n := sqlDB.Stats().MaxOpenConnections; n != 10 {
		t.Fatalf("MaxOpenConnections = %d", n)
	}
}

func TestAutoMigrate_RecordSchemaUsable(t *testing.T) {
	db := openTempStore(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	// Running twice must be harmless; serve migrates on every start.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("second AutoMigrate: %v", err)
	}

	m := db.Migrator()
	for _, tbl := range []any{
		&domain.Officer{}, &domain.Arrest{}, &domain.Report{}, &domain.WantedPerson{},
		&domain.WeaponLicense{}, &domain.CitizenNote{}, &domain.APIToken{}, &domain.Idempotency{},
	} {
		if !m.HasTable(tbl) {
			t.Fatalf("no table for %T", tbl)
		}
	}

	off := &domain.Officer{Username: "sgt.hale", PasswordHash: "x", DisplayName: "Sgt. Hale", Role: domain.RoleOfficer}
	if err := db.Create(off).Error; err != nil {
		t.Fatalf("insert officer: %v", err)
	}
	arr := &domain.Arrest{CitizenID: 42, OfficerID: off.ID, Charges: "grand theft auto", Status: "open"}
	if err := db.Create(arr).Error; err != nil {
		t.Fatalf("insert arrest: %v", err)
	}
	now := time.Now().UTC()
	idem := &domain.Idempotency{ID: "i1", Key: "k1", OfficerID: "1", Scope: "/arrests", ResourceID: arr.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(idem).Error; err != nil {
		t.Fatalf("insert idempotency: %v", err)
	}

	var got domain.Arrest
	if err := db.First(&got, arr.ID).Error; err != nil || got.CitizenID != 42 || got.OfficerID != off.ID {
		t.Fatalf("readback = %+v (%v)", got, err)
	}
}
