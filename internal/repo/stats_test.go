package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-mdt-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestRecordStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := RecordStats[domain.Arrest](context.Background(), db, RecordFilter{})
	if err == nil {
		t.Fatalf("expected error due to missing arrests table")
	}
}

func TestRecordStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Arrest{})
	count, maxAt, err := RecordStats[domain.Arrest](context.Background(), db, RecordFilter{CitizenID: 42})
	if err != nil {
		t.Fatalf("RecordStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestRecordStats_Success_FilterAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Report{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for citizen 42
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)   // other citizen

	seed := []*domain.Report{
		{CitizenID: 42, OfficerID: 1, Title: "a", Content: "x", Kind: "incident", Status: "open", CreatedAt: t1, UpdatedAt: t1},
		{CitizenID: 42, OfficerID: 1, Title: "b", Content: "x", Kind: "incident", Status: "closed", CreatedAt: t2, UpdatedAt: t2},
		{CitizenID: 7, OfficerID: 1, Title: "c", Content: "x", Kind: "incident", Status: "open", CreatedAt: t3, UpdatedAt: t3},
	}
	for _, r := range seed {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, maxAt, err := RecordStats[domain.Report](context.Background(), db, RecordFilter{CitizenID: 42})
	if err != nil {
		t.Fatalf("RecordStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected maxUpdatedAt %v, got %v", t2, maxAt)
	}

	count, _, err = RecordStats[domain.Report](context.Background(), db, RecordFilter{Status: "open"})
	if err != nil || count != 2 {
		t.Fatalf("status filter: count=%d err=%v", count, err)
	}
}

// Force the second query (SELECT updated_at ...) to fail by renaming the column.
func TestRecordStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newTestDB(t, &domain.WantedPerson{})

	if err := db.Create(&domain.WantedPerson{CitizenID: 9, OfficerID: 1, Reason: "r", Danger: 2, Status: "active"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Exec(`ALTER TABLE wanted_persons RENAME COLUMN updated_at TO updated_at_old`).Error; err != nil {
		t.Fatalf("rename column: %v", err)
	}

	_, _, err := RecordStats[domain.WantedPerson](context.Background(), db, RecordFilter{CitizenID: 9})
	if err == nil {
		t.Fatalf("expected error from latest-updated select after column rename")
	}
}
