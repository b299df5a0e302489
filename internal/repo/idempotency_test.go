package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-mdt-backend/internal/domain"
)

func TestGetIdempotency_BlankScopeOrKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	if rec, err := GetIdempotency(context.Background(), db, "1", "   ", "k1", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank scope, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "1", "/arrests", "", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank key, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID:        "expired",
		OfficerID: "1",
		Scope:     "/arrests",
		Key:       "k1",
		Status:    201,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	rec, err := GetIdempotency(context.Background(), db, "1", "/arrests", "k1", now)
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	rec2, err2 := GetIdempotency(context.Background(), db, "1", "/arrests", "missing", now)
	if rec2 != nil || err2 != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec2, err2)
	}
}

func TestGetIdempotency_Success_ScopedPerOfficerAndRoute(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	ok := &domain.Idempotency{
		ID:         "ok",
		OfficerID:  "1",
		Scope:      "/reports",
		Key:        "k2",
		ResourceID: 17,
		Status:     201,
		CreatedAt:  now.Add(-time.Minute),
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := db.Create(ok).Error; err != nil {
		t.Fatalf("seed ok: %v", err)
	}

	rec, err := GetIdempotency(context.Background(), db, "1", "/reports", "k2", now)
	if err != nil {
		t.Fatalf("GetIdempotency success err: %v", err)
	}
	if rec == nil || rec.ResourceID != 17 || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if _, err := GetIdempotency(context.Background(), db, "2", "/reports", "k2", now); err != ErrNotFound {
		t.Fatalf("other officer must not see the record, got %v", err)
	}
	if _, err := GetIdempotency(context.Background(), db, "1", "/arrests", "k2", now); err != ErrNotFound {
		t.Fatalf("other scope must not see the record, got %v", err)
	}
}

func TestCreateIdempotency_SuccessAndDuplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})

	ttl := 90 * time.Minute
	start := time.Now().UTC()

	rec, err := CreateIdempotency(context.Background(), db, "9", "/arrests", "k9", 99, 201, ttl)
	if err != nil {
		t.Fatalf("CreateIdempotency error: %v", err)
	}
	if rec == nil || rec.ID == "" || rec.OfficerID != "9" || rec.Scope != "/arrests" || rec.Key != "k9" || rec.ResourceID != 99 || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	// Loose bound to avoid timing flakes.
	if !(rec.ExpiresAt.After(start) && rec.ExpiresAt.Before(start.Add(2*time.Hour))) {
		t.Fatalf("unexpected ExpiresAt: %v", rec.ExpiresAt)
	}

	_, err2 := CreateIdempotency(context.Background(), db, "9", "/arrests", "k9", 100, 201, ttl)
	if err2 != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err2)
	}
}

// Generic DB error path: attempt insert without migrating the table.
func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newTestDB(t) // intentionally NOT migrating idempotency
	_, err := CreateIdempotency(context.Background(), db, "1", "/arrests", "kX", 1, 201, time.Minute)
	if err == nil {
		t.Fatalf("expected error when table is missing")
	}
	if err == ErrDuplicate {
		t.Fatalf("expected non-duplicate error, got ErrDuplicate")
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	seed := []domain.Idempotency{
		{ID: "a", OfficerID: "1", Scope: "/s", Key: "a", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)},
		{ID: "b", OfficerID: "1", Scope: "/s", Key: "b", CreatedAt: now, ExpiresAt: now.Add(time.Minute)},
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	n, err := PurgeExpiredIdempotency(context.Background(), db, now)
	if err != nil || n != 1 {
		t.Fatalf("purged %d (err=%v); want 1", n, err)
	}
}

func TestCreateIdempotency_ReplacesExpiredKey(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	stale := &domain.Idempotency{
		ID: "stale", OfficerID: "4", Scope: "/wanted", Key: "w-1", ResourceID: 3, Status: 201,
		CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour),
	}
	if err := db.Create(stale).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec, err := CreateIdempotency(context.Background(), db, "4", "/wanted", "w-1", 8, 201, time.Hour)
	if err != nil {
		t.Fatalf("reuse of expired key: %v", err)
	}
	got, err := GetIdempotency(context.Background(), db, "4", "/wanted", "w-1", time.Now().UTC())
	if err != nil || got.ID != rec.ID || got.ResourceID != 8 {
		t.Fatalf("live record = %+v (%v)", got, err)
	}
	var n int64
	db.Model(&domain.Idempotency{}).Where("id = ?", "stale").Count(&n)
	if n != 0 {
		t.Fatal("expired record not replaced")
	}
}
