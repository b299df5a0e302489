package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/notify"
	"github.com/tbourn/go-mdt-backend/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// mapResolver resolves citizens from a map, or fails with err.
type mapResolver struct {
	citizens map[int64]*domain.Citizen
	err      error
}

func (m *mapResolver) ResolveOne(_ context.Context, id int64) (*domain.Citizen, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.citizens[id], nil
}

func (m *mapResolver) ResolveMany(_ context.Context, ids []int64) (map[int64]*domain.Citizen, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := map[int64]*domain.Citizen{}
	for _, id := range ids {
		if c, ok := m.citizens[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func strp(s string) *string { return &s }

func johnDoe() *mapResolver {
	return &mapResolver{citizens: map[int64]*domain.Citizen{
		42: {NumericID: 42, Identifier: "char1:0000002a11", Firstname: strp("John"), Lastname: strp("Doe")},
	}}
}

// recorder captures notifications and broadcasts.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	names  []string
}

func (r *recorder) Notify(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Publish(_ context.Context, name string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recorder) effects() Effects { return Effects{Notifier: r, Publisher: r} }

func (r *recorder) snapshot() ([]notify.Event, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...), append([]string(nil), r.names...)
}

var sgtAdams = auth.Principal{OfficerID: 7, Username: "adams", DisplayName: "Sgt. Adams", Role: domain.RoleOfficer}
