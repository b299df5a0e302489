package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// RecordStats reports how many records of kind T match f and when the most
// recent of them last changed. List handlers fold both into a weak ETag, so
// any create, edit or delete inside the filter changes it. With no matches
// the timestamp is nil.
func RecordStats[T any](ctx context.Context, db *gorm.DB, f RecordFilter) (int64, *time.Time, error) {
	matching := func() *gorm.DB { return f.apply(db.WithContext(ctx).Model(new(T))) }

	var n int64
	if err := matching().Count(&n).Error; err != nil {
		return 0, nil, err
	}
	if n == 0 {
		return 0, nil, nil
	}

	// Ordered read instead of MAX(): SQLite hands MAX back as TEXT.
	var latest struct{ UpdatedAt time.Time }
	if err := matching().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&latest).Error; err != nil {
		return 0, nil, err
	}
	return n, &latest.UpdatedAt, nil
}
