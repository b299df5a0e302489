// Package services – RecordService
//
// RecordService implements the lifecycle shared by every citizen-bound
// record (arrests, reports, wanted persons, weapon licenses): validated
// create with optional idempotency, paged listing, partial update, delete,
// and the read-side aggregation that attaches the citizen from the game
// database.
//
// Writes commit to the primary store first. The citizen is attached
// afterwards; a game store failure at that point is logged and the record is
// returned with a nil citizen. Notifications and broadcasts are fire and
// forget.
package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/citizens"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/notify"
	"github.com/tbourn/go-mdt-backend/internal/repo"
	"github.com/tbourn/go-mdt-backend/internal/utils"
)

// DefaultIdempotencyTTL bounds how long a create can be replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

// Describer renders a notification for a record write. A nil Describer
// disables notifications for the record type.
type Describer[T domain.Record] func(action string, rec T, citizen *domain.Citizen, actor auth.Principal) notify.Event

// RecordService provides CRUD for one record type.
type RecordService[T domain.Record] struct {
	DB       *gorm.DB
	Citizens citizens.Resolver
	Effects  Effects
	Describe Describer[T]

	// IdempotencyTTL defaults to DefaultIdempotencyTTL.
	IdempotencyTTL time.Duration
}

// RecordDeps are the stores every record service reads.
type RecordDeps struct {
	DB       *gorm.DB
	Citizens citizens.Resolver
}

// NewRecordService wires a RecordService.
func NewRecordService[T domain.Record](db *gorm.DB, r citizens.Resolver, fx Effects, describe Describer[T]) *RecordService[T] {
	return &RecordService[T]{
		DB:             db,
		Citizens:       r,
		Effects:        fx,
		Describe:       describe,
		IdempotencyTTL: DefaultIdempotencyTTL,
	}
}

func (s *RecordService[T]) kind() string {
	var zero T
	return zero.RecordKind()
}

func (s *RecordService[T]) tracer() trace.Tracer {
	return otel.Tracer("services/RecordService")
}

// Create validates and inserts rec, then attaches its citizen and fires the
// side effects. The caller sets rec's officer.
func (s *RecordService[T]) Create(ctx context.Context, actor auth.Principal, rec T) (citizens.Aggregated[T], error) {
	ctx, span := s.tracer().Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("record.kind", s.kind()),
			attribute.Int64("citizen.id", rec.CitizenRef()),
		),
	)
	defer span.End()

	if err := rec.Validate(); err != nil {
		return citizens.Aggregated[T]{}, err
	}
	if err := repo.CreateRecord(ctx, s.DB, &rec); err != nil {
		span.RecordError(err)
		return citizens.Aggregated[T]{}, err
	}
	// Re-read so column defaults (status) are reflected.
	stored, err := repo.GetRecord[T](ctx, s.DB, rec.RecordID())
	if err != nil {
		return citizens.Aggregated[T]{}, err
	}

	out := s.attachForWrite(ctx, *stored)
	s.emit(ctx, actionCreated, out, actor)
	return out, nil
}

// CreateIdempotent behaves like Create, except that a repeated key within the
// TTL returns the record created by the first call without side effects.
// replayed reports whether that happened. An empty key disables the check.
func (s *RecordService[T]) CreateIdempotent(ctx context.Context, actor auth.Principal, scope, key string, rec T) (out citizens.Aggregated[T], replayed bool, err error) {
	if key == "" {
		out, err = s.Create(ctx, actor, rec)
		return out, false, err
	}

	owner := actor.IDString()
	if prev, gerr := repo.GetIdempotency(ctx, s.DB, owner, scope, key, time.Now().UTC()); gerr == nil {
		stored, rerr := repo.GetRecord[T](ctx, s.DB, prev.ResourceID)
		if rerr == nil {
			return s.attachForWrite(ctx, *stored), true, nil
		}
		// The record was deleted since; process the request again.
	}

	out, err = s.Create(ctx, actor, rec)
	if err != nil {
		return out, false, err
	}
	if _, ierr := repo.CreateIdempotency(ctx, s.DB, owner, scope, key, out.Entity.RecordID(), 201, s.ttl()); ierr != nil {
		s.Effects.Log.Warn().Err(ierr).Str("scope", scope).Msg("idempotency record not stored")
	}
	return out, false, nil
}

func (s *RecordService[T]) ttl() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return DefaultIdempotencyTTL
}

// Get returns the record with its citizen. A game store failure is returned
// as an error.
func (s *RecordService[T]) Get(ctx context.Context, id uint) (citizens.Aggregated[T], error) {
	ctx, span := s.tracer().Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("record.kind", s.kind()),
			attribute.Int64("record.id", int64(id)),
		),
	)
	defer span.End()

	rec, err := repo.GetRecord[T](ctx, s.DB, id)
	if err != nil {
		return citizens.Aggregated[T]{}, mapNotFound(err)
	}
	out, err := citizens.Attach(ctx, s.Citizens, *rec)
	if err != nil {
		span.RecordError(err)
		return out, err
	}
	return out, nil
}

// ListPage returns a page of records matching f, newest first, each with its
// citizen attached. Invalid page/pageSize fall back to 1 and 20.
func (s *RecordService[T]) ListPage(ctx context.Context, f repo.RecordFilter, page, pageSize int) ([]citizens.Aggregated[T], int64, error) {
	ctx, span := s.tracer().Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("record.kind", s.kind()),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	_, pageSize, offset := utils.Window(page, pageSize)

	total, err := repo.CountRecords[T](ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []citizens.Aggregated[T]{}, 0, nil
	}

	items, err := repo.ListRecordsPage[T](ctx, s.DB, f, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out, err := citizens.AttachAll(ctx, s.Citizens, items)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	return out, total, nil
}

// Stats returns the count and latest update of records matching f, for
// conditional responses.
func (s *RecordService[T]) Stats(ctx context.Context, f repo.RecordFilter) (int64, *time.Time, error) {
	return repo.RecordStats[T](ctx, s.DB, f)
}

// Update applies fields to the record and re-validates the result. Columns
// that are fixed at creation, citizen_id among them, are ignored.
func (s *RecordService[T]) Update(ctx context.Context, actor auth.Principal, id uint, fields map[string]any) (citizens.Aggregated[T], error) {
	ctx, span := s.tracer().Start(ctx, "Update",
		trace.WithAttributes(
			attribute.String("record.kind", s.kind()),
			attribute.Int64("record.id", int64(id)),
		),
	)
	defer span.End()

	var updated *T
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateRecord[T](ctx, tx, id, fields); err != nil {
			return err
		}
		rec, err := repo.GetRecord[T](ctx, tx, id)
		if err != nil {
			return err
		}
		if err := (*rec).Validate(); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return citizens.Aggregated[T]{}, mapNotFound(err)
	}

	out := s.attachForWrite(ctx, *updated)
	s.emit(ctx, actionUpdated, out, actor)
	return out, nil
}

// Delete soft-deletes the record.
func (s *RecordService[T]) Delete(ctx context.Context, actor auth.Principal, id uint) error {
	ctx, span := s.tracer().Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("record.kind", s.kind()),
			attribute.Int64("record.id", int64(id)),
		),
	)
	defer span.End()

	rec, err := repo.GetRecord[T](ctx, s.DB, id)
	if err != nil {
		return mapNotFound(err)
	}
	if err := repo.DeleteRecord[T](ctx, s.DB, id); err != nil {
		return mapNotFound(err)
	}
	s.Effects.publish(ctx, eventName(s.kind(), actionDeleted), map[string]any{
		"id":         id,
		"citizen_id": (*rec).CitizenRef(),
		"officer_id": actor.OfficerID,
	})
	return nil
}

// attachForWrite attaches the citizen after a committed write. A game store
// failure does not fail the write.
func (s *RecordService[T]) attachForWrite(ctx context.Context, rec T) citizens.Aggregated[T] {
	out, err := citizens.Attach(ctx, s.Citizens, rec)
	if err != nil {
		s.Effects.Log.Warn().Err(err).
			Str("kind", s.kind()).
			Uint("record_id", rec.RecordID()).
			Int64("citizen_id", rec.CitizenRef()).
			Msg("citizen lookup failed after write")
		out.Citizen = nil
	}
	return out
}

func (s *RecordService[T]) emit(ctx context.Context, action string, out citizens.Aggregated[T], actor auth.Principal) {
	if s.Describe != nil {
		ev := s.Describe(action, out.Entity, out.Citizen, actor)
		if ev.At.IsZero() {
			ev.At = time.Now().UTC()
		}
		s.Effects.notify(ctx, ev)
	}
	s.Effects.publish(ctx, eventName(s.kind(), action), out)
}

// mapNotFound converts the repository sentinel to ErrNotFound.
func mapNotFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// citizenLabel names a citizen for humans, falling back to the numeric ID.
func citizenLabel(c *domain.Citizen, id int64) string {
	if name := c.FullName(); name != "" {
		return name + " (#" + strconv.FormatInt(id, 10) + ")"
	}
	return "Unknown citizen (#" + strconv.FormatInt(id, 10) + ")"
}
