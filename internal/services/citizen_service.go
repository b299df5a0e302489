// Package services – CitizenService
//
// CitizenService serves citizen search and profile reads from the game
// database. Search results are cached as encoded JSON per normalized
// (query, page, limit); concurrent misses for the same key share one
// upstream query.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/citizens"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/repo"
	"github.com/tbourn/go-mdt-backend/internal/search"
)

// CitizenStore is the game store contract required by CitizenService.
type CitizenStore interface {
	Search(ctx context.Context, f citizens.Filter, page, pageSize int) (citizens.Page, error)
	GetByID(ctx context.Context, numericID int64) (*domain.Citizen, error)
}

// SearchResult is the cached body of a citizen search.
type SearchResult struct {
	Citizens []domain.Citizen `json:"citizens"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

// CitizenRecords is everything filed against one citizen.
type CitizenRecords struct {
	Citizen  *domain.Citizen        `json:"citizen"`
	Arrests  []domain.Arrest        `json:"arrests"`
	Reports  []domain.Report        `json:"reports"`
	Wanted   []domain.WantedPerson  `json:"wanted"`
	Licenses []domain.WeaponLicense `json:"licenses"`
	Notes    []domain.CitizenNote   `json:"notes"`
}

// CitizenService reads citizens and their records.
type CitizenService struct {
	Store CitizenStore
	DB    *gorm.DB
	Cache *search.Cache

	group singleflight.Group
}

// NewCitizenService wires a CitizenService. cache may be nil.
func NewCitizenService(store CitizenStore, db *gorm.DB, cache *search.Cache) *CitizenService {
	return &CitizenService{Store: store, DB: db, Cache: cache}
}

// Search returns the encoded SearchResult for q. hit reports whether it was
// served from the cache. Up to search.MaxTerms distinct words of q are
// matched against first and last names, any of them matching.
func (s *CitizenService) Search(ctx context.Context, q string, page, limit int) (body []byte, hit bool, err error) {
	ctx, span := otel.Tracer("services/CitizenService").Start(ctx, "Search",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	key := search.NewKey(q, page, limit)
	if s.Cache != nil {
		if b, ok := s.Cache.Get(key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return b, true, nil
		}
	}

	// The shared fetch outlives any single caller; the repository applies its
	// own lookup deadline. Each caller still stops waiting when its ctx ends.
	sfKey := fmt.Sprintf("%s\x00%d\x00%d", key.Query, key.Page, key.Limit)
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(sfKey, func() (any, error) {
		res, err := s.Store.Search(fetchCtx, citizens.Filter{Substrings: search.Terms(q)}, page, limit)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(SearchResult{Citizens: res.Items, Total: res.Total, Page: page, Limit: limit})
		if err != nil {
			return nil, err
		}
		if s.Cache != nil {
			s.Cache.Put(key, b)
		}
		return b, nil
	})
	select {
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return nil, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			span.RecordError(r.Err)
			return nil, false, r.Err
		}
		return r.Val.([]byte), false, nil
	}
}

// PurgeCache empties the search cache and returns how many entries were
// dropped.
func (s *CitizenService) PurgeCache() int {
	if s.Cache == nil {
		return 0
	}
	return s.Cache.Purge()
}

// Get returns the citizen with the given numeric ID or ErrCitizenNotFound.
func (s *CitizenService) Get(ctx context.Context, id int64) (*domain.Citizen, error) {
	ctx, span := otel.Tracer("services/CitizenService").Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("citizen.id", id)),
	)
	defer span.End()

	c, err := s.Store.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, citizens.ErrCitizenNotFound) {
			span.RecordError(err)
		}
		return nil, err
	}
	return c, nil
}

// Records returns the citizen and every record filed against it. The five
// record lists are loaded concurrently.
func (s *CitizenService) Records(ctx context.Context, id int64) (*CitizenRecords, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &CitizenRecords{Citizen: c}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Arrests, err = repo.ListByCitizen[domain.Arrest](gctx, s.DB, id)
		return err
	})
	g.Go(func() (err error) {
		out.Reports, err = repo.ListByCitizen[domain.Report](gctx, s.DB, id)
		return err
	})
	g.Go(func() (err error) {
		out.Wanted, err = repo.ListByCitizen[domain.WantedPerson](gctx, s.DB, id)
		return err
	})
	g.Go(func() (err error) {
		out.Licenses, err = repo.ListByCitizen[domain.WeaponLicense](gctx, s.DB, id)
		return err
	})
	g.Go(func() (err error) {
		out.Notes, err = repo.ListByCitizen[domain.CitizenNote](gctx, s.DB, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
