package citizens

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-mdt-backend/internal/domain"
)

// Resolver looks citizens up by numeric ID. A missing citizen is reported as
// a nil *domain.Citizen, not as an error; errors mean the game store failed.
type Resolver interface {
	ResolveOne(ctx context.Context, id int64) (*domain.Citizen, error)
	// ResolveMany returns the citizens found for ids, keyed by ID. Missing
	// IDs are absent from the map.
	ResolveMany(ctx context.Context, ids []int64) (map[int64]*domain.Citizen, error)
}

// Lookup is the part of Repository a RepositoryResolver needs.
type Lookup interface {
	GetByID(ctx context.Context, numericID int64) (*domain.Citizen, error)
}

// DefaultParallelism bounds concurrent lookups in ResolveMany.
const DefaultParallelism = 4

// RepositoryResolver resolves citizens through a Lookup, one query per
// distinct ID.
type RepositoryResolver struct {
	Repo        Lookup
	Parallelism int
}

// NewResolver returns a RepositoryResolver with the default parallelism.
func NewResolver(repo Lookup) *RepositoryResolver {
	return &RepositoryResolver{Repo: repo, Parallelism: DefaultParallelism}
}

func (r *RepositoryResolver) ResolveOne(ctx context.Context, id int64) (*domain.Citizen, error) {
	if id <= 0 {
		return nil, nil
	}
	c, err := r.Repo.GetByID(ctx, id)
	if errors.Is(err, ErrCitizenNotFound) {
		return nil, nil
	}
	return c, err
}

func (r *RepositoryResolver) ResolveMany(ctx context.Context, ids []int64) (map[int64]*domain.Citizen, error) {
	uniq := distinct(ids)
	out := make(map[int64]*domain.Citizen, len(uniq))
	if len(uniq) == 0 {
		return out, nil
	}

	limit := r.Parallelism
	if limit <= 0 {
		limit = DefaultParallelism
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range uniq {
		id := id
		g.Go(func() error {
			c, err := r.ResolveOne(gctx, id)
			if err != nil || c == nil {
				return err
			}
			mu.Lock()
			out[id] = c
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Aggregated is a primary store entity with its citizen attached. It
// marshals as the entity's own fields plus a "citizen" key, which is null
// when the citizen could not be resolved.
type Aggregated[T domain.CitizenRef] struct {
	Entity  T
	Citizen *domain.Citizen
}

func (a Aggregated[T]) MarshalJSON() ([]byte, error) {
	ent, err := json.Marshal(a.Entity)
	if err != nil {
		return nil, err
	}
	cit, err := json.Marshal(a.Citizen)
	if err != nil {
		return nil, err
	}

	ent = bytes.TrimSpace(ent)
	if len(ent) < 2 || ent[0] != '{' {
		return json.Marshal(struct {
			Entity  json.RawMessage `json:"entity"`
			Citizen json.RawMessage `json:"citizen"`
		}{ent, cit})
	}

	var buf bytes.Buffer
	buf.Grow(len(ent) + len(cit) + 12)
	buf.Write(ent[:len(ent)-1])
	if len(bytes.TrimSpace(ent[1:len(ent)-1])) > 0 {
		buf.WriteByte(',')
	}
	buf.WriteString(`"citizen":`)
	buf.Write(cit)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Attach resolves the citizen referenced by e. On a resolver error the
// entity is still returned, with a nil citizen, alongside the error.
func Attach[T domain.CitizenRef](ctx context.Context, r Resolver, e T) (Aggregated[T], error) {
	out := Aggregated[T]{Entity: e}
	c, err := r.ResolveOne(ctx, e.CitizenRef())
	if err != nil {
		return out, err
	}
	out.Citizen = c
	return out, nil
}

// AttachAll resolves the citizens for every entity with one lookup per
// distinct citizen ID. The output keeps the input order. On a resolver error
// every citizen is nil and the error is returned.
func AttachAll[T domain.CitizenRef](ctx context.Context, r Resolver, es []T) ([]Aggregated[T], error) {
	out := make([]Aggregated[T], len(es))
	ids := make([]int64, len(es))
	for i, e := range es {
		out[i].Entity = e
		ids[i] = e.CitizenRef()
	}
	uniq := distinct(ids)
	if len(uniq) == 0 {
		return out, nil
	}
	found, err := r.ResolveMany(ctx, uniq)
	if err != nil {
		return out, err
	}
	for i := range out {
		out[i].Citizen = found[ids[i]]
	}
	return out, nil
}

// distinct returns the positive IDs of ids once each, in first-seen order.
func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
