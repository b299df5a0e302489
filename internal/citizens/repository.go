package citizens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/identity"
	"github.com/tbourn/go-mdt-backend/internal/utils"
)

// ErrCitizenNotFound is returned when no game row derives the requested ID
// or carries the requested identifier.
var ErrCitizenNotFound = errors.New("citizen not found")

// DefaultTable is the character table of the usual game server schema.
const DefaultTable = "users"

// fullWidth is the smallest ID whose hex form fills the whole 8 character
// window. Smaller IDs are also derived from shorter hex runs.
const fullWidth = 0x10000000

// columns selected from the game table; the blobs are returned untouched.
var columns = []string{
	"identifier", "firstname", "lastname", "dateofbirth", "sex", "nationality",
	"phone_number", "height", "inventory", "position", "metadata", "accounts", "skin",
}

// Filter narrows a citizen search. Each substring is matched against first
// and last name; a row matches when any substring does. No substrings means
// no filtering.
type Filter struct {
	Substrings []string
}

// Page is one page of search results plus the total number of matches.
type Page struct {
	Items []domain.Citizen
	Total int64
}

// Options tunes a Repository. The zero value issues exactly one attempt per
// call, with no deadline, and resolves short IDs by their padded window only.
type Options struct {
	// Table is the game character table. Defaults to DefaultTable.
	Table string
	// Retries is the number of extra attempts after a failed query.
	Retries int
	// RetryBase is the first backoff interval. Defaults to 100ms.
	RetryBase time.Duration
	// Timeout bounds each attempt; 0 means no deadline.
	Timeout time.Duration
	// FullScan lets GetByID consider rows whose hash part is a short hex
	// run, which needs an unindexed scan of the table.
	FullScan bool
	Logger   zerolog.Logger
}

// Repository reads citizens from the game database.
type Repository struct {
	db   *gorm.DB
	opts Options
}

// NewRepository wraps a game database handle.
func NewRepository(db *gorm.DB, opts Options) *Repository {
	if strings.TrimSpace(opts.Table) == "" {
		opts.Table = DefaultTable
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 100 * time.Millisecond
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Repository{db: db, opts: opts}
}

// row is the game table projection.
type row struct {
	Identifier  string  `gorm:"column:identifier"`
	Firstname   *string `gorm:"column:firstname"`
	Lastname    *string `gorm:"column:lastname"`
	DateOfBirth *string `gorm:"column:dateofbirth"`
	Sex         *string `gorm:"column:sex"`
	Nationality *string `gorm:"column:nationality"`
	Phone       *string `gorm:"column:phone_number"`
	Height      *int    `gorm:"column:height"`
	Inventory   *string `gorm:"column:inventory"`
	Position    *string `gorm:"column:position"`
	Metadata    *string `gorm:"column:metadata"`
	Accounts    *string `gorm:"column:accounts"`
	Skin        *string `gorm:"column:skin"`
}

func (r row) citizen() domain.Citizen {
	return domain.Citizen{
		NumericID:   identity.DeriveNumericID(r.Identifier),
		Identifier:  r.Identifier,
		Firstname:   r.Firstname,
		Lastname:    r.Lastname,
		DateOfBirth: r.DateOfBirth,
		Sex:         r.Sex,
		Nationality: r.Nationality,
		Phone:       r.Phone,
		Height:      r.Height,
		Inventory:   rawJSON(r.Inventory),
		Position:    rawJSON(r.Position),
		Metadata:    rawJSON(r.Metadata),
		Accounts:    rawJSON(r.Accounts),
		Skin:        rawJSON(r.Skin),
	}
}

// rawJSON passes a blob through as JSON. Blobs that are not valid JSON are
// carried as a JSON string.
func rawJSON(s *string) json.RawMessage {
	if s == nil || *s == "" {
		return nil
	}
	if json.Valid([]byte(*s)) {
		return json.RawMessage(*s)
	}
	b, _ := json.Marshal(*s)
	return b
}

func (r *Repository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.opts.Table).Select(columns)
}

// Search returns one page of citizens whose first or last name contains any
// of the filter substrings, ordered by last name. The count and the page are
// fetched concurrently.
func (r *Repository) Search(ctx context.Context, f Filter, page, pageSize int) (Page, error) {
	ctx, span := otel.Tracer("citizens/Repository").Start(ctx, "Search",
		trace.WithAttributes(
			attribute.Int("search.terms", len(f.Substrings)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	_, pageSize, offset := utils.Window(page, pageSize)

	var out Page
	err := r.do(ctx, "search", func(ctx context.Context) error {
		var (
			total int64
			rows  []row
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return applyFilter(r.db.WithContext(gctx).Table(r.opts.Table), f).Count(&total).Error
		})
		g.Go(func() error {
			return applyFilter(r.table(gctx), f).
				Order("lastname ASC").
				Offset(offset).
				Limit(pageSize).
				Find(&rows).Error
		})
		if err := g.Wait(); err != nil {
			return err
		}
		items := make([]domain.Citizen, 0, len(rows))
		for _, rw := range rows {
			items = append(items, rw.citizen())
		}
		out = Page{Items: items, Total: total}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return Page{}, err
	}
	return out, nil
}

// GetByID returns the citizen whose identifier derives numericID. When more
// than one row derives it, the first in the store's natural order wins and
// the collision is logged and counted.
//
// IDs of 0x10000000 and up are only derived from their full 8 character hex
// window, so the candidate query is complete. Smaller IDs are also derived
// from short runs ("char3:ff" derives 255); without FullScan only rows
// carrying the zero-padded window are considered. IDs <= 0 are never found.
func (r *Repository) GetByID(ctx context.Context, numericID int64) (*domain.Citizen, error) {
	if numericID <= 0 || identity.HashPrefix(numericID) == "" {
		return nil, ErrCitizenNotFound
	}
	ctx, span := otel.Tracer("citizens/Repository").Start(ctx, "GetByID",
		trace.WithAttributes(attribute.Int64("citizen.id", numericID)),
	)
	defer span.End()

	var found *domain.Citizen
	err := r.do(ctx, "get_by_id", func(ctx context.Context) error {
		var err error
		found, err = r.lookup(r.candidates(ctx, numericID), numericID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if found == nil {
		return nil, ErrCitizenNotFound
	}
	return found, nil
}

// GetByIdentifier returns the citizen stored under the exact identifier.
func (r *Repository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Citizen, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrCitizenNotFound
	}
	var rows []row
	err := r.do(ctx, "get_by_identifier", func(ctx context.Context) error {
		return r.table(ctx).Where("identifier = ?", identifier).Limit(1).Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrCitizenNotFound
	}
	c := rows[0].citizen()
	return &c, nil
}

// candidates selects every row that may derive numericID, with no ORDER BY
// so rows come back in the store's natural order. Identifiers are matched
// lowercased since uppercase hex derives the same ID.
func (r *Repository) candidates(ctx context.Context, numericID int64) *gorm.DB {
	if r.opts.FullScan && numericID < fullWidth {
		// Any deriving hash part is zeros followed by the minimal hex form.
		return r.table(ctx).Where("LOWER(identifier) LIKE ?", "%"+strconv.FormatInt(numericID, 16)+"%")
	}
	prefix := identity.HashPrefix(numericID)
	return r.table(ctx).Where("LOWER(identifier) LIKE ? OR LOWER(identifier) LIKE ?", "%:"+prefix+"%", prefix+"%")
}

// lookup streams the candidates, re-derives each and keeps the first match.
// Every candidate is visited so aliases are seen.
func (r *Repository) lookup(q *gorm.DB, numericID int64) (*domain.Citizen, error) {
	rows, err := q.Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		match   *domain.Citizen
		aliases []string
		visited int
	)
	for rows.Next() {
		var rw row
		if err := r.db.ScanRows(rows, &rw); err != nil {
			return nil, err
		}
		visited++
		if identity.DeriveNumericID(rw.Identifier) != numericID {
			continue
		}
		aliases = append(aliases, rw.Identifier)
		if match == nil {
			c := rw.citizen()
			match = &c
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	scanRows.Observe(float64(visited))

	if len(aliases) > 1 {
		idCollisions.Inc()
		r.opts.Logger.Warn().
			Int64("citizen_id", numericID).
			Strs("identifiers", aliases).
			Msg("citizen id collision; returning first row")
	}
	return match, nil
}

// do runs fn with the configured per-attempt deadline and retry policy.
// Failures after the parent context ends are not retried.
func (r *Repository) do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempt := func() error {
		actx, cancel := ctx, context.CancelFunc(func() {})
		if r.opts.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		}
		defer cancel()

		err := fn(actx)
		if err == nil {
			return nil
		}
		lookupFailures.WithLabelValues(op).Inc()
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if r.opts.Retries > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = r.opts.RetryBase
		eb.MaxInterval = 20 * r.opts.RetryBase
		eb.MaxElapsedTime = 0
		policy = backoff.WithMaxRetries(eb, uint64(r.opts.Retries))
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		r.opts.Logger.Warn().Err(err).Str("op", op).Dur("retry_in", wait).Msg("game store query failed; retrying")
	})
	if err != nil {
		return fmt.Errorf("citizens: %s: %w", op, err)
	}
	return nil
}

// applyFilter adds the OR-ed name filter. Matching is case-insensitive on
// every driver, in line with the case-folded cache key. '!' is the LIKE
// escape character, which MySQL, Postgres and SQLite all accept.
func applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	conds := make([]string, 0, len(f.Substrings))
	args := make([]any, 0, 2*len(f.Substrings))
	for _, s := range f.Substrings {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		p := "%" + escapeLike(strings.ToLower(s)) + "%"
		conds = append(conds, "LOWER(firstname) LIKE ? ESCAPE '!' OR LOWER(lastname) LIKE ? ESCAPE '!'")
		args = append(args, p, p)
	}
	if len(conds) == 0 {
		return q
	}
	return q.Where(strings.Join(conds, " OR "), args...)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string { return likeEscaper.Replace(s) }
