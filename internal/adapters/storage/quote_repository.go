package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

// Operation names used in errors, logs and metrics.
const (
	opCreate    = "create_quote"
	opList      = "list_quotes"
	opGetByID   = "get_quote"
	opGetRandom = "random_quote"
)

const (
	selectQuotes = `SELECT id, quote, author, created_at, updated_at FROM quotes`

	insertQuote = `INSERT INTO quotes (id, quote, author, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	searchFilter = ` WHERE %[1]s(quote) LIKE ? ESCAPE '!' OR %[1]s(author) LIKE ? ESCAPE '!'`

	newestFirst = ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	countQuotes = `SELECT COUNT(*) FROM quotes`

	quoteAtOffset = selectQuotes + ` ORDER BY id LIMIT 1 OFFSET ?`
)

// timestampLayout is fixed width so text comparison matches time order.
const timestampLayout = "2006-01-02 15:04:05.000000"

// Compile-time interface check.
var _ ports.QuoteRepository = (*QuoteRepository)(nil)

// QuoteRepository implements ports.QuoteRepository on the shared pool.
type QuoteRepository struct {
	db     *DB
	search string
}

// NewQuoteRepository creates a repository backed by db.
func NewQuoteRepository(db *DB) *QuoteRepository {
	lower := "LOWER"
	if db.Driver() == DriverSQLite {
		lower = sqliteLower
	}

	return &QuoteRepository{db: db, search: fmt.Sprintf(searchFilter, lower)}
}

// Create inserts quote. ID and timestamps must already be set. Both
// timestamps are first truncated in place to what the table stores, so the
// caller holds exactly what a later read returns.
func (r *QuoteRepository) Create(ctx context.Context, quote *domain.Quote) (err error) {
	defer func(start time.Time) { r.observe(ctx, opCreate, start, err) }(time.Now())

	quote.CreatedAt = quote.CreatedAt.Truncate(r.db.precision)
	quote.UpdatedAt = quote.UpdatedAt.Truncate(r.db.precision)

	var author sql.NullString
	if quote.Author != nil {
		author = sql.NullString{String: *quote.Author, Valid: true}
	}

	err = r.db.withConn(ctx, func(conn *sql.Conn) error {
		_, execErr := conn.ExecContext(ctx, insertQuote,
			quote.ID,
			quote.Text,
			author,
			formatTimestamp(quote.CreatedAt),
			formatTimestamp(quote.UpdatedAt),
		)

		return execErr
	})

	return wrapError(opCreate, err)
}

// List returns one page of quotes, newest first.
func (r *QuoteRepository) List(ctx context.Context, params domain.ListParams) (quotes []*domain.Quote, err error) {
	defer func(start time.Time) { r.observe(ctx, opList, start, err) }(time.Now())

	query := selectQuotes
	args := make([]any, 0, 4)

	if params.HasSearch() {
		pattern := "%" + escapeLike(strings.ToLower(params.Search)) + "%"
		query += r.search
		args = append(args, pattern, pattern)
	}

	query += newestFirst
	args = append(args, params.Limit, params.Offset())

	quotes = make([]*domain.Quote, 0, params.Limit)

	err = r.db.withConn(ctx, func(conn *sql.Conn) error {
		rows, queryErr := conn.QueryContext(ctx, query, args...)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		for rows.Next() {
			quote, scanErr := scanQuote(rows)
			if scanErr != nil {
				return scanErr
			}

			quotes = append(quotes, quote)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, wrapError(opList, err)
	}

	return quotes, nil
}

// GetByID returns the quote with the given id.
func (r *QuoteRepository) GetByID(ctx context.Context, id string) (quote *domain.Quote, err error) {
	defer func(start time.Time) { r.observe(ctx, opGetByID, start, err) }(time.Now())

	err = r.db.withConn(ctx, func(conn *sql.Conn) error {
		var scanErr error

		quote, scanErr = scanQuote(conn.QueryRowContext(ctx, selectQuotes+` WHERE id = ?`, id))

		return scanErr
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError(domain.QuoteEntity, id)
	}

	if err != nil {
		return nil, wrapError(opGetByID, err)
	}

	return quote, nil
}

// GetRandom returns a uniformly chosen quote.
// Both reads run on the same connection.
func (r *QuoteRepository) GetRandom(ctx context.Context) (quote *domain.Quote, err error) {
	defer func(start time.Time) { r.observe(ctx, opGetRandom, start, err) }(time.Now())

	err = r.db.withConn(ctx, func(conn *sql.Conn) error {
		var count int64
		if countErr := conn.QueryRowContext(ctx, countQuotes).Scan(&count); countErr != nil {
			return countErr
		}

		if count == 0 {
			return sql.ErrNoRows
		}

		var scanErr error

		quote, scanErr = scanQuote(conn.QueryRowContext(ctx, quoteAtOffset, rand.Int64N(count)))

		return scanErr
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError(domain.QuoteEntity, "")
	}

	if err != nil {
		return nil, wrapError(opGetRandom, err)
	}

	return quote, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*domain.Quote, error) {
	var (
		id, text           string
		author             sql.NullString
		createdAt, updated timestamp
	)

	if err := row.Scan(&id, &text, &author, &createdAt, &updated); err != nil {
		return nil, err
	}

	quote := &domain.Quote{
		ID:        id,
		Text:      text,
		CreatedAt: createdAt.Time,
		UpdatedAt: updated.Time,
	}

	if author.Valid {
		quote.Author = &author.String
	}

	return quote, nil
}

// wrapError converts driver failures into StorageError.
// Domain errors such as UnavailableError pass through unchanged.
func wrapError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if domain.IsUnavailable(err) || domain.IsNotFound(err) || domain.IsStorage(err) {
		return err
	}

	return domain.NewStorageError(operation, err)
}

// escapeLike escapes LIKE wildcards using '!' as the escape character.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func formatTimestamp(t time.Time) string {
	return domain.NormalizeTimestamp(t).Format(timestampLayout)
}

// timestamp scans DATETIME columns from either driver.
// MySQL with parseTime yields time.Time; SQLite may yield text.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Scan implements sql.Scanner.
func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = domain.NormalizeTimestamp(v)
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = domain.NormalizeTimestamp(parsed)
			return nil
		}
	}

	return fmt.Errorf("unrecognized timestamp %q", s)
}
