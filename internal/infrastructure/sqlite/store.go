// Package sqlite persists ingredient records in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pricelens/backend/internal/domain"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort chronologically as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a SQLite-backed domain.PriceStore. Conditional history appends
// run as a single INSERT ... WHERE NOT EXISTS statement.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies migrations
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("[STORE] sqlite %s at schema version %d (dirty=%v)", path, version, dirty)

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// GetLastHistoryEntry returns the newest history entry by timestamp, or nil.
// Entries with equal timestamps are ordered by insertion.
func (s *Store) GetLastHistoryEntry(ctx context.Context, ingredientKey string) (*domain.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT store, price, size, price_per_unit, observed_at
		FROM price_history
		WHERE ingredient_key = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT 1`, ingredientKey)

	entry, err := scanHistoryEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last history entry: %w", err)
	}
	return entry, nil
}

// UpsertLatest merges the non-nil fields onto the stored snapshot. Fields
// flagged for clearing take the new value even when it is NULL.
func (s *Store) UpsertLatest(ctx context.Context, ingredientKey string, fields domain.LatestFields) error {
	var lastUpdated *string
	if fields.LastUpdated != nil {
		v := fields.LastUpdated.UTC().Format(timeLayout)
		lastUpdated = &v
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (
			ingredient_key, title, canonical_name, price, size,
			price_per_unit, product_id, image_url, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ingredient_key) DO UPDATE SET
			title          = COALESCE(excluded.title, ingredients.title),
			canonical_name = COALESCE(excluded.canonical_name, ingredients.canonical_name),
			price          = COALESCE(excluded.price, ingredients.price),
			size           = COALESCE(excluded.size, ingredients.size),
			price_per_unit = CASE WHEN ? THEN excluded.price_per_unit
				ELSE COALESCE(excluded.price_per_unit, ingredients.price_per_unit) END,
			product_id     = CASE WHEN ? THEN excluded.product_id
				ELSE COALESCE(excluded.product_id, ingredients.product_id) END,
			image_url      = CASE WHEN ? THEN excluded.image_url
				ELSE COALESCE(excluded.image_url, ingredients.image_url) END,
			last_updated   = COALESCE(excluded.last_updated, ingredients.last_updated)`,
		ingredientKey, nullable(fields.Title), nullable(fields.CanonicalName), nullable(fields.Price),
		nullable(fields.Size), nullable(fields.PricePerUnit), nullable(fields.ProductID),
		nullable(fields.ImageURL), nullable(lastUpdated),
		fields.ClearPricePerUnit, fields.ClearProductID, fields.ClearImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert latest: %w", err)
	}
	return nil
}

// AppendHistory appends an entry unconditionally
func (s *Store) AppendHistory(ctx context.Context, ingredientKey string, entry domain.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_history (ingredient_key, store, price, price_cents, size, price_per_unit, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ingredientKey, entry.Store, entry.Price, domain.PriceCents(entry.Price), entry.Size,
		nullable(entry.PricePerUnit), entry.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// AppendHistoryIfChanged appends entry unless the newest entry has the same price and size
func (s *Store) AppendHistoryIfChanged(ctx context.Context, ingredientKey string, entry domain.HistoryEntry) (bool, error) {
	cents := domain.PriceCents(entry.Price)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO price_history (ingredient_key, store, price, price_cents, size, price_per_unit, observed_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM (
				SELECT price_cents, size
				FROM price_history
				WHERE ingredient_key = ?
				ORDER BY observed_at DESC, id DESC
				LIMIT 1
			) AS last
			WHERE last.price_cents = ? AND last.size = ?
		)`,
		ingredientKey, entry.Store, entry.Price, cents, entry.Size,
		nullable(entry.PricePerUnit), entry.Timestamp.UTC().Format(timeLayout),
		ingredientKey, cents, entry.Size,
	)
	if err != nil {
		return false, fmt.Errorf("failed to append history: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// GetRecord returns the latest snapshot and the full history, oldest first
func (s *Store) GetRecord(ctx context.Context, ingredientKey string) (*domain.IngredientRecord, error) {
	rec := &domain.IngredientRecord{IngredientKey: ingredientKey}

	latestFound := true
	latest, err := s.getLatest(ctx, ingredientKey)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		latestFound = false
	case err != nil:
		return nil, fmt.Errorf("failed to read latest: %w", err)
	default:
		rec.Latest = *latest
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT store, price, size, price_per_unit, observed_at
		FROM price_history
		WHERE ingredient_key = ?
		ORDER BY observed_at ASC, id ASC`, ingredientKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		rec.PriceHistory = append(rec.PriceHistory, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	if !latestFound && len(rec.PriceHistory) == 0 {
		return nil, domain.ErrRecordNotFound
	}
	return rec, nil
}

// IngredientKeys lists stored keys in order
func (s *Store) IngredientKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ingredient_key FROM ingredients
		UNION
		SELECT ingredient_key FROM price_history
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) getLatest(ctx context.Context, ingredientKey string) (*domain.LatestFields, error) {
	var (
		title, canonicalName, size, productID, imageURL, lastUpdated sql.NullString
		price, pricePerUnit                                          sql.NullFloat64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT title, canonical_name, price, size, price_per_unit, product_id, image_url, last_updated
		FROM ingredients
		WHERE ingredient_key = ?`, ingredientKey,
	).Scan(&title, &canonicalName, &price, &size, &pricePerUnit, &productID, &imageURL, &lastUpdated)
	if err != nil {
		return nil, err
	}

	fields := &domain.LatestFields{
		Title:         nullString(title),
		CanonicalName: nullString(canonicalName),
		Price:         nullFloat(price),
		Size:          nullString(size),
		PricePerUnit:  nullFloat(pricePerUnit),
		ProductID:     nullString(productID),
		ImageURL:      nullString(imageURL),
	}
	if lastUpdated.Valid {
		ts, err := time.Parse(timeLayout, lastUpdated.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_updated %q: %w", lastUpdated.String, err)
		}
		fields.LastUpdated = &ts
	}
	return fields, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryEntry(row rowScanner) (*domain.HistoryEntry, error) {
	var (
		entry        domain.HistoryEntry
		pricePerUnit sql.NullFloat64
		observedAt   string
	)
	if err := row.Scan(&entry.Store, &entry.Price, &entry.Size, &pricePerUnit, &observedAt); err != nil {
		return nil, err
	}

	ts, err := time.Parse(timeLayout, observedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid observed_at %q: %w", observedAt, err)
	}
	entry.Timestamp = ts
	entry.PricePerUnit = nullFloat(pricePerUnit)
	return &entry, nil
}

// nullable turns an optional field into a bind value; nil binds NULL
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
