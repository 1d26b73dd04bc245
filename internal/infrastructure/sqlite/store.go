// Package sqlite provides SQLite-backed persistence for offers and their price history.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pricelens/backend/internal/domain"
)

// Store wraps a SQLite database holding offers and price observations.
type Store struct {
	db *sql.DB
}

// New opens or creates the SQLite database at path.
// ":memory:" opens a private in-memory database.
func New(path string) (*Store, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "pricelens", "data.db")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS offers (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			price        REAL NOT NULL DEFAULT 0,
			currency     TEXT NOT NULL DEFAULT '',
			marketplace  TEXT NOT NULL DEFAULT 'unknown',
			is_available INTEGER NOT NULL DEFAULT 1,
			url          TEXT NOT NULL DEFAULT '',
			image_url    TEXT NOT NULL DEFAULT '',
			category     TEXT NOT NULL DEFAULT '',
			sku          TEXT NOT NULL DEFAULT '',
			ean          TEXT NOT NULL DEFAULT '',
			upc          TEXT NOT NULL DEFAULT '',
			updated_at   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			product_id  TEXT NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
			observed_at INTEGER NOT NULL,
			price       REAL NOT NULL,
			currency    TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history(product_id, observed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_observed_at ON price_history(observed_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveOffer inserts or replaces an offer.
func (s *Store) SaveOffer(ctx context.Context, o domain.Offer) error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("%w: offer id is required", domain.ErrInvalidRequest)
	}
	marketplace := o.Marketplace
	if marketplace == "" {
		marketplace = domain.MarketplaceUnknown
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO offers
			(id, title, price, currency, marketplace, is_available, url, image_url,
			 category, sku, ean, upc, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, price=excluded.price, currency=excluded.currency,
			marketplace=excluded.marketplace, is_available=excluded.is_available,
			url=excluded.url, image_url=excluded.image_url, category=excluded.category,
			sku=excluded.sku, ean=excluded.ean, upc=excluded.upc, updated_at=excluded.updated_at`,
		o.ID, o.Title, o.Price, o.Currency, string(marketplace), boolToInt(o.IsAvailable),
		o.URL, o.ImageURL, o.Category, o.SKU, o.EAN, o.UPC, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save offer: %w", err)
	}
	return nil
}

// AddObservation records a price observation for an existing offer.
func (s *Store) AddObservation(ctx context.Context, productID string, obs domain.PriceObservation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_history (product_id, observed_at, price, currency) VALUES (?,?,?,?)`,
		productID, obs.Timestamp.UnixNano(), obs.Price, obs.Currency,
	)
	if err != nil {
		return fmt.Errorf("failed to add observation: %w", err)
	}
	return nil
}

const offerColumns = `id, title, price, currency, marketplace, is_available, url, image_url, category, sku, ean, upc`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner, o *domain.Offer) error {
	var marketplace string
	var available int
	if err := row.Scan(&o.ID, &o.Title, &o.Price, &o.Currency, &marketplace, &available,
		&o.URL, &o.ImageURL, &o.Category, &o.SKU, &o.EAN, &o.UPC); err != nil {
		return err
	}
	o.Marketplace = domain.ParseMarketplace(marketplace)
	o.IsAvailable = available != 0
	return nil
}

// GetOffer returns the offer with the given id or domain.ErrProductNotFound.
func (s *Store) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = ?`, id)

	var o domain.Offer
	if err := scanOffer(row, &o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return &o, nil
}

// ListOffers returns offers whose title contains any word of query,
// in insertion order. An empty query lists every offer.
func (s *Store) ListOffers(ctx context.Context, query string, limit int) ([]domain.Offer, error) {
	var (
		where []string
		args  []any
	)
	for _, word := range strings.Fields(strings.ToLower(query)) {
		where = append(where, `lower(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(word)+"%")
	}

	stmt := `SELECT ` + offerColumns + ` FROM offers`
	if len(where) > 0 {
		stmt += ` WHERE ` + strings.Join(where, ` OR `)
	}
	stmt += ` ORDER BY rowid`
	if limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	var offers []domain.Offer
	for rows.Next() {
		var o domain.Offer
		if err := scanOffer(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// History returns the observations of a product at or after since, oldest first.
func (s *Store) History(ctx context.Context, productID string, since time.Time) ([]domain.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT observed_at, price, currency FROM price_history
		WHERE product_id = ? AND observed_at >= ?
		ORDER BY observed_at, rowid`,
		productID, since.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var series []domain.PriceObservation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		series = append(series, obs)
	}
	return series, rows.Err()
}

// TrackedProducts returns up to limit products observed at or after since,
// ordered by id, each with its observations since then.
func (s *Store) TrackedProducts(ctx context.Context, since time.Time, limit int) ([]domain.TrackedProduct, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.title, o.marketplace, o.currency, o.url, o.image_url,
		       h.observed_at, h.price, h.currency
		FROM offers o
		JOIN price_history h ON h.product_id = o.id
		WHERE h.observed_at >= ?1
		  AND o.id IN (
			SELECT DISTINCT product_id FROM price_history
			WHERE observed_at >= ?1
			ORDER BY product_id LIMIT ?2
		  )
		ORDER BY o.id, h.observed_at, h.rowid`,
		since.UnixNano(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked products: %w", err)
	}
	defer rows.Close()

	var products []domain.TrackedProduct
	for rows.Next() {
		var (
			p           domain.TrackedProduct
			marketplace string
			observedAt  int64
			obs         domain.PriceObservation
		)
		if err := rows.Scan(&p.ID, &p.Name, &marketplace, &p.Currency, &p.URL, &p.ImageURL,
			&observedAt, &obs.Price, &obs.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan tracked product: %w", err)
		}
		obs.Timestamp = time.Unix(0, observedAt).UTC()

		if n := len(products); n == 0 || products[n-1].ID != p.ID {
			p.Marketplace = domain.ParseMarketplace(marketplace)
			products = append(products, p)
		}
		last := &products[len(products)-1]
		last.History = append(last.History, obs)
	}
	return products, rows.Err()
}

func scanObservation(row rowScanner) (domain.PriceObservation, error) {
	var (
		obs        domain.PriceObservation
		observedAt int64
	)
	if err := row.Scan(&observedAt, &obs.Price, &obs.Currency); err != nil {
		return obs, fmt.Errorf("failed to scan observation: %w", err)
	}
	obs.Timestamp = time.Unix(0, observedAt).UTC()
	return obs, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
