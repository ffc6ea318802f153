package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wertchat/app/config"
	"wertchat/app/service/quote"

	"github.com/samber/do"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	id             TEXT PRIMARY KEY,
	number         TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	customer_name  TEXT NOT NULL DEFAULT '',
	customer_email TEXT NOT NULL DEFAULT '',
	net_total      INTEGER NOT NULL,
	vat_amount     INTEGER NOT NULL,
	gross_total    INTEGER NOT NULL,
	created_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS quote_items (
	id              TEXT PRIMARY KEY,
	quote_id        TEXT NOT NULL REFERENCES quotes(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	service         TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	estimated_hours REAL,
	complexity      TEXT NOT NULL DEFAULT '',
	price           INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quote_access_tokens (
	token      TEXT PRIMARY KEY,
	quote_id   TEXT NOT NULL REFERENCES quotes(id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id         TEXT PRIMARY KEY,
	quote_id   TEXT NOT NULL REFERENCES quotes(id),
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	phone          TEXT NOT NULL DEFAULT '',
	company        TEXT NOT NULL DEFAULT '',
	topic          TEXT NOT NULL DEFAULT '',
	preferred_date TEXT NOT NULL DEFAULT '',
	message        TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
`

// Service persists saved quotes, their access tokens and booking requests in
// a local SQLite database.
type Service struct {
	db *sql.DB
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return Open(cfg.DB.Path)
}

func Open(path string) (*Service, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0755)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// the driver serializes writes anyway, a single connection avoids
	// SQLITE_BUSY on concurrent transactions
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Service{db: db}, nil
}

// SaveQuote inserts the quote, its items and its access token atomically.
func (s *Service) SaveQuote(ctx context.Context, rec QuoteRecord, token AccessToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO quotes (id, number, title, status, customer_name, customer_email, net_total, vat_amount, gross_total, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Number, rec.Title, rec.Status, rec.CustomerName, rec.CustomerEmail,
		rec.NetTotal, rec.VATAmount, rec.GrossTotal, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}

	for i, item := range rec.Items {
		var hours sql.NullFloat64
		if item.EstimatedHours != nil {
			hours = sql.NullFloat64{Float64: *item.EstimatedHours, Valid: true}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO quote_items (id, quote_id, position, service, description, estimated_hours, complexity, price)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, rec.ID, i, item.Service, item.Description, hours, item.Complexity, item.Price)
		if err != nil {
			return fmt.Errorf("failed to insert quote item: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO quote_access_tokens (token, quote_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token.Token, rec.ID, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert access token: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quote: %w", err)
	}

	return nil
}

func (s *Service) GetQuote(ctx context.Context, id string) (QuoteRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, number, title, status, customer_name, customer_email, net_total, vat_amount, gross_total, created_at
		 FROM quotes WHERE id = ?`, id)

	return s.scanQuote(ctx, row)
}

// GetQuoteByToken resolves an unexpired access token to its quote.
func (s *Service) GetQuoteByToken(ctx context.Context, token string) (QuoteRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT q.id, q.number, q.title, q.status, q.customer_name, q.customer_email, q.net_total, q.vat_amount, q.gross_total, q.created_at
		 FROM quotes q
		 JOIN quote_access_tokens t ON t.quote_id = q.id
		 WHERE t.token = ? AND t.expires_at > ?`, token, time.Now())

	return s.scanQuote(ctx, row)
}

func (s *Service) ListQuotes(ctx context.Context) ([]QuoteRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, title, status, customer_name, customer_email, net_total, vat_amount, gross_total, created_at
		 FROM quotes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	result := make([]QuoteRecord, 0)
	for rows.Next() {
		var rec QuoteRecord
		if err = rows.Scan(&rec.ID, &rec.Number, &rec.Title, &rec.Status, &rec.CustomerName, &rec.CustomerEmail,
			&rec.NetTotal, &rec.VATAmount, &rec.GrossTotal, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}

		result = append(result, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}

	for i := range result {
		if result[i].Items, err = s.quoteItems(ctx, result[i].ID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// CreateBooking records the booking and flips the quote to booked atomically.
func (s *Service) CreateBooking(ctx context.Context, rec BookingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE quotes SET status = ? WHERE id = ?`, QuoteStatusBooked, rec.QuoteID)
	if err != nil {
		return fmt.Errorf("failed to update quote status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("quote %s: %w", rec.QuoteID, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, quote_id, name, email, phone, company, topic, preferred_date, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.QuoteID, rec.Name, rec.Email, rec.Phone, rec.Company,
		rec.Topic, rec.PreferredDate, rec.Message, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	return nil
}

func (s *Service) scanQuote(ctx context.Context, row *sql.Row) (QuoteRecord, error) {
	var rec QuoteRecord

	err := row.Scan(&rec.ID, &rec.Number, &rec.Title, &rec.Status, &rec.CustomerName, &rec.CustomerEmail,
		&rec.NetTotal, &rec.VATAmount, &rec.GrossTotal, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return QuoteRecord{}, ErrNotFound
	}
	if err != nil {
		return QuoteRecord{}, fmt.Errorf("failed to scan quote: %w", err)
	}

	if rec.Items, err = s.quoteItems(ctx, rec.ID); err != nil {
		return QuoteRecord{}, err
	}

	return rec, nil
}

func (s *Service) quoteItems(ctx context.Context, quoteID string) ([]quote.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, service, description, estimated_hours, complexity, price
		 FROM quote_items WHERE quote_id = ? ORDER BY position`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote items: %w", err)
	}
	defer rows.Close()

	items := make([]quote.Item, 0)
	for rows.Next() {
		var item quote.Item
		var hours sql.NullFloat64

		if err = rows.Scan(&item.ID, &item.Service, &item.Description, &hours, &item.Complexity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}

		if hours.Valid {
			v := hours.Float64
			item.EstimatedHours = &v
		}

		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quote items: %w", err)
	}

	return items, nil
}

func (s *Service) Shutdown() error {
	return s.db.Close()
}
