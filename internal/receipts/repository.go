package receipts

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"

	EventOrderPlaced = "OrderPlaced"
)

var (
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrInvalidStatus   = errors.New("invalid order status")
)

type Receipt struct {
	OrderID     string             `json:"orderId"`
	OwnerKey    string             `json:"-"`
	CustomerID  string             `json:"-"`
	PaymentInfo domain.PaymentInfo `json:"paymentInfo"`
	SubTotal    decimal.Decimal    `json:"subTotal"`
	Discount    decimal.Decimal    `json:"discount"`
	Shipping    decimal.Decimal    `json:"shipping"`
	Total       decimal.Decimal    `json:"total"`
	PlacedAt    time.Time          `json:"placedAt"`
	Lines       []Line             `json:"lines"`
}

type Line struct {
	TrackingNumber string             `json:"trackingNumber"`
	ProductID      string             `json:"productId"`
	Quantity       int                `json:"quantity"`
	Status         domain.OrderStatus `json:"status"`
	Total          decimal.Decimal    `json:"total"`
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// OrderPlacedEvent is the payload of an OrderPlaced outbox event.
type OrderPlacedEvent struct {
	OrderID         string             `json:"orderId"`
	CustomerID      string             `json:"customerId,omitempty"`
	TrackingNumbers []string           `json:"trackingNumbers"`
	PaymentInfo     domain.PaymentInfo `json:"paymentInfo"`
	Total           decimal.Decimal    `json:"total"`
	PlacedAt        time.Time          `json:"placedAt"`
}

type Repository struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// DialectFor picks the database dialect from a DSN: postgres URLs and keyword DSNs go to
// postgres, anything else is treated as a sqlite path.
func DialectFor(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"),
		strings.HasPrefix(dsn, "host="):
		return DialectPostgres
	default:
		return DialectSQLite
	}
}

// Open connects to the receipts database named by dsn.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	dialect := DialectFor(dsn)
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == DialectSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	return NewRepository(db, dialect), nil
}

func NewRepository(db *sql.DB, dialect string) *Repository {
	return &Repository{db: db, dialect: dialect, now: time.Now}
}

// RunMigrations applies the embedded migrations for the repository's dialect.
func (r *Repository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations/"+r.dialect)
	if err != nil {
		return fmt.Errorf("could not create migration source: %w", err)
	}

	var driver database.Driver
	switch r.dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(r.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, r.dialect, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Record stores the receipt of an accepted order together with its OrderPlaced outbox event.
func (r *Repository) Record(ctx context.Context, p checkout.Placement) error {
	if p.Payload == nil {
		return errors.New("placement has no payload")
	}
	placedAt := p.PlacedAt.UTC()

	event, err := json.Marshal(OrderPlacedEvent{
		OrderID:         p.OrderID,
		CustomerID:      p.Owner.CustomerID,
		TrackingNumbers: p.Payload.TrackingNumbers(),
		PaymentInfo:     p.Payload.PaymentInfo,
		Total:           domain.RoundMoney(p.Payload.TotalAmount),
		PlacedAt:        placedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order placed event: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	totals := p.Totals.Rounded()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO receipts (order_id, owner_key, customer_id, payment_info, sub_total, discount, shipping, total, placed_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.OrderID, p.Owner.Key(), p.Owner.CustomerID, string(p.Payload.PaymentInfo),
		totals.SubTotal.StringFixed(2), totals.Discount.StringFixed(2), totals.Shipping.Value.StringFixed(2),
		domain.RoundMoney(p.Payload.TotalAmount).StringFixed(2), placedAt)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}

	for _, l := range p.Payload.OrderInfo {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO receipt_lines (tracking_number, order_id, product_id, quantity, status, line_total)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			l.TrackingNumber, p.OrderID, l.ProductInfo, l.Quantity, string(l.Status),
			domain.RoundMoney(l.TotalAmount.Total).StringFixed(2))
		if err != nil {
			return fmt.Errorf("failed to insert receipt line %s: %w", l.TrackingNumber, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4)`,
		p.OrderID, EventOrderPlaced, string(event), placedAt)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit receipt: %w", err)
	}
	return nil
}

// FindByTracking returns the receipt that owns the given tracking number.
func (r *Repository) FindByTracking(ctx context.Context, tracking string) (*Receipt, error) {
	var orderID string
	err := r.db.QueryRowContext(ctx,
		`SELECT order_id FROM receipt_lines WHERE tracking_number = $1`, tracking).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up tracking number: %w", err)
	}
	return r.Get(ctx, orderID)
}

func (r *Repository) Get(ctx context.Context, orderID string) (*Receipt, error) {
	var (
		rc      Receipt
		payment string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT order_id, owner_key, customer_id, payment_info, sub_total, discount, shipping, total, placed_at
         FROM receipts WHERE order_id = $1`, orderID).
		Scan(&rc.OrderID, &rc.OwnerKey, &rc.CustomerID, &payment,
			&rc.SubTotal, &rc.Discount, &rc.Shipping, &rc.Total, &rc.PlacedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	rc.PaymentInfo = domain.PaymentInfo(payment)

	rows, err := r.db.QueryContext(ctx,
		`SELECT tracking_number, product_id, quantity, status, line_total
         FROM receipt_lines WHERE order_id = $1 ORDER BY tracking_number`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l      Line
			status string
		)
		if err := rows.Scan(&l.TrackingNumber, &l.ProductID, &l.Quantity, &status, &l.Total); err != nil {
			return nil, fmt.Errorf("failed to scan receipt line: %w", err)
		}
		l.Status = domain.OrderStatus(status)
		rc.Lines = append(rc.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt lines: %w", err)
	}
	return &rc, nil
}

// UpdateLineStatus sets the status of one line of an order, or of every line when tracking is empty.
func (r *Repository) UpdateLineStatus(ctx context.Context, orderID, tracking string, status domain.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var (
		res sql.Result
		err error
	)
	if tracking == "" {
		res, err = r.db.ExecContext(ctx,
			`UPDATE receipt_lines SET status = $1 WHERE order_id = $2`, string(status), orderID)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE receipt_lines SET status = $1 WHERE order_id = $2 AND tracking_number = $3`,
			string(status), orderID, tracking)
	}
	if err != nil {
		return fmt.Errorf("failed to update line status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrReceiptNotFound
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
         FROM outbox WHERE processed_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			e       OutboxEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET processed_at = $1 WHERE id = $2`, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark event %d as processed: %w", id, err)
	}
	return nil
}
