package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const EventCheckoutCompleted = "CheckoutCompleted"

var (
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrSessionNotOpen     = errors.New("checkout session is already resolved")
	ErrSessionStatusOpen  = errors.New("cannot resolve a session to OPEN")
	errNilSessionArgument = errors.New("session must not be nil")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a domain event waiting to be published.
type OutboxEvent struct {
	ID          int
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

type Repo interface {
	CreateSession(ctx context.Context, s *domain.CheckoutSession) error
	GetSession(ctx context.Context, id string) (*domain.CheckoutSession, error)
	ResolveSession(ctx context.Context, id string, status domain.CheckoutSessionStatus, response string, event []byte) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
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

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) CreateSession(ctx context.Context, s *domain.CheckoutSession) error {
	if s == nil {
		return errNilSessionArgument
	}
	query := `
		INSERT INTO checkout_sessions (id, principal, url, status, total_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.Principal, s.URL, domain.CheckoutSessionOpen, s.TotalCents, s.Currency,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert checkout session: %w", err)
	}
	s.Status = domain.CheckoutSessionOpen
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	query := `
		SELECT id, principal, url, status, response, total_cents, currency, created_at, completed_at
		FROM checkout_sessions
		WHERE id = $1
	`
	var (
		s           domain.CheckoutSession
		principal   sql.NullString
		response    sql.NullString
		completedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &principal, &s.URL, &s.Status, &response,
		&s.TotalCents, &s.Currency, &s.CreatedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}

	if principal.Valid {
		s.Principal = &principal.String
	}
	if response.Valid {
		s.Response = &response.String
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	return &s, nil
}

// ResolveSession moves an OPEN session to a terminal status. When event is
// non-nil it is written to the outbox in the same transaction.
func (r *Repository) ResolveSession(ctx context.Context, id string, status domain.CheckoutSessionStatus, response string, event []byte) error {
	if !status.IsTerminal() {
		return ErrSessionStatusOpen
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE checkout_sessions
		SET status = $2, response = $3, completed_at = NOW()
		WHERE id = $1 AND status = $4
	`, id, status, response, domain.CheckoutSessionOpen)
	if err != nil {
		return fmt.Errorf("failed to update checkout session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM checkout_sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check checkout session: %w", err)
		}
		if !exists {
			return ErrSessionNotFound
		}
		return ErrSessionNotOpen
	}

	if event != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO outbox_events (aggregate_id, event_type, payload)
			VALUES ($1, $2, $3)
		`, id, EventCheckoutCompleted, string(event))
		if err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		e := &OutboxEvent{}
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return nil
}
