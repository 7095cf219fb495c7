package comms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/leadloop/leadloop/internal/db"
)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const commColumns = `id, customer_id, type, content, status, metadata, sent_at, created_at`

func (s *PostgresStore) Insert(ctx context.Context, input CreateInput) (Communication, error) {
	pgCustomerID, err := dbpkg.ParseUUID(input.CustomerID)
	if err != nil {
		return Communication{}, fmt.Errorf("invalid customer id: %w", err)
	}
	metadata, err := json.Marshal(input.Metadata)
	if err != nil {
		return Communication{}, fmt.Errorf("marshal metadata: %w", err)
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO communications (customer_id, type, content, status, metadata, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+commColumns,
		pgCustomerID, string(input.Type), input.Content, string(input.Status), metadata,
		pgtype.Timestamptz{Time: input.SentAt, Valid: true})
	return scanCommunication(row)
}

func (s *PostgresStore) ListByCustomer(ctx context.Context, customerID string) ([]Communication, error) {
	pgCustomerID, err := dbpkg.ParseUUID(customerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+commColumns+` FROM communications WHERE customer_id = $1 ORDER BY sent_at DESC`,
		pgCustomerID)
	if err != nil {
		return nil, fmt.Errorf("list communications: %w", err)
	}
	defer rows.Close()

	comms := make([]Communication, 0)
	for rows.Next() {
		c, err := scanCommunication(rows)
		if err != nil {
			return nil, err
		}
		comms = append(comms, c)
	}
	return comms, rows.Err()
}

func scanCommunication(row pgx.Row) (Communication, error) {
	var (
		c          Communication
		id         pgtype.UUID
		customerID pgtype.UUID
		channel    string
		status     string
		metadata   []byte
		sentAt     pgtype.Timestamptz
		createdAt  pgtype.Timestamptz
	)
	err := row.Scan(&id, &customerID, &channel, &c.Content, &status, &metadata, &sentAt, &createdAt)
	if err != nil {
		return Communication{}, fmt.Errorf("scan communication: %w", err)
	}
	c.ID = id.String()
	c.CustomerID = customerID.String()
	c.Type = Channel(channel)
	c.Status = Status(status)
	c.SentAt = sentAt.Time
	c.CreatedAt = createdAt.Time
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			slog.Warn("communication metadata unmarshal failed", slog.String("id", c.ID), slog.Any("error", err))
		}
	}
	return c, nil
}
