package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/leadloop/leadloop/internal/db"
	"github.com/leadloop/leadloop/internal/extract"
)

const uniqueViolation = "23505"

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const customerColumns = `id, firstname, lastname, email, phone, status, source, notes, resume_url, resume_data, created_at, updated_at`

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email))
	return scanCustomer(row)
}

// GetByPhone matches on digits only, tolerating stored numbers with and
// without the leading plus.
func (s *PostgresStore) GetByPhone(ctx context.Context, phone string) (Customer, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return Customer{}, ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers
		 WHERE regexp_replace(phone, '[^0-9]', '', 'g') = $1
		 ORDER BY created_at DESC LIMIT 1`, digits)
	return scanCustomer(row)
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Customer, error) {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return Customer{}, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, pgID)
	return scanCustomer(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]Customer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, c Customer) (Customer, error) {
	resumeData, err := marshalResumeData(c.ResumeData)
	if err != nil {
		return Customer{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO customers (firstname, lastname, email, phone, status, source, notes, resume_url, resume_data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+customerColumns,
		c.Firstname, c.Lastname, c.Email, c.Phone, c.Status, c.Source, c.Notes,
		dbpkg.ToPgText(c.ResumeURL), resumeData)
	created, err := scanCustomer(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Customer{}, ErrEmailTaken
		}
		return Customer{}, err
	}
	return created, nil
}

func (s *PostgresStore) Update(ctx context.Context, c Customer) (Customer, error) {
	pgID, err := dbpkg.ParseUUID(c.ID)
	if err != nil {
		return Customer{}, err
	}
	resumeData, err := marshalResumeData(c.ResumeData)
	if err != nil {
		return Customer{}, err
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE customers
		 SET firstname = $2, lastname = $3, phone = $4, status = $5, source = $6,
		     notes = $7, resume_url = $8, resume_data = $9, updated_at = now()
		 WHERE id = $1
		 RETURNING `+customerColumns,
		pgID, c.Firstname, c.Lastname, c.Phone, c.Status, c.Source, c.Notes,
		dbpkg.ToPgText(c.ResumeURL), resumeData)
	return scanCustomer(row)
}

func marshalResumeData(info *extract.ResumeInfo) ([]byte, error) {
	if info == nil {
		return nil, nil
	}
	data, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal resume data: %w", err)
	}
	return data, nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c          Customer
		id         pgtype.UUID
		resumeURL  pgtype.Text
		resumeData []byte
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)
	err := row.Scan(&id, &c.Firstname, &c.Lastname, &c.Email, &c.Phone,
		&c.Status, &c.Source, &c.Notes, &resumeURL, &resumeData, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	c.ID = id.String()
	c.ResumeURL = dbpkg.TextToString(resumeURL)
	c.CreatedAt = createdAt.Time
	c.UpdatedAt = updatedAt.Time
	if len(resumeData) > 0 {
		var info extract.ResumeInfo
		if err := json.Unmarshal(resumeData, &info); err == nil && !info.IsEmpty() {
			c.ResumeData = &info
		}
	}
	return c, nil
}
