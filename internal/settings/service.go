package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentID = "global"

// Service reads and writes the persisted settings document.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "settings")),
	}
}

// Get returns the current document; a missing row yields a zero document,
// not an error.
func (s *Service) Get(ctx context.Context) (Document, error) {
	var (
		raw       []byte
		updatedAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx,
		`SELECT document, updated_at FROM settings WHERE id = $1`, documentID).
		Scan(&raw, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("get settings: %w", err)
	}

	var doc Document
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return Document{}, fmt.Errorf("decode settings: %w", err)
		}
	}
	doc.UpdatedAt = updatedAt.Time
	return doc, nil
}

// Put replaces the document wholesale.
func (s *Service) Put(ctx context.Context, doc Document) (Document, error) {
	doc.UpdatedAt = time.Time{}
	raw, err := json.Marshal(doc)
	if err != nil {
		return Document{}, fmt.Errorf("encode settings: %w", err)
	}
	var updatedAt pgtype.Timestamptz
	err = s.pool.QueryRow(ctx,
		`INSERT INTO settings (id, document, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()
		 RETURNING updated_at`, documentID, raw).
		Scan(&updatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("put settings: %w", err)
	}
	doc.UpdatedAt = updatedAt.Time
	s.logger.Info("settings updated")
	return doc, nil
}
