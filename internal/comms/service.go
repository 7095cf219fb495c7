package comms

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Store is the persistence boundary for the ledger.
type Store interface {
	Insert(ctx context.Context, input CreateInput) (Communication, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Communication, error)
}

// Service is the append-only communication ledger.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(log *slog.Logger, store Store) *Service {
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "comms")),
	}
}

// Log appends one communication row. Persistence failures propagate: a
// silently missing ledger row would corrupt the audit trail.
func (s *Service) Log(ctx context.Context, input CreateInput) (Communication, error) {
	if strings.TrimSpace(input.CustomerID) == "" {
		return Communication{}, fmt.Errorf("customer id is required")
	}
	if !input.Type.Valid() {
		return Communication{}, fmt.Errorf("unsupported channel: %s", input.Type)
	}
	if input.Status == "" {
		input.Status = StatusSent
	}
	if input.SentAt.IsZero() {
		input.SentAt = time.Now().UTC()
	}
	if input.Metadata == nil {
		input.Metadata = map[string]any{}
	}

	row, err := s.store.Insert(ctx, input)
	if err != nil {
		return Communication{}, fmt.Errorf("insert communication: %w", err)
	}
	s.logger.Info("communication logged",
		slog.String("id", row.ID),
		slog.String("customer_id", row.CustomerID),
		slog.String("type", string(row.Type)),
		slog.String("status", string(row.Status)))
	return row, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]Communication, error) {
	return s.store.ListByCustomer(ctx, customerID)
}
