package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
)

// ErrNotFound is returned by stores when no customer matches.
var ErrNotFound = errors.New("customer not found")

// ErrEmailTaken is returned by stores when an insert hits the email
// uniqueness constraint (concurrent first contact for the same sender).
var ErrEmailTaken = errors.New("customer email already exists")

// Store is the persistence boundary for customers.
type Store interface {
	GetByEmail(ctx context.Context, email string) (Customer, error)
	GetByPhone(ctx context.Context, phone string) (Customer, error)
	GetByID(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context) ([]Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) (Customer, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(log *slog.Logger, store Store) *Service {
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "customer")),
	}
}

func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Customer, error) {
	return s.store.List(ctx)
}

// FindByPhone attributes an inbound SMS or WhatsApp message to an existing
// customer. There is no create path here: a phone number alone is not
// enough identity to mint a record.
func (s *Service) FindByPhone(ctx context.Context, phone string) (Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return Customer{}, ErrNotFound
	}
	return s.store.GetByPhone(ctx, phone)
}

// Resolve finds the customer for lookupEmail or creates one, applying the
// patch with coalesce semantics: only non-empty patch fields land, and a
// populated stored field is never clobbered by an empty one. The returned
// bool reports whether a new customer was created.
func (s *Service) Resolve(ctx context.Context, lookupEmail string, patch Patch) (Customer, bool, error) {
	email := strings.ToLower(strings.TrimSpace(lookupEmail))
	if email == "" {
		return Customer{}, false, fmt.Errorf("lookup email is required")
	}

	existing, err := s.store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		merged, changed := applyPatch(existing, patch)
		if !changed {
			return existing, false, nil
		}
		updated, err := s.store.Update(ctx, merged)
		if err != nil {
			return Customer{}, false, fmt.Errorf("update customer: %w", err)
		}
		return updated, false, nil
	case errors.Is(err, ErrNotFound):
		// fall through to create
	default:
		return Customer{}, false, fmt.Errorf("lookup customer: %w", err)
	}

	created, err := s.store.Create(ctx, newCustomer(email, patch))
	if errors.Is(err, ErrEmailTaken) {
		// Lost the insert race: another request created the row between
		// lookup and create. Retry as an update against the winner.
		s.logger.Warn("create conflict, retrying as update", slog.String("email", email))
		return s.Resolve(ctx, email, patch)
	}
	if err != nil {
		return Customer{}, false, fmt.Errorf("create customer: %w", err)
	}
	s.logger.Info("customer created",
		slog.String("id", created.ID),
		slog.String("source", created.Source))
	return created, true, nil
}

func newCustomer(email string, patch Patch) Customer {
	c := Customer{
		Email:      email,
		Firstname:  strings.TrimSpace(patch.Firstname),
		Lastname:   strings.TrimSpace(patch.Lastname),
		Phone:      strings.TrimSpace(patch.Phone),
		Status:     StatusLead,
		Source:     strings.TrimSpace(patch.Source),
		Notes:      strings.TrimSpace(patch.Notes),
		ResumeURL:  strings.TrimSpace(patch.ResumeURL),
		ResumeData: patch.ResumeData,
	}
	if c.Firstname == "" && c.Lastname == "" {
		c.Firstname, c.Lastname = splitLocalPart(email)
	}
	return c
}

// splitLocalPart guesses a name from the address local part: "jane.doe@x"
// becomes ("Jane", "Doe"). A local part without a dot fills firstname only.
func splitLocalPart(email string) (string, string) {
	local, _, _ := strings.Cut(email, "@")
	first, last, found := strings.Cut(local, ".")
	if !found {
		return title(local), ""
	}
	return title(first), title(last)
}

func title(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// applyPatch merges non-empty patch fields into the stored customer and
// reports whether anything actually changed.
func applyPatch(c Customer, patch Patch) (Customer, bool) {
	changed := false
	setIfPresent := func(dst *string, value string) {
		value = strings.TrimSpace(value)
		if value != "" && value != *dst {
			*dst = value
			changed = true
		}
	}
	setIfPresent(&c.Firstname, patch.Firstname)
	setIfPresent(&c.Lastname, patch.Lastname)
	setIfPresent(&c.Phone, patch.Phone)
	setIfPresent(&c.Source, patch.Source)
	setIfPresent(&c.Notes, patch.Notes)
	setIfPresent(&c.ResumeURL, patch.ResumeURL)
	if patch.ResumeData != nil && !patch.ResumeData.IsEmpty() &&
		!reflect.DeepEqual(c.ResumeData, patch.ResumeData) {
		c.ResumeData = patch.ResumeData
		changed = true
	}
	return c, changed
}
