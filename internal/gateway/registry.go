package gateway

import (
	"context"
	"fmt"
	"sync"
)

// Adapter names the registry is keyed by. Defined here so the service can
// pick an adapter without importing the adapter packages, which import
// this one for the EmailSender types.
const (
	AdapterWebAPI  = "webapi"
	AdapterSMTP    = "smtp"
	AdapterMailgun = "mailgun"
)

// EmailSender is one email delivery mechanism. Adapters resolve their own
// credentials per send so settings changes apply immediately.
type EmailSender interface {
	Name() string
	Send(ctx context.Context, msg EmailMessage) (EmailResult, error)
}

// Registry holds the registered email adapters keyed by name.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]EmailSender
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]EmailSender)}
}

func (r *Registry) Register(a EmailSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

func (r *Registry) Get(name string) (EmailSender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("email adapter not found: %s", name)
	}
	return a, nil
}
