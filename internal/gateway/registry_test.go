package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSender struct{ name string }

func (s noopSender) Name() string { return s.name }

func (s noopSender) Send(context.Context, EmailMessage) (EmailResult, error) {
	return EmailResult{}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(noopSender{name: "webapi"})
	r.Register(noopSender{name: "smtp"})

	a, err := r.Get("webapi")
	require.NoError(t, err)
	assert.Equal(t, "webapi", a.Name())

	_, err = r.Get("unknown")
	assert.ErrorContains(t, err, "email adapter not found")
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := noopSender{name: "webapi"}
	second := &fakeEmailSender{name: "webapi"}
	r.Register(first)
	r.Register(second)

	a, err := r.Get("webapi")
	require.NoError(t, err)
	assert.Same(t, second, a)
}
