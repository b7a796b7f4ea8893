// Package mandate models the recurring-debit authorization collaborator.
package mandate

import (
	"context"

	"github.com/google/uuid"
)

// Request carries the parameters for an e-mandate registration.
type Request struct {
	SessionID     string
	Bank          string
	PaymentHandle string
}

// Client registers an e-mandate and returns its identifier.
type Client interface {
	CreateMandate(ctx context.Context, req Request) (string, error)
}

// StubClient issues locally generated mandate identifiers. The short prefix
// of a UUID keeps the ID readable on the sanction letter.
type StubClient struct{}

func NewStub() *StubClient {
	return &StubClient{}
}

func (c *StubClient) CreateMandate(_ context.Context, _ Request) (string, error) {
	return "MND-" + uuid.NewString()[:8], nil
}
