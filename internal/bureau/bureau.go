// Package bureau models the credit-bureau collaborator. The real integration
// lives outside this core; this client produces deterministic scores so the
// underwriting policy can be exercised end to end.
package bureau

import (
	"context"
)

// Client pulls a credit score keyed by PAN tail.
type Client interface {
	PullScore(ctx context.Context, panTail string) (int, error)
}

// StubClient derives a score from the last digit of the PAN tail. An empty or
// non-numeric tail falls back to a fixed digit so every caller gets a
// deterministic default.
type StubClient struct{}

func NewStub() *StubClient {
	return &StubClient{}
}

const defaultDigit = 7

func (c *StubClient) PullScore(_ context.Context, panTail string) (int, error) {
	digit := defaultDigit
	if d, ok := lastDigit(panTail); ok {
		digit = d
	}
	return 660 + digit*20, nil
}

// lastDigit returns the final digit of s only when s is entirely numeric,
// matching the bureau contract for tolerating alphanumeric PAN tails.
func lastDigit(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	return int(s[len(s)-1] - '0'), true
}
