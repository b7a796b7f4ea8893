// Package verification decides whether the captured identity fields are
// sufficient to proceed to underwriting.
package verification

import (
	"context"
	"log/slog"

	"greenlight/internal/audit"
	"greenlight/internal/domain"
)

// Input is the normalized identity slice of the session.
type Input struct {
	SessionID string
	Name      string
	Mobile    string
	PANTail   string
}

// Service runs identity sufficiency checks. The CKYC and account-aggregator
// lookups are capability checks through the audit gate; a denial fails
// verification rather than being logged and ignored.
type Service struct {
	gate   *audit.Gate
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(gate *audit.Gate, opts ...Option) *Service {
	s := &Service{gate: gate, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run validates the identity fields. It fails fast on field shape before
// spending gated capability checks.
func (s *Service) Run(ctx context.Context, in Input) (domain.VerifyResult, error) {
	result := domain.VerifyResult{Mobile: in.Mobile, PANTail: in.PANTail}

	if in.Name == "" || len(in.Mobile) != 10 || len(in.PANTail) != 4 {
		s.logger.InfoContext(ctx, "verification failed on field shape",
			"session_id", in.SessionID,
			"mobile_len", len(in.Mobile),
			"pan_tail_len", len(in.PANTail),
		)
		return result, nil
	}

	meta := map[string]any{"session": in.SessionID}
	for _, resource := range []string{"ckyc", "aa"} {
		d, err := s.gate.Check(ctx, audit.ActorVerification, audit.ActionRead, resource, meta)
		if err != nil {
			return result, err
		}
		if !d.Permitted {
			return result, nil
		}
	}

	result.OK = true
	return result, nil
}
