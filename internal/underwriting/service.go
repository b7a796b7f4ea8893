// Package underwriting turns identity and request data into a credit decision
// with offer economics.
package underwriting

import (
	"context"
	"log/slog"
	"math"

	"greenlight/internal/audit"
	"greenlight/internal/bureau"
	"greenlight/internal/domain"
	dErrors "greenlight/pkg/domain-errors"
)

// Input is the underwriting request. Zero values mean "not provided"; the
// policy defaults fill them in.
type Input struct {
	SessionID     string
	PANTail       string
	Preapproved   int64
	DesiredAmount int64
	Tenure        int
}

// Service applies the injected Policy to a bureau score and computes offer
// economics for approvals.
type Service struct {
	policy Policy
	bureau bureau.Client
	gate   *audit.Gate
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(policy Policy, bureauClient bureau.Client, gate *audit.Gate, opts ...Option) *Service {
	s := &Service{
		policy: policy,
		bureau: bureauClient,
		gate:   gate,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run produces the underwriting decision. A bureau.read gate denial aborts
// the stage with a policy-violation error; bureau failures are surfaced, never
// papered over with a fabricated score.
func (s *Service) Run(ctx context.Context, in Input) (domain.UnderwriteDecision, error) {
	preapproved := in.Preapproved
	if preapproved <= 0 {
		preapproved = s.policy.DefaultPreapproved
	}
	desired := in.DesiredAmount
	if desired <= 0 {
		desired = preapproved
	}
	tenure := in.Tenure
	if tenure <= 0 {
		tenure = s.policy.DefaultTenure
	}

	d, err := s.gate.Check(ctx, audit.ActorUnderwriting, audit.ActionRead, "bureau",
		map[string]any{"session": in.SessionID, "pan_last4": in.PANTail})
	if err != nil {
		return domain.UnderwriteDecision{}, err
	}
	if !d.Permitted {
		return domain.UnderwriteDecision{}, dErrors.New(dErrors.CodePolicyViolation,
			"underwriting is not permitted to read the bureau")
	}

	score, err := s.bureau.PullScore(ctx, in.PANTail)
	if err != nil {
		return domain.UnderwriteDecision{}, dErrors.Wrap(err, dErrors.CodeUnavailable,
			"bureau score unavailable")
	}

	maxAllowed := float64(preapproved) * s.policy.PreapprovedMultiplier
	if score < s.policy.MinCreditScore || float64(desired) > maxAllowed {
		s.logger.InfoContext(ctx, "underwriting declined",
			"session_id", in.SessionID,
			"score", score,
			"desired", desired,
			"max_allowed", maxAllowed,
		)
		return domain.UnderwriteDecision{
			Approve: false,
			Score:   score,
			Reason:  "Policy breach",
		}, nil
	}

	apr := s.policy.DefaultAPR
	return domain.UnderwriteDecision{
		Approve: true,
		Score:   score,
		APR:     apr,
		EMI:     EMI(desired, apr, tenure),
		Amount:  desired,
		Tenure:  tenure,
	}, nil
}

// EMI computes the amortizing-loan monthly installment, truncated toward zero.
// The floor is a compatibility contract with existing statements, not a
// rounding shortcut.
func EMI(amount int64, apr float64, tenureMonths int) int64 {
	r := apr / 12 / 100
	if r == 0 {
		return amount / int64(tenureMonths)
	}
	growth := math.Pow(1+r, float64(tenureMonths))
	return int64(math.Floor(float64(amount) * r * growth / (growth - 1)))
}
