// Package orchestrator owns the per-session state machine. It routes each
// inbound message to the right stage, persists every transition durably
// before replying, and serializes writers per session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"greenlight/internal/domain"
	"greenlight/internal/normalize"
	"greenlight/internal/orchestrator/metrics"
	"greenlight/internal/sanction"
	"greenlight/internal/session"
	"greenlight/internal/underwriting"
	"greenlight/internal/verification"
	dErrors "greenlight/pkg/domain-errors"
	"greenlight/pkg/platform/sentinel"
)

var tracer = otel.Tracer("greenlight/internal/orchestrator")

// Transport-level defaults applied when the form omits the loan request.
const (
	defaultDesiredAmount int64 = 150000
	defaultTenureMonths  int64 = 24
)

const (
	replyConsent      = "Got consent. Share name, mobile, PAN last 4."
	replyManualReview = "We queued this for manual review."
	replySanctioned   = "Sanctioned. Your PDF + KFS is ready."
	replyTerminal     = "Session complete."
)

// Reply is the boundary shape returned to any transport.
type Reply struct {
	Reply   string         `json:"reply"`
	PDF     string         `json:"pdf,omitempty"`
	KFS     *domain.KFS    `json:"kfs,omitempty"`
	KFSRef  string         `json:"kfs_ref,omitempty"`
	Handoff bool           `json:"handoff,omitempty"`
}

// Verifier runs the identity sufficiency stage.
type Verifier interface {
	Run(ctx context.Context, in verification.Input) (domain.VerifyResult, error)
}

// Underwriter runs the credit decision stage.
type Underwriter interface {
	Run(ctx context.Context, in underwriting.Input) (domain.UnderwriteDecision, error)
}

// Sanctioner runs the document issuance stage.
type Sanctioner interface {
	Run(ctx context.Context, in sanction.Input) (domain.SanctionResult, error)
}

// Service is the session state machine. Each inbound message is handled
// under the session's lock with a strictly sequential load, mutate, persist
// cycle; the store's version check is the cross-instance backstop.
type Service struct {
	sessions   session.Store
	events     session.EventStore
	verifier   Verifier
	underwrite Underwriter
	sanction   Sanctioner
	locks      *keyedLocks
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(sessions session.Store, events session.EventStore, verifier Verifier, underwriter Underwriter, sanctioner Sanctioner, opts ...Option) *Service {
	s := &Service{
		sessions:   sessions,
		events:     events,
		verifier:   verifier,
		underwrite: underwriter,
		sanction:   sanctioner,
		locks:      newKeyedLocks(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage advances the session by one inbound message. Transitions are
// one-directional; a session in a terminal stage gets the fixed terminal
// reply and is not mutated.
func (s *Service) HandleMessage(ctx context.Context, sessionID, message string, form normalize.Form) (Reply, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "orchestrator.handle_message",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()
	defer func() { s.metrics.ObserveHandleLatency(time.Since(start)) }()

	form = normalize.Apply(form)

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return Reply{}, dErrors.Wrap(err, dErrors.CodeInternal, "load session")
	}
	span.SetAttributes(attribute.String("session.stage", string(sess.Stage)))
	s.metrics.IncrementMessages(string(sess.Stage))

	sess.AppendMessage("user", message)

	switch sess.Stage {
	case domain.StageStart:
		return s.handleStart(ctx, sess)
	case domain.StagePrecheck:
		return s.handlePrecheck(ctx, sess, form)
	default:
		// Terminal or unknown: fixed reply, no mutation persisted.
		return Reply{Reply: replyTerminal}, nil
	}
}

func (s *Service) handleStart(ctx context.Context, sess *domain.Session) (Reply, error) {
	if err := s.transition(ctx, sess, domain.StagePrecheck); err != nil {
		return Reply{}, err
	}
	return Reply{Reply: replyConsent}, nil
}

// handlePrecheck captures identity, then runs verification, underwriting and
// sanction synchronously within this one call. Each committed transition is
// durable before the next stage starts.
func (s *Service) handlePrecheck(ctx context.Context, sess *domain.Session, form normalize.Form) (Reply, error) {
	tail := normalize.PANTail(form)
	if n := len(tail); n > 0 && n < 4 {
		// Rejected at capture: the session stays in precheck and the
		// caller may resubmit corrected fields.
		return Reply{}, dErrors.New(dErrors.CodeValidation,
			"pan tail must be exactly 4 characters")
	}

	sess.Name = normalize.String(form, "name")
	sess.Mobile = normalize.String(form, "mobile")
	sess.PANTail = tail
	sess.Stage = domain.StageVerify

	s.appendEvent(ctx, sess.ID, "precheck", map[string]any{
		"name":     sess.Name,
		"mobile":   sess.Mobile,
		"pan_tail": sess.PANTail,
	})

	v, err := s.verifier.Run(ctx, verification.Input{
		SessionID: sess.ID,
		Name:      sess.Name,
		Mobile:    sess.Mobile,
		PANTail:   sess.PANTail,
	})
	if err != nil {
		return s.stageFailure(ctx, sess, "verification", err)
	}
	sess.Verify = &v
	if !v.OK {
		return s.routeToManualReview(ctx, sess)
	}

	if err := s.transition(ctx, sess, domain.StageUnderwrite); err != nil {
		return Reply{}, err
	}

	u, err := s.underwrite.Run(ctx, underwriting.Input{
		SessionID:     sess.ID,
		PANTail:       sess.PANTail,
		DesiredAmount: normalize.Int(form, "desired_amount", defaultDesiredAmount),
		Tenure:        int(normalize.Int(form, "tenure", defaultTenureMonths)),
	})
	if err != nil {
		return s.stageFailure(ctx, sess, "underwriting", err)
	}
	sess.Underwrite = &u
	if !u.Approve {
		if err := s.transition(ctx, sess, domain.StageDeclined); err != nil {
			return Reply{}, err
		}
		s.metrics.IncrementOutcome("declined")
		return Reply{Reply: fmt.Sprintf("Sorry, declined - reason: %s (score %d).", u.Reason, u.Score)}, nil
	}

	if err := s.transition(ctx, sess, domain.StageSanction); err != nil {
		return Reply{}, err
	}

	res, err := s.sanction.Run(ctx, sanction.Input{
		SessionID: sess.ID,
		Name:      sess.Name,
		PANTail:   sess.PANTail,
		Decision:  u,
	})
	if err != nil {
		return s.stageFailure(ctx, sess, "sanction", err)
	}
	sess.Sanction = &res

	if err := s.transition(ctx, sess, domain.StageDone); err != nil {
		return Reply{}, err
	}
	s.metrics.IncrementOutcome("sanctioned")

	kfs := res.KFS
	return Reply{
		Reply:  replySanctioned,
		PDF:    res.DocumentRef,
		KFS:    &kfs,
		KFSRef: res.KFSRef,
	}, nil
}

// stageFailure maps a stage error to the session's fate. A policy violation
// (audit gate denial) routes the session to manual review; anything else
// leaves the stage unchanged so the message can be retried once the
// collaborator recovers.
func (s *Service) stageFailure(ctx context.Context, sess *domain.Session, stage string, err error) (Reply, error) {
	if dErrors.HasCode(err, dErrors.CodePolicyViolation) {
		s.logger.WarnContext(ctx, "stage denied by audit gate, routing to manual review",
			"session_id", sess.ID, "stage", stage, "error", err)
		return s.routeToManualReview(ctx, sess)
	}
	s.logger.ErrorContext(ctx, "stage failed",
		"session_id", sess.ID, "stage", stage, "error", err)
	return Reply{}, err
}

func (s *Service) routeToManualReview(ctx context.Context, sess *domain.Session) (Reply, error) {
	if err := s.transition(ctx, sess, domain.StageManualReview); err != nil {
		return Reply{}, err
	}
	s.metrics.IncrementOutcome("manual_review")
	return Reply{Reply: replyManualReview, Handoff: true}, nil
}

// transition commits a stage change: the save must be durable before the
// event is emitted or any further stage work runs.
func (s *Service) transition(ctx context.Context, sess *domain.Session, to domain.Stage) error {
	from := sess.Stage
	if !from.CanAdvanceTo(to) {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("cannot advance from %s to %s", from, to))
	}
	sess.Stage = to
	if err := s.sessions.Save(ctx, sess); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "session modified concurrently")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist session")
	}
	s.appendEvent(ctx, sess.ID, "stage", string(to))
	s.metrics.IncrementTransition(string(from), string(to))
	return nil
}

// appendEvent records a session event. The event log is observability, not
// state: an append failure is logged but never fails a request whose session
// save already committed.
func (s *Service) appendEvent(ctx context.Context, sessionID, eventType string, payload any) {
	event := domain.Event{
		SessionID: sessionID,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	if err := s.events.Append(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "append session event failed",
			"session_id", sessionID, "type", eventType, "error", err)
	}
}
