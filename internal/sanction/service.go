// Package sanction finalizes an approved loan: it registers the e-mandate,
// freezes the Key Fact Statement, renders the sanction letter and notifies
// the CRM.
package sanction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"greenlight/internal/artifact"
	"greenlight/internal/audit"
	"greenlight/internal/crm"
	"greenlight/internal/domain"
	"greenlight/internal/mandate"
	"greenlight/internal/renderer"
	dErrors "greenlight/pkg/domain-errors"
)

const (
	mandateBank   = "HDFC"
	paymentHandle = "test@upi"
)

// Input carries the approved decision plus the identity slice needed on the
// statement. PANTail may be empty when capture happened under an alias that
// later normalization dropped; the statement shows a placeholder instead.
type Input struct {
	SessionID string
	Name      string
	PANTail   string
	Decision  domain.UnderwriteDecision
}

// Service runs the sanction stage. Document generation is gated on
// pdf.write; the CRM push is gated separately on crm.write and is best
// effort once the documents exist.
type Service struct {
	mandates  mandate.Client
	renderer  renderer.Renderer
	artifacts artifact.Store
	notifier  crm.Notifier
	gate      *audit.Gate
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithNotifier attaches a CRM sink. Without one the CRM step is skipped.
func WithNotifier(notifier crm.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

func New(mandates mandate.Client, r renderer.Renderer, artifacts artifact.Store, gate *audit.Gate, opts ...Option) *Service {
	s := &Service{
		mandates:  mandates,
		renderer:  r,
		artifacts: artifacts,
		gate:      gate,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run produces the sanction documents for an approved decision. A pdf.write
// gate denial aborts the stage before any side effect; a crm.write denial
// only skips the CRM push, the issued documents stand.
func (s *Service) Run(ctx context.Context, in Input) (domain.SanctionResult, error) {
	d, err := s.gate.Check(ctx, audit.ActorSanction, audit.ActionWrite, "pdf",
		map[string]any{"session": in.SessionID})
	if err != nil {
		return domain.SanctionResult{}, err
	}
	if !d.Permitted {
		return domain.SanctionResult{}, dErrors.New(dErrors.CodePolicyViolation,
			"sanction is not permitted to write documents")
	}

	mandateID, err := s.mandates.CreateMandate(ctx, mandate.Request{
		SessionID:     in.SessionID,
		Bank:          mandateBank,
		PaymentHandle: paymentHandle,
	})
	if err != nil {
		return domain.SanctionResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable,
			"e-mandate registration failed")
	}

	panTail := in.PANTail
	if panTail == "" {
		panTail = "-"
	}
	kfs := domain.KFS{
		Name:      in.Name,
		PANLast4:  panTail,
		Amount:    in.Decision.Amount,
		Tenure:    in.Decision.Tenure,
		EMI:       in.Decision.EMI,
		APR:       strconv.FormatFloat(in.Decision.APR, 'f', -1, 64) + "%",
		MandateID: mandateID,
	}

	docRef, err := s.renderer.Render(ctx, in.SessionID, kfs)
	if err != nil {
		return domain.SanctionResult{}, dErrors.Wrap(err, dErrors.CodeInternal,
			"render sanction letter")
	}

	kfsJSON, err := json.MarshalIndent(kfs, "", "  ")
	if err != nil {
		return domain.SanctionResult{}, dErrors.Wrap(err, dErrors.CodeInternal,
			"encode key fact statement")
	}
	kfsRef, err := s.artifacts.Put(ctx, fmt.Sprintf("kfs_%s.json", in.SessionID), kfsJSON)
	if err != nil {
		return domain.SanctionResult{}, dErrors.Wrap(err, dErrors.CodeInternal,
			"store key fact statement")
	}

	s.notifyCRM(ctx, in.SessionID, kfs, docRef)

	return domain.SanctionResult{
		OK:          true,
		DocumentRef: docRef,
		KFS:         kfs,
		KFSRef:      kfsRef,
	}, nil
}

// notifyCRM pushes the customer update when permitted. Failures here never
// unwind a sanction that already produced its documents.
func (s *Service) notifyCRM(ctx context.Context, sessionID string, kfs domain.KFS, docRef string) {
	if s.notifier == nil {
		return
	}
	d, err := s.gate.Check(ctx, audit.ActorSanction, audit.ActionWrite, "crm",
		map[string]any{"session": sessionID})
	if err != nil {
		s.logger.ErrorContext(ctx, "crm gate check failed", "session_id", sessionID, "error", err)
		return
	}
	if !d.Permitted {
		return
	}
	update := crm.CustomerUpdate{SessionID: sessionID, KFS: kfs, DocumentRef: docRef}
	if err := s.notifier.UpdateCustomer(ctx, update); err != nil {
		s.logger.WarnContext(ctx, "crm update failed", "session_id", sessionID, "error", err)
	}
}
