// Package renderer produces the sanction letter artifact from a KFS record.
// PDF typesetting is an external concern; the plain-text letter carries the
// same fields and goes through the same artifact store.
package renderer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"greenlight/internal/artifact"
	"greenlight/internal/domain"
	"greenlight/pkg/inr"
)

// Renderer turns a KFS into a stored document and returns its reference.
type Renderer interface {
	Render(ctx context.Context, sessionID string, kfs domain.KFS) (string, error)
}

// LetterRenderer writes a plain-text sanction letter through the artifact
// store, keyed by session identifier.
type LetterRenderer struct {
	artifacts artifact.Store
	now       func() time.Time
}

type Option func(*LetterRenderer)

// WithClock fixes the letter timestamp, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *LetterRenderer) { r.now = now }
}

func NewLetter(artifacts artifact.Store, opts ...Option) *LetterRenderer {
	r := &LetterRenderer{artifacts: artifacts, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *LetterRenderer) Render(ctx context.Context, sessionID string, kfs domain.KFS) (string, error) {
	now := r.now()
	ref := fmt.Sprintf("GLC-%s-%s", now.Format("20060102"), kfs.MandateID)

	var b strings.Builder
	fmt.Fprintf(&b, "GreenLight Credit - Sanction Letter\n")
	fmt.Fprintf(&b, "Reference: %s\n", ref)
	fmt.Fprintf(&b, "Date: %s\n\n", now.Format("02 Jan 2006, 03:04 PM"))

	fmt.Fprintf(&b, "Borrower\n")
	fmt.Fprintf(&b, "  Name:                %s\n", kfs.Name)
	fmt.Fprintf(&b, "  PAN last 4:          %s\n\n", kfs.PANLast4)

	fmt.Fprintf(&b, "Loan Summary\n")
	fmt.Fprintf(&b, "  Sanctioned amount:   %s\n", inr.Format(kfs.Amount))
	fmt.Fprintf(&b, "  Tenure (months):     %d\n", kfs.Tenure)
	fmt.Fprintf(&b, "  EMI (approx.):       %s\n", inr.Format(kfs.EMI))
	fmt.Fprintf(&b, "  APR:                 %s\n", kfs.APR)
	fmt.Fprintf(&b, "  e-Mandate ID:        %s\n\n", kfs.MandateID)

	fmt.Fprintf(&b, "This sanction is based on the information provided and the outcome of\n")
	fmt.Fprintf(&b, "CKYC/AA/bureau checks. The final Key Fact Statement and schedule are\n")
	fmt.Fprintf(&b, "shared separately. Please keep your e-mandate ID handy for reference.\n\n")
	fmt.Fprintf(&b, "Digitally issued by GreenLight Credit. This is a system-generated\n")
	fmt.Fprintf(&b, "document, no signature required.\n")

	name := fmt.Sprintf("sanction_%s.txt", sessionID)
	artifactRef, err := r.artifacts.Put(ctx, name, []byte(b.String()))
	if err != nil {
		return "", fmt.Errorf("store sanction letter: %w", err)
	}
	return artifactRef, nil
}
