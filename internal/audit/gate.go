package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store persists audit records. Appends are write-only and commutative;
// concurrent appends never conflict.
type Store interface {
	Append(ctx context.Context, record Record) error
	ListBySession(ctx context.Context, sessionID string) ([]Record, error)
}

// allowTable is the static mapping of actor to permitted resource.action
// scopes. It is fixed configuration and is never mutated at runtime.
var allowTable = map[Actor]map[string]bool{
	ActorVerification: {"ckyc.read": true, "aa.read": true},
	ActorUnderwriting: {"bureau.read": true},
	ActorSanction:     {"pdf.write": true, "crm.write": true},
	ActorMaster:       {"route": true, "summarize": true},
}

// Decision is the typed outcome of a gate check. Callers must consume it: a
// denial aborts the gated action, it is not advisory.
type Decision struct {
	Permitted bool
	Record    Record
}

// Gate authorizes privileged actions and appends an audit record for every
// check regardless of outcome. A failed append is fatal to the check: an
// action whose audit trail cannot be written must not run.
type Gate struct {
	store  Store
	logger *slog.Logger
	mirror chan<- Record
}

type GateOption func(*Gate)

func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// WithMirror fans every record out to a secondary sink (e.g. the Kafka
// worker). Sends are non-blocking; a full mirror never delays the caller.
func WithMirror(mirror chan<- Record) GateOption {
	return func(g *Gate) { g.mirror = mirror }
}

func NewGate(store Store, opts ...GateOption) *Gate {
	g := &Gate{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check evaluates whether actor may perform action on resource and appends
// the audit record either way. The returned error is non-nil only when the
// record could not be persisted.
func (g *Gate) Check(ctx context.Context, actor Actor, action Action, resource string, meta map[string]any) (Decision, error) {
	record := Record{
		Actor:     actor,
		Action:    action,
		Resource:  resource,
		Meta:      meta,
		Result:    ResultAlert,
		Timestamp: time.Now(),
	}
	if allowTable[actor][record.Scope()] {
		record.Result = ResultOK
	}

	if err := g.store.Append(ctx, record); err != nil {
		return Decision{}, fmt.Errorf("append audit record: %w", err)
	}

	if g.mirror != nil {
		select {
		case g.mirror <- record:
		default:
			g.logger.WarnContext(ctx, "audit mirror full, record not mirrored",
				"actor", actor, "scope", record.Scope())
		}
	}

	if record.Result == ResultAlert {
		g.logger.WarnContext(ctx, "audit gate denied action",
			"actor", actor, "scope", record.Scope())
	}

	return Decision{Permitted: record.Result == ResultOK, Record: record}, nil
}
