package audit

import "time"

// Actor identifies the stage (or the orchestrator itself) performing a
// privileged action.
type Actor string

const (
	ActorMaster       Actor = "master"
	ActorVerification Actor = "agent:verification"
	ActorUnderwriting Actor = "agent:underwriting"
	ActorSanction     Actor = "agent:sanction"
)

// Action is the operation attempted against a resource.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Result records whether the (actor, scope) pair was in the allow-table.
type Result string

const (
	ResultOK    Result = "ok"
	ResultAlert Result = "alert"
)

// Record is an immutable audit entry. Exactly one is appended per gated call,
// whether or not the call was permitted.
type Record struct {
	Actor     Actor          `json:"actor"`
	Action    Action         `json:"action"`
	Resource  string         `json:"resource"`
	Meta      map[string]any `json:"meta,omitempty"`
	Result    Result         `json:"result"`
	Timestamp time.Time      `json:"timestamp"`
}

// Scope returns the "resource.action" form matched against the allow-table.
func (r Record) Scope() string {
	return r.Resource + "." + string(r.Action)
}
