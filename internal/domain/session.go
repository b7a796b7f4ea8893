package domain

import "time"

// Stage names the phase of a loan-origination session. Transitions are
// one-directional; the orchestrator owns every mutation.
type Stage string

const (
	StageStart        Stage = "start"
	StagePrecheck     Stage = "precheck"
	StageVerify       Stage = "verify"
	StageManualReview Stage = "manual_review"
	StageUnderwrite   Stage = "underwrite"
	StageDeclined     Stage = "declined"
	StageSanction     Stage = "sanction"
	StageDone         Stage = "done"
)

// Terminal reports whether a session in this stage accepts further work.
// Declined and manual_review absorb the session just like done: the flow
// offers no re-entry from them.
func (s Stage) Terminal() bool {
	switch s {
	case StageManualReview, StageDeclined, StageDone:
		return true
	}
	return false
}

// stageSuccessors enumerates the legal forward edges of the flow. Terminal
// stages have no successors.
var stageSuccessors = map[Stage][]Stage{
	StageStart:      {StagePrecheck},
	StagePrecheck:   {StageVerify, StageManualReview},
	StageVerify:     {StageUnderwrite, StageManualReview},
	StageUnderwrite: {StageSanction, StageDeclined, StageManualReview},
	StageSanction:   {StageDone, StageManualReview},
}

// CanAdvanceTo reports whether next is a legal successor of s.
func (s Stage) CanAdvanceTo(next Stage) bool {
	for _, n := range stageSuccessors[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Message is one entry in a session's conversation history. Order is
// significant; the history is append-only.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the single mutable record of the origination flow, keyed by an
// opaque identifier chosen by the caller. Version supports optimistic saves:
// stores reject a save whose Version does not match the persisted record.
type Session struct {
	ID      string    `json:"id"`
	Stage   Stage     `json:"stage"`
	Name    string    `json:"name"`
	Mobile  string    `json:"mobile"`
	PANTail string    `json:"pan_tail"`
	History []Message `json:"history"`

	Verify     *VerifyResult       `json:"verify,omitempty"`
	Underwrite *UnderwriteDecision `json:"underwrite,omitempty"`
	Sanction   *SanctionResult     `json:"sanction,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns a session at the start of the flow.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Stage:     StageStart,
		History:   []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendMessage records a conversation turn.
func (s *Session) AppendMessage(role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content})
}

// Event is an immutable append-only record of a significant session
// transition. Events are never mutated or deleted.
type Event struct {
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}
