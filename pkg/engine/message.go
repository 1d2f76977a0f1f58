// Package engine implements the memory-state engine: message normalization,
// the short-term buffer, LLM fact extraction, retrieval, and the two-phase
// offline consolidation protocol, bound together by the Engine facade.
//
// The engine owns no transport. Hosts (CLI, HTTP API, MCP server) construct
// an Engine with their chosen store, chat, and embedding backends and call
// the public operations directly. Callers serialize; the engine assumes
// exclusive access to the fact store for the duration of a public operation.
package engine

import "time"

// RolePolicy selects which dialog roles the extractor reads.
type RolePolicy string

const (
	// RoleUserOnly keeps user turns only.
	RoleUserOnly RolePolicy = "user_only"

	// RoleAssistantOnly keeps assistant turns only.
	RoleAssistantOnly RolePolicy = "assistant_only"

	// RoleHybrid keeps both.
	RoleHybrid RolePolicy = "hybrid"
)

// Keeps reports whether the policy admits a message role.
func (p RolePolicy) Keeps(role string) bool {
	switch p {
	case RoleUserOnly:
		return role == "user"
	case RoleAssistantOnly:
		return role == "assistant"
	default:
		return role == "user" || role == "assistant"
	}
}

// Message is one raw dialog turn delivered to AddMemory. TimeStamp is the
// session marker shared by messages of one conversational session,
// conventionally "YYYY/MM/DD (Ddd) HH:MM".
type Message struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	TimeStamp   string `json:"timeStamp"`
	SpeakerID   string `json:"speakerId,omitempty"`
	SpeakerName string `json:"speakerName,omitempty"`
}

// Normalized is a message after timestamp normalization: the session marker
// is parsed and bumped into a strictly increasing per-session instant, and
// the message carries its delivery sequence number.
type Normalized struct {
	Message

	// SessionTime is the original marker, kept for debugging.
	SessionTime string

	// Time is the bumped instant.
	Time time.Time

	// ISO is Time rendered in the record timestamp form.
	ISO string

	// Float is Time as seconds since the Unix epoch.
	Float float64

	// Weekday is the three-letter day code derived from Time.
	Weekday string

	// Sequence is the delivery order index, starting at 0 per extraction
	// segment.
	Sequence int
}

// SourceID is the integer the extractor renders before the speaker name and
// the LLM cites back: floor(Sequence/2).
func (n Normalized) SourceID() int {
	return n.Sequence / 2
}
