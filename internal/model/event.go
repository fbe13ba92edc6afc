package model

import "time"

// Role identifies who produced a message in a session log.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	RoleUnknown   Role = "unknown"
)

// ParseRole maps the role strings found in session logs to a Role.
func ParseRole(s string) Role {
	switch s {
	case "user", "human":
		return RoleUser
	case "assistant":
		return RoleAssistant
	case "system":
		return RoleSystem
	case "tool", "toolResult", "tool_result":
		return RoleTool
	default:
		return RoleUnknown
	}
}

// Event is one parsed message record from a session log.
// Timestamp is always in local time.
type Event struct {
	Timestamp    time.Time
	Role         Role
	RawContent   string
	ModelID      string // empty when the record named no model
	Provider     string
	SessionID    string
	HasToolCalls bool
	HasThinking  bool
	Seq          int // input order, used as the sort tiebreak
}

// Compaction is a context-compaction summary record found in a session log.
type Compaction struct {
	Timestamp time.Time
	SessionID string
	Summary   string
}
