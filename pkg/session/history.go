package session

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/duynguyendang/gapagent/pkg/common/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TranscriptTitle heads the Markdown export.
const TranscriptTitle = "# Research Gap AI Agent - Conversation History"

// ChatTurn is a single message. It is persisted as a [role, message] pair.
type ChatTurn struct {
	Role    Role
	Message string
}

func (t ChatTurn) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{string(t.Role), t.Message})
}

func (t *ChatTurn) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("turn must be a [role, message] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("turn must be a [role, message] pair, got %d elements", len(pair))
	}
	role := Role(pair[0])
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("unknown role %q", pair[0])
	}
	t.Role = role
	t.Message = pair[1]
	return nil
}

// ChatHistory is an ordered, append-only sequence of turns. Only Import
// replaces it wholesale.
type ChatHistory struct {
	turns []ChatTurn
}

// Append adds a turn at the end.
func (h *ChatHistory) Append(role Role, message string) {
	h.turns = append(h.turns, ChatTurn{Role: role, Message: message})
}

// Turns returns a copy of the history.
func (h *ChatHistory) Turns() []ChatTurn {
	out := make([]ChatTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *ChatHistory) Len() int {
	return len(h.turns)
}

// Reset clears the history.
func (h *ChatHistory) Reset() {
	h.turns = nil
}

// Export serializes the history as a JSON list of [role, message] pairs.
func (h *ChatHistory) Export() ([]byte, error) {
	turns := h.turns
	if turns == nil {
		turns = []ChatTurn{}
	}
	return json.MarshalIndent(turns, "", "  ")
}

// Import replaces the history with the JSON document in data. Anything other
// than a list of valid pairs is rejected with ErrInvalidHistory and the
// current history is kept.
func (h *ChatHistory) Import(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return fmt.Errorf("%w: invalid chat history format, expected a list", apperrors.ErrInvalidHistory)
	}

	turns := make([]ChatTurn, 0, len(raw))
	for i, item := range raw {
		var turn ChatTurn
		if err := json.Unmarshal(item, &turn); err != nil {
			return fmt.Errorf("%w: entry %d: %v", apperrors.ErrInvalidHistory, i, err)
		}
		turns = append(turns, turn)
	}
	h.turns = turns
	return nil
}

// Transcript renders the history as a human-readable Markdown document.
func (h *ChatHistory) Transcript() string {
	caser := cases.Title(language.English)

	var sb strings.Builder
	sb.WriteString(TranscriptTitle)
	sb.WriteString("\n\n")
	for _, turn := range h.turns {
		fmt.Fprintf(&sb, "**%s:**\n%s\n\n---\n\n", caser.String(string(turn.Role)), turn.Message)
	}
	return sb.String()
}
