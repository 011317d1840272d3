package session

import (
	"context"
	"strings"
)

// Exchange is one completed user turn: the query and the assistant's answer.
type Exchange struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// Store keeps per-session conversation history, windowed to the most recent
// exchanges. Append on a full window evicts the oldest exchange first.
type Store interface {
	Create(ctx context.Context) (string, error)
	Context(ctx context.Context, sessionID string) (string, error)
	Append(ctx context.Context, sessionID string, query, answer string) error
}

// FormatHistory renders exchanges as the flat transcript embedded into the
// model's system prompt. An empty history renders as "".
func FormatHistory(exchanges []Exchange) string {
	if len(exchanges) == 0 {
		return ""
	}
	lines := make([]string, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		lines = append(lines, "User: "+ex.Query)
		lines = append(lines, "Assistant: "+ex.Answer)
	}
	return strings.Join(lines, "\n")
}
