package tool

import (
	"context"

	"coursechat/internal/ai"
)

// Source is one displayable citation produced by a tool run: a course/lesson
// label plus an optional lesson link. Link is a pointer so "no link" serializes
// as null rather than an empty string.
type Source struct {
	DisplayText string  `json:"display_text"`
	Link        *string `json:"lesson_link"`
}

// Tool is a named, schema-described capability the language model may invoke.
// Execute returns the model-facing output text and the sources backing it;
// failures the model can react to (missing course, empty results, index errors)
// come back as output text, never as an error.
type Tool interface {
	Definition() ai.ToolDefinition
	Execute(ctx context.Context, args map[string]interface{}) (string, []Source)
}
