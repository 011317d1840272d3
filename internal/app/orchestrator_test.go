package app

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"coursechat/internal/ai"
	"coursechat/internal/tool"
)

// scriptedGenerator replays canned responses and records every request.
type scriptedGenerator struct {
	responses []*ai.Response
	requests  []ai.Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req ai.Request) (*ai.Response, error) {
	g.requests = append(g.requests, req)
	if len(g.responses) == 0 {
		return &ai.Response{
			StopReason: ai.StopEndTurn,
			Content:    []ai.ContentBlock{{Type: "text", Text: "default"}},
		}, nil
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

type recordingTool struct {
	name     string
	output   string
	sources  []tool.Source
	lastArgs map[string]interface{}
}

func (r *recordingTool) Definition() ai.ToolDefinition {
	return ai.ToolDefinition{
		Name:        r.name,
		InputSchema: ai.InputSchema{Type: "object", Properties: map[string]ai.Property{}},
	}
}

func (r *recordingTool) Execute(_ context.Context, args map[string]interface{}) (string, []tool.Source) {
	r.lastArgs = args
	return r.output, r.sources
}

func textResponse(text string) *ai.Response {
	return &ai.Response{
		StopReason: ai.StopEndTurn,
		Content:    []ai.ContentBlock{{Type: "text", Text: text}},
	}
}

func toolUseResponse(id, name string, input string) *ai.Response {
	return &ai.Response{
		StopReason: ai.StopToolUse,
		Content: []ai.ContentBlock{
			{Type: "tool_use", ID: id, Name: name, Input: json.RawMessage(input)},
		},
	}
}

func link(s string) *string { return &s }

func TestRespond_DirectAnswerSkipsToolRound(t *testing.T) {
	gen := &scriptedGenerator{responses: []*ai.Response{textResponse("plain answer")}}
	searcher := &recordingTool{name: "search_course_content"}
	reg := tool.NewRegistry()
	reg.Register(searcher)

	orch := NewOrchestrator(gen, reg)
	answer, sources, err := orch.Respond(context.Background(), "what is 2+2", "")
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if answer != "plain answer" {
		t.Fatalf("wrong answer %q", answer)
	}
	if len(sources) != 0 {
		t.Fatalf("direct answers carry no sources, got %v", sources)
	}
	if len(gen.requests) != 1 {
		t.Fatalf("expected a single model round, got %d", len(gen.requests))
	}
	if len(gen.requests[0].Tools) != 1 {
		t.Fatalf("first round must carry the tool schemas")
	}
	if searcher.lastArgs != nil {
		t.Fatalf("tool must not run without a tool_use block")
	}
}

func TestRespond_ToolRoundThenFinalWithoutTools(t *testing.T) {
	gen := &scriptedGenerator{responses: []*ai.Response{
		toolUseResponse("toolu_1", "search_course_content", `{"query":"mcp basics"}`),
		textResponse("grounded answer"),
	}}
	searcher := &recordingTool{
		name:    "search_course_content",
		output:  "[Course - Lesson 1]\nsome chunk",
		sources: []tool.Source{{DisplayText: "Course - Lesson 1", Link: link("https://example.com/1")}},
	}
	reg := tool.NewRegistry()
	reg.Register(searcher)

	orch := NewOrchestrator(gen, reg)
	answer, sources, err := orch.Respond(context.Background(), "tell me about mcp", "")
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if answer != "grounded answer" {
		t.Fatalf("wrong answer %q", answer)
	}
	if len(sources) != 1 || sources[0].DisplayText != "Course - Lesson 1" {
		t.Fatalf("tool sources not surfaced, got %v", sources)
	}
	if searcher.lastArgs["query"] != "mcp basics" {
		t.Fatalf("tool args not decoded, got %v", searcher.lastArgs)
	}

	if len(gen.requests) != 2 {
		t.Fatalf("expected two model rounds, got %d", len(gen.requests))
	}
	if gen.requests[1].Tools != nil {
		t.Fatalf("second round must carry no tool schemas")
	}

	// The second round's transcript is user query, assistant tool_use, then a
	// user message pairing the result with the invocation id.
	msgs := gen.requests[1].Messages
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages in final round, got %d", len(msgs))
	}
	last := msgs[2]
	if last.Role != "user" || len(last.Content) != 1 {
		t.Fatalf("unexpected tool result message %+v", last)
	}
	if last.Content[0].Type != "tool_result" || last.Content[0].ToolUseID != "toolu_1" {
		t.Fatalf("tool result not keyed to invocation, got %+v", last.Content[0])
	}
	if last.Content[0].Content != "[Course - Lesson 1]\nsome chunk" {
		t.Fatalf("tool output not forwarded, got %q", last.Content[0].Content)
	}
}

func TestRespond_HistoryEmbeddedInSystemPrompt(t *testing.T) {
	gen := &scriptedGenerator{responses: []*ai.Response{textResponse("ok")}}
	orch := NewOrchestrator(gen, tool.NewRegistry())

	history := "User: earlier question\nAssistant: earlier answer"
	if _, _, err := orch.Respond(context.Background(), "follow up", history); err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	system := gen.requests[0].System
	if !strings.Contains(system, "Previous conversation:") || !strings.Contains(system, "earlier question") {
		t.Fatalf("history missing from system prompt: %q", system)
	}
}

func TestRespond_NoHistoryNoPreviousConversationHeader(t *testing.T) {
	gen := &scriptedGenerator{responses: []*ai.Response{textResponse("ok")}}
	orch := NewOrchestrator(gen, tool.NewRegistry())

	if _, _, err := orch.Respond(context.Background(), "first question", ""); err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if strings.Contains(gen.requests[0].System, "Previous conversation:") {
		t.Fatalf("empty history must not add a conversation header")
	}
}

func TestRespond_SourcesDoNotLeakAcrossCalls(t *testing.T) {
	searcher := &recordingTool{
		name:    "search_course_content",
		output:  "chunk",
		sources: []tool.Source{{DisplayText: "Course - Lesson 1"}},
	}
	reg := tool.NewRegistry()
	reg.Register(searcher)

	gen := &scriptedGenerator{responses: []*ai.Response{
		toolUseResponse("toolu_1", "search_course_content", `{"query":"q"}`),
		textResponse("with sources"),
		textResponse("without sources"),
	}}
	orch := NewOrchestrator(gen, reg)

	_, first, err := orch.Respond(context.Background(), "searchy question", "")
	if err != nil {
		t.Fatalf("first respond failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected one source from first call, got %d", len(first))
	}

	_, second, err := orch.Respond(context.Background(), "general question", "")
	if err != nil {
		t.Fatalf("second respond failed: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("sources leaked into a tool-free call: %v", second)
	}
}

func TestRespond_MultipleToolUsesRunInOrder(t *testing.T) {
	searcher := &recordingTool{name: "search_course_content", output: "search out"}
	outliner := &recordingTool{name: "get_course_outline", output: "outline out",
		sources: []tool.Source{{DisplayText: "Course"}}}
	reg := tool.NewRegistry()
	reg.Register(searcher)
	reg.Register(outliner)

	gen := &scriptedGenerator{responses: []*ai.Response{
		{
			StopReason: ai.StopToolUse,
			Content: []ai.ContentBlock{
				{Type: "tool_use", ID: "toolu_1", Name: "search_course_content", Input: json.RawMessage(`{"query":"a"}`)},
				{Type: "tool_use", ID: "toolu_2", Name: "get_course_outline", Input: json.RawMessage(`{"course_name":"b"}`)},
			},
		},
		textResponse("combined"),
	}}
	orch := NewOrchestrator(gen, reg)

	_, sources, err := orch.Respond(context.Background(), "both please", "")
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	if len(sources) != 1 || sources[0].DisplayText != "Course" {
		t.Fatalf("sources from all tool runs should accumulate, got %v", sources)
	}

	results := gen.requests[1].Messages[2].Content
	if len(results) != 2 {
		t.Fatalf("expected 2 tool results, got %d", len(results))
	}
	if results[0].ToolUseID != "toolu_1" || results[1].ToolUseID != "toolu_2" {
		t.Fatalf("tool results out of order: %+v", results)
	}
}
