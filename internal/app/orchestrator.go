package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"coursechat/internal/ai"
	"coursechat/internal/tool"
)

// systemPrompt frames the assistant and tells the model when to reach for
// which tool. History, when present, is appended beneath it.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content, with access to tools for course information.

Tool usage:
- Use the content search tool for questions about specific course content or detailed educational materials
- Use the outline tool for questions about a course's structure, its lessons, or its link
- One tool call per query maximum
- If a tool yields no results, state that clearly without offering alternatives

Response requirements:
- No meta-commentary about your search or reasoning
- For general knowledge questions, answer from your own knowledge without tools
- Keep answers brief, concise and focused
- Do not mention "based on the search results" in your answer`

// Conversation phases. The orchestrator runs at most two model rounds per
// query: the first may request tools, the second never carries tool schemas,
// so a single query can trigger at most one tool round.
type phase int

const (
	phaseAwaitFirstResponse phase = iota
	phaseExecutingTools
	phaseAwaitFinalResponse
	phaseDone
)

// Orchestrator drives the model/tool conversation for a single query.
type Orchestrator struct {
	generator ai.Generator
	tools     *tool.Registry
}

func NewOrchestrator(generator ai.Generator, tools *tool.Registry) *Orchestrator {
	return &Orchestrator{generator: generator, tools: tools}
}

// Respond answers one query. Sources are collected from this call's tool
// executions only; consecutive calls never see each other's provenance.
func (o *Orchestrator) Respond(ctx context.Context, query, history string) (string, []tool.Source, error) {
	system := systemPrompt
	if history != "" {
		system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", systemPrompt, history)
	}

	messages := []ai.Message{ai.UserText(query)}
	var sources []tool.Source
	var answer string

	state := phaseAwaitFirstResponse
	for state != phaseDone {
		switch state {
		case phaseAwaitFirstResponse:
			resp, err := o.generator.Generate(ctx, ai.Request{
				System:   system,
				Messages: messages,
				Tools:    o.tools.Definitions(),
			})
			if err != nil {
				return "", nil, fmt.Errorf("first model round failed: %w", err)
			}
			if resp.StopReason == ai.StopToolUse && len(resp.ToolUses()) > 0 {
				messages = append(messages, ai.Message{Role: "assistant", Content: resp.Content})
				state = phaseExecutingTools
				break
			}
			answer = resp.Text()
			state = phaseDone

		case phaseExecutingTools:
			assistant := messages[len(messages)-1]
			results, callSources, err := o.executeToolUses(ctx, assistant.Content)
			if err != nil {
				return "", nil, err
			}
			sources = append(sources, callSources...)
			messages = append(messages, ai.Message{Role: "user", Content: results})
			state = phaseAwaitFinalResponse

		case phaseAwaitFinalResponse:
			// Tools are omitted from this round entirely, so the model can
			// only finish with text.
			resp, err := o.generator.Generate(ctx, ai.Request{
				System:   system,
				Messages: messages,
			})
			if err != nil {
				return "", nil, fmt.Errorf("final model round failed: %w", err)
			}
			answer = resp.Text()
			state = phaseDone
		}
	}

	return answer, sources, nil
}

// executeToolUses runs every tool_use block in order and builds the matching
// tool_result blocks, keyed by the invocation ids.
func (o *Orchestrator) executeToolUses(ctx context.Context, blocks []ai.ContentBlock) ([]ai.ContentBlock, []tool.Source, error) {
	var results []ai.ContentBlock
	var sources []tool.Source
	for _, block := range blocks {
		if block.Type != "tool_use" {
			continue
		}
		args := make(map[string]interface{})
		if len(block.Input) > 0 {
			if err := json.Unmarshal(block.Input, &args); err != nil {
				return nil, nil, fmt.Errorf("decode tool input for %s failed: %w", block.Name, err)
			}
		}
		log.Printf("executing tool %s", block.Name)
		output, callSources, err := o.tools.Execute(ctx, block.Name, args)
		if err != nil {
			return nil, nil, fmt.Errorf("tool %s failed: %w", block.Name, err)
		}
		results = append(results, ai.ContentBlock{
			Type:      "tool_result",
			ToolUseID: block.ID,
			Content:   output,
		})
		sources = append(sources, callSources...)
	}
	return results, sources, nil
}
