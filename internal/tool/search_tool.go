package tool

import (
	"context"
	"fmt"
	"strings"

	"coursechat/internal/ai"
	"coursechat/internal/index"
)

// SearchTool exposes the content index to the language model as
// search_course_content.
type SearchTool struct {
	index *index.Index
}

func NewSearchTool(ix *index.Index) *SearchTool {
	return &SearchTool{index: ix}
}

func (t *SearchTool) Definition() ai.ToolDefinition {
	return ai.ToolDefinition{
		Name:        "search_course_content",
		Description: "Search course materials for specific topics, concepts, or details within course content.",
		InputSchema: ai.InputSchema{
			Type: "object",
			Properties: map[string]ai.Property{
				"query": {
					Type:        "string",
					Description: "What to search for in the course content",
				},
				"course_name": {
					Type:        "string",
					Description: "Course title, full or partial (e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": {
					Type:        "integer",
					Description: "Specific lesson number to search within (e.g. 1, 2)",
				},
			},
			Required: []string{"query"},
		},
	}
}

// Execute runs the search and formats each hit as a labeled block. Sources are
// de-duplicated in result order, one per distinct course/lesson pair.
func (t *SearchTool) Execute(ctx context.Context, args map[string]interface{}) (string, []Source) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "Search error: query is required", nil
	}
	courseName, _ := args["course_name"].(string)
	var lesson *int
	if raw, ok := args["lesson_number"]; ok {
		if f, ok := raw.(float64); ok {
			n := int(f)
			lesson = &n
		}
	}

	result := t.index.Search(ctx, query, courseName, lesson)
	if result.IsError() {
		return result.Err, nil
	}
	if result.IsEmpty() {
		return emptyMessage(courseName, lesson), nil
	}

	var blocks []string
	var sources []Source
	seen := make(map[string]bool)
	for _, hit := range result.Hits {
		label := hit.CourseTitle
		if hit.Lesson != nil {
			label = fmt.Sprintf("%s - Lesson %d", hit.CourseTitle, *hit.Lesson)
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", label, hit.Text))

		if seen[label] {
			continue
		}
		seen[label] = true
		src := Source{DisplayText: label}
		if hit.Lesson != nil {
			if link := t.index.LessonLink(ctx, hit.CourseTitle, *hit.Lesson); link != "" {
				src.Link = &link
			}
		}
		sources = append(sources, src)
	}
	return strings.Join(blocks, "\n\n"), sources
}

func emptyMessage(courseName string, lesson *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lesson != nil {
		msg += fmt.Sprintf(" in lesson %d", *lesson)
	}
	return msg + "."
}
