package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coursechat/internal/ai"
	"coursechat/internal/index"
)

// OutlineTool answers course-structure questions: it resolves a fuzzy course
// name and returns the title, link and numbered lesson list.
type OutlineTool struct {
	index *index.Index
}

func NewOutlineTool(ix *index.Index) *OutlineTool {
	return &OutlineTool{index: ix}
}

func (t *OutlineTool) Definition() ai.ToolDefinition {
	return ai.ToolDefinition{
		Name:        "get_course_outline",
		Description: "Get a course's outline: its title, link, and the full numbered lesson list.",
		InputSchema: ai.InputSchema{
			Type: "object",
			Properties: map[string]ai.Property{
				"course_name": {
					Type:        "string",
					Description: "Course title, full or partial",
				},
			},
			Required: []string{"course_name"},
		},
	}
}

func (t *OutlineTool) Execute(ctx context.Context, args map[string]interface{}) (string, []Source) {
	courseName, _ := args["course_name"].(string)
	if strings.TrimSpace(courseName) == "" {
		return "Outline error: course_name is required", nil
	}

	course, err := t.index.Outline(ctx, courseName)
	if errors.Is(err, index.ErrCourseNotFound) {
		return fmt.Sprintf("No course found matching '%s'", courseName), nil
	}
	if err != nil {
		return fmt.Sprintf("Outline error: %v", err), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&sb, "Course Link: %s\n", course.Link)
	}
	fmt.Fprintf(&sb, "Lessons (%d):\n", len(course.Lessons))
	for _, l := range course.Lessons {
		fmt.Fprintf(&sb, "  %d. %s\n", l.Number, l.Title)
	}

	src := Source{DisplayText: course.Title}
	if course.Link != "" {
		link := course.Link
		src.Link = &link
	}
	return strings.TrimRight(sb.String(), "\n"), []Source{src}
}
