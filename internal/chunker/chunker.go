package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"coursechat/internal/model"
)

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 100
)

var (
	ErrEmptyDocument = errors.New("document contains no content")

	lessonMarker = regexp.MustCompile(`(?m)^Lesson\s+(\d+):\s*(.+)$`)
	sentenceEnd  = regexp.MustCompile(`[.!?]+(?:\s+|$)`)
)

// Chunker turns a raw course transcript into an ordered chunk sequence.
//
// Expected document shape: an optional header of "Course Title:", "Course Link:"
// and "Course Instructor:" lines, then lesson sections introduced by
// "Lesson <number>: <title>" markers, each optionally followed by a
// "Lesson Link:" line. Text before the first marker is course-level front matter.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = defaultChunkOverlap
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// ParseDocument parses the header into course metadata and splits the remainder
// into chunks. Position indices are assigned in emission order, contiguous from 0.
// fallbackTitle names the course when the document has no title header.
func (c *Chunker) ParseDocument(content, fallbackTitle string) (*model.Course, []model.Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil, ErrEmptyDocument
	}

	course, body := parseHeader(content)
	if course.Title == "" {
		course.Title = strings.TrimSpace(fallbackTitle)
	}
	if course.Title == "" {
		return nil, nil, errors.New("document has no course title")
	}

	var chunks []model.Chunk
	emit := func(text string, lesson *int, first bool) {
		if first && lesson != nil {
			text = fmt.Sprintf("Course %s Lesson %d content: %s", course.Title, *lesson, text)
		}
		chunks = append(chunks, model.Chunk{
			Text:        text,
			CourseTitle: course.Title,
			Lesson:      lesson,
			Position:    len(chunks),
		})
	}

	markers := lessonMarker.FindAllStringSubmatchIndex(body, -1)

	frontEnd := len(body)
	if len(markers) > 0 {
		frontEnd = markers[0][0]
	}
	if front := strings.TrimSpace(body[:frontEnd]); front != "" {
		for i, w := range c.windows(front) {
			emit(w, nil, i == 0)
		}
	}

	for i, m := range markers {
		number, err := strconv.Atoi(body[m[2]:m[3]])
		if err != nil {
			continue
		}
		lesson := model.Lesson{
			Number: number,
			Title:  strings.TrimSpace(body[m[4]:m[5]]),
		}

		sectionEnd := len(body)
		if i+1 < len(markers) {
			sectionEnd = markers[i+1][0]
		}
		section := body[m[1]:sectionEnd]
		lesson.Link, section = extractLessonLink(section)
		course.Lessons = append(course.Lessons, lesson)

		n := number
		for j, w := range c.windows(strings.TrimSpace(section)) {
			emit(w, &n, j == 0)
		}
	}

	if len(chunks) == 0 {
		return nil, nil, ErrEmptyDocument
	}
	course.ChunkCount = len(chunks)
	return &course, chunks, nil
}

// parseHeader consumes leading "Course Title/Link/Instructor" lines and returns
// the remaining body.
func parseHeader(content string) (model.Course, string) {
	var course model.Course
	lines := strings.Split(content, "\n")
	consumed := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" && consumed > 0:
			consumed++
			continue
		case matchPrefix(trimmed, "Course Title:", &course.Title),
			matchPrefix(trimmed, "Course Link:", &course.Link),
			matchPrefix(trimmed, "Course Instructor:", &course.Instructor):
			consumed++
			continue
		}
		break
	}
	return course, strings.Join(lines[consumed:], "\n")
}

func matchPrefix(line, prefix string, dst *string) bool {
	if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
		return false
	}
	*dst = strings.TrimSpace(line[len(prefix):])
	return true
}

// extractLessonLink strips an optional leading "Lesson Link: <url>" line.
func extractLessonLink(section string) (string, string) {
	trimmed := strings.TrimLeft(section, " \t\r\n")
	var link string
	if matchPrefix(firstLine(trimmed), "Lesson Link:", &link) {
		if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
			return link, trimmed[idx+1:]
		}
		return link, ""
	}
	return "", section
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

// windows groups sentences into chunks of up to chunkSize characters. Each
// window after the first re-includes trailing sentences of the previous one
// totalling up to chunkOverlap characters, so context carries across chunks.
// Text is never split mid-sentence.
func (c *Chunker) windows(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var out []string
	i := 0
	for i < len(sentences) {
		size := 0
		j := i
		for j < len(sentences) {
			next := len(sentences[j])
			if size > 0 {
				next++ // joining space
			}
			if size+next > c.chunkSize && size > 0 {
				break
			}
			size += next
			j++
		}
		out = append(out, strings.Join(sentences[i:j], " "))
		if j >= len(sentences) {
			break
		}

		// walk back whole sentences worth up to chunkOverlap characters
		back := j
		overlap := 0
		for back > i {
			n := len(sentences[back-1])
			if overlap+n > c.chunkOverlap {
				break
			}
			overlap += n + 1
			back--
		}
		if back == i {
			back = j // window fits entirely in the overlap budget; advance instead
		}
		i = back
	}
	return out
}

// splitSentences breaks text at sentence-final punctuation, keeping the
// punctuation with its sentence. A trailing fragment without terminal
// punctuation is kept as its own sentence.
func splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	var sentences []string
	start := 0
	for _, m := range sentenceEnd.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[start:m[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = m[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
