package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"coursechat/internal/ai"
	"coursechat/internal/model"
	"coursechat/internal/vectorstore"
)

const (
	catalogCollection = "course_catalog"
	contentCollection = "course_content"

	defaultMaxResults  = 5
	embeddingBatchSize = 10 // embedding APIs often limit batch size

	// Cosine distance above which the nearest catalog entry is not accepted
	// as a resolution. Without a cutoff any non-empty catalog would resolve
	// every hint to its nearest course, however unrelated.
	defaultResolveThreshold float32 = 0.5
)

var ErrCourseNotFound = errors.New("no matching course")

// Hit is one content match.
type Hit struct {
	Text        string
	CourseTitle string
	Lesson      *int
	Distance    float32
}

// SearchResult carries either matches or an error message, never both. Errors
// here are the kind the language model should see as text (a missing course, an
// unreachable index), not Go errors.
type SearchResult struct {
	Hits []Hit
	Err  string
}

func errorResult(format string, args ...interface{}) SearchResult {
	return SearchResult{Err: fmt.Sprintf(format, args...)}
}

func (r SearchResult) IsError() bool { return r.Err != "" }
func (r SearchResult) IsEmpty() bool { return len(r.Hits) == 0 }

// Index is the dual-collection semantic store: a catalog collection holding one
// embedded entry per course (used only to resolve fuzzy course names to exact
// titles) and a content collection holding embedded chunks with course/lesson
// metadata for filtered retrieval.
type Index struct {
	store            vectorstore.Store
	embedder         ai.Embedder
	dimension        int
	maxResults       int
	resolveThreshold float32
}

func New(store vectorstore.Store, embedder ai.Embedder, dimension, maxResults int) *Index {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Index{
		store:            store,
		embedder:         embedder,
		dimension:        dimension,
		maxResults:       maxResults,
		resolveThreshold: defaultResolveThreshold,
	}
}

// SetResolveThreshold overrides the catalog match cutoff. Non-positive values
// are ignored and keep the default.
func (ix *Index) SetResolveThreshold(d float32) {
	if d > 0 {
		ix.resolveThreshold = d
	}
}

// Init creates both collections.
func (ix *Index) Init(ctx context.Context) error {
	if err := ix.store.EnsureCollection(ctx, catalogCollection, ix.dimension); err != nil {
		return fmt.Errorf("ensure catalog collection failed: %w", err)
	}
	if err := ix.store.EnsureCollection(ctx, contentCollection, ix.dimension); err != nil {
		return fmt.Errorf("ensure content collection failed: %w", err)
	}
	return nil
}

// HasCourse reports whether a course with the exact title is in the catalog.
func (ix *Index) HasCourse(ctx context.Context, title string) (bool, error) {
	p, err := ix.store.Get(ctx, catalogCollection, title)
	if err != nil {
		return false, fmt.Errorf("catalog lookup failed: %w", err)
	}
	return p != nil, nil
}

// AddCourse embeds and stores a course's catalog entry and all its chunks.
// Adding is idempotent by title: an already-cataloged course is skipped and
// reported via the boolean, so repeated startup ingestion never re-embeds.
func (ix *Index) AddCourse(ctx context.Context, course *model.Course, chunks []model.Chunk) (bool, error) {
	exists, err := ix.HasCourse(ctx, course.Title)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	titleVec, err := ix.embedder.Embed(ctx, course.Title)
	if err != nil {
		return false, fmt.Errorf("embed course title failed: %w", err)
	}
	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return false, fmt.Errorf("marshal lesson metadata failed: %w", err)
	}
	catalogPoint := vectorstore.Point{
		ID:     course.Title,
		Vector: titleVec,
		Payload: map[string]interface{}{
			"title":      course.Title,
			"instructor": course.Instructor,
			"link":       course.Link,
			"lessons":    string(lessonsJSON),
		},
	}
	if err := ix.store.Upsert(ctx, catalogCollection, []vectorstore.Point{catalogPoint}); err != nil {
		return false, fmt.Errorf("upsert catalog entry failed: %w", err)
	}

	for start := 0; start < len(chunks); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return false, fmt.Errorf("embed chunk batch failed: %w", err)
		}
		if len(vectors) != len(batch) {
			return false, errors.New("embedding count mismatch")
		}

		points := make([]vectorstore.Point, len(batch))
		for i, c := range batch {
			payload := map[string]interface{}{
				"text":         c.Text,
				"course_title": c.CourseTitle,
				"position":     c.Position,
			}
			if c.Lesson != nil {
				payload["lesson_number"] = *c.Lesson
			}
			points[i] = vectorstore.Point{
				ID:      c.CourseTitle + ":" + strconv.Itoa(c.Position),
				Vector:  vectors[i],
				Payload: payload,
			}
		}
		if err := ix.store.Upsert(ctx, contentCollection, points); err != nil {
			return false, fmt.Errorf("upsert content chunks failed: %w", err)
		}
	}
	return true, nil
}

// Resolve maps a partial or fuzzy course name to the exact stored title via
// nearest-neighbor lookup against the catalog. A nearest entry farther than
// the resolve threshold is a miss, so an unrelated hint fails even when the
// catalog is non-empty.
func (ix *Index) Resolve(ctx context.Context, hint string) (string, error) {
	vec, err := ix.embedder.Embed(ctx, hint)
	if err != nil {
		return "", fmt.Errorf("embed course hint failed: %w", err)
	}
	matches, err := ix.store.Query(ctx, catalogCollection, vec, 1, nil)
	if err != nil {
		return "", fmt.Errorf("catalog query failed: %w", err)
	}
	if len(matches) == 0 || matches[0].Distance > ix.resolveThreshold {
		return "", ErrCourseNotFound
	}
	title, _ := matches[0].Payload["title"].(string)
	if title == "" {
		return "", ErrCourseNotFound
	}
	return title, nil
}

// Search runs a similarity query against the content collection, restricted by
// the resolved course title and/or lesson number when hints are given. A hint
// that resolves to nothing fails fast with an error-carrying result and the
// content collection is never queried. An empty index yields an empty result.
func (ix *Index) Search(ctx context.Context, query, courseHint string, lesson *int) SearchResult {
	filter := vectorstore.Filter{}
	if courseHint != "" {
		title, err := ix.Resolve(ctx, courseHint)
		if errors.Is(err, ErrCourseNotFound) {
			return errorResult("No course found matching '%s'", courseHint)
		}
		if err != nil {
			return errorResult("Search error: %v", err)
		}
		filter["course_title"] = title
	}
	if lesson != nil {
		filter["lesson_number"] = *lesson
	}

	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return errorResult("Search error: %v", err)
	}
	matches, err := ix.store.Query(ctx, contentCollection, vec, ix.maxResults, filter)
	if err != nil {
		return errorResult("Search error: %v", err)
	}

	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		hit := Hit{Distance: m.Distance}
		hit.Text, _ = m.Payload["text"].(string)
		hit.CourseTitle, _ = m.Payload["course_title"].(string)
		if raw, ok := m.Payload["lesson_number"]; ok {
			if f, ok := toInt(raw); ok {
				hit.Lesson = &f
			}
		}
		hits = append(hits, hit)
	}
	return SearchResult{Hits: hits}
}

// Outline returns the full course record (title, link, lessons) for a fuzzily
// named course.
func (ix *Index) Outline(ctx context.Context, hint string) (*model.Course, error) {
	title, err := ix.Resolve(ctx, hint)
	if err != nil {
		return nil, err
	}
	point, err := ix.store.Get(ctx, catalogCollection, title)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup failed: %w", err)
	}
	if point == nil {
		return nil, ErrCourseNotFound
	}

	course := &model.Course{Title: title}
	course.Instructor, _ = point.Payload["instructor"].(string)
	course.Link, _ = point.Payload["link"].(string)
	if raw, ok := point.Payload["lessons"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &course.Lessons); err != nil {
			return nil, fmt.Errorf("unmarshal lesson metadata failed: %w", err)
		}
	}
	return course, nil
}

// LessonLink returns the stored link for a course lesson, empty when the
// lesson has none.
func (ix *Index) LessonLink(ctx context.Context, title string, lesson int) string {
	course, err := ix.Outline(ctx, title)
	if err != nil {
		return ""
	}
	if l, ok := course.LessonByNumber(lesson); ok {
		return l.Link
	}
	return ""
}

// Stats returns the number of cataloged courses and their titles, sorted.
func (ix *Index) Stats(ctx context.Context) (int, []string, error) {
	payloads, err := ix.store.Payloads(ctx, catalogCollection, 0)
	if err != nil {
		return 0, nil, fmt.Errorf("catalog scan failed: %w", err)
	}
	titles := make([]string, 0, len(payloads))
	for _, p := range payloads {
		if t, ok := p["title"].(string); ok && t != "" {
			titles = append(titles, t)
		}
	}
	sort.Strings(titles)
	return len(titles), titles, nil
}

// Clear drops both collections' contents, forcing a full rebuild on next
// ingestion.
func (ix *Index) Clear(ctx context.Context) error {
	if err := ix.store.Clear(ctx, catalogCollection); err != nil {
		return fmt.Errorf("clear catalog failed: %w", err)
	}
	if err := ix.store.Clear(ctx, contentCollection); err != nil {
		return fmt.Errorf("clear content failed: %w", err)
	}
	return nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	}
	return 0, false
}
