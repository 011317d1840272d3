package index

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"coursechat/internal/model"
	"coursechat/internal/vectorstore/memory"
)

// fakeEmbedder maps token overlap to vector similarity, so "MCP" lands near
// "Introduction to MCP" without a real embedding service.
type fakeEmbedder struct{ calls int }

const fakeDim = 16

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	vec := make([]float32, fakeDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%fakeDim]++
	}
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func intPtr(n int) *int { return &n }

func newTestIndex(t *testing.T) (*Index, *fakeEmbedder) {
	t.Helper()
	emb := &fakeEmbedder{}
	ix := New(memory.New(), emb, fakeDim, 5)
	if err := ix.Init(context.Background()); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return ix, emb
}

func ingestVectorsCourse(t *testing.T, ix *Index) *model.Course {
	t.Helper()
	course := &model.Course{
		Title: "Intro to Vectors",
		Link:  "https://example.com/vectors",
		Lessons: []model.Lesson{
			{Number: 1, Title: "Magnitude", Link: "https://example.com/vectors/1"},
			{Number: 2, Title: "Dot Products"},
		},
	}
	chunks := []model.Chunk{
		{Text: "Vectors have magnitude and direction.", CourseTitle: course.Title, Lesson: intPtr(1), Position: 0},
		{Text: "Dot products measure alignment.", CourseTitle: course.Title, Lesson: intPtr(2), Position: 1},
	}
	added, err := ix.AddCourse(context.Background(), course, chunks)
	if err != nil {
		t.Fatalf("add course failed: %v", err)
	}
	if !added {
		t.Fatalf("expected course to be added")
	}
	return course
}

func TestAddCourse_IdempotentByTitle(t *testing.T) {
	ix, emb := newTestIndex(t)
	ingestVectorsCourse(t, ix)

	callsAfterFirst := emb.calls
	added, err := ix.AddCourse(context.Background(), &model.Course{Title: "Intro to Vectors"}, nil)
	if err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	if added {
		t.Fatalf("expected duplicate course to be skipped")
	}
	if emb.calls != callsAfterFirst {
		t.Fatalf("duplicate ingestion re-embedded content")
	}

	count, titles, err := ix.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if count != 1 || len(titles) != 1 || titles[0] != "Intro to Vectors" {
		t.Fatalf("expected one catalog entry, got %d %v", count, titles)
	}
}

func TestResolve_FuzzyHint(t *testing.T) {
	ix, _ := newTestIndex(t)
	ingestVectorsCourse(t, ix)

	title, err := ix.Resolve(context.Background(), "vectors")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if title != "Intro to Vectors" {
		t.Fatalf("expected exact stored title, got %q", title)
	}
}

func TestResolve_EmptyCatalog(t *testing.T) {
	ix, _ := newTestIndex(t)
	if _, err := ix.Resolve(context.Background(), "anything"); err != ErrCourseNotFound {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestResolve_UnrelatedHintRejected(t *testing.T) {
	ix, _ := newTestIndex(t)
	ingestVectorsCourse(t, ix)

	// the catalog is non-empty, so the nearest neighbor exists, but it is too
	// far away to count as a match
	if _, err := ix.Resolve(context.Background(), "Nonexistent Course"); err != ErrCourseNotFound {
		t.Fatalf("expected ErrCourseNotFound for unrelated hint, got %v", err)
	}
}

func TestSearch_LessonFilter(t *testing.T) {
	ix, _ := newTestIndex(t)
	ingestVectorsCourse(t, ix)

	res := ix.Search(context.Background(), "what is lesson 2 about?", "", intPtr(2))
	if res.IsError() {
		t.Fatalf("unexpected error result: %s", res.Err)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("expected exactly the lesson-2 chunk, got %d hits", len(res.Hits))
	}
	hit := res.Hits[0]
	if hit.Lesson == nil || *hit.Lesson != 2 {
		t.Fatalf("expected lesson 2 hit, got %v", hit.Lesson)
	}
	if hit.CourseTitle != "Intro to Vectors" {
		t.Fatalf("wrong course title %q", hit.CourseTitle)
	}
}

func TestSearch_UnresolvableHintFailsFast(t *testing.T) {
	ix, _ := newTestIndex(t)
	// empty catalog: any hint must fail before the content collection is touched
	res := ix.Search(context.Background(), "anything", "Nonexistent Course", nil)
	if !res.IsError() {
		t.Fatalf("expected error-carrying result")
	}
	if !strings.Contains(res.Err, "Nonexistent Course") {
		t.Fatalf("error should name the hint, got %q", res.Err)
	}
}

func TestSearch_UnrelatedHintOnPopulatedCatalog(t *testing.T) {
	ix, _ := newTestIndex(t)
	ingestVectorsCourse(t, ix)

	res := ix.Search(context.Background(), "what is lesson 2 about?", "Nonexistent Course", nil)
	if !res.IsError() {
		t.Fatalf("expected error-carrying result for unrelated hint, got %d hits", len(res.Hits))
	}
	if !strings.Contains(res.Err, "Nonexistent Course") {
		t.Fatalf("error should name the hint, got %q", res.Err)
	}
}

func TestSearch_EmptyIndexReturnsEmptyResult(t *testing.T) {
	ix, _ := newTestIndex(t)
	res := ix.Search(context.Background(), "anything", "", nil)
	if res.IsError() {
		t.Fatalf("empty index should not be an error, got %q", res.Err)
	}
	if !res.IsEmpty() {
		t.Fatalf("expected empty result")
	}
}

func TestSearch_OrderedByDistance(t *testing.T) {
	ix, _ := newTestIndex(t)
	ingestVectorsCourse(t, ix)

	res := ix.Search(context.Background(), "magnitude and direction", "", nil)
	if res.IsError() || res.IsEmpty() {
		t.Fatalf("expected hits, got %+v", res)
	}
	for i := 1; i < len(res.Hits); i++ {
		if res.Hits[i-1].Distance > res.Hits[i].Distance {
			t.Fatalf("hits not in ascending distance order")
		}
	}
	if !strings.Contains(res.Hits[0].Text, "magnitude") {
		t.Fatalf("best hit should be the magnitude chunk, got %q", res.Hits[0].Text)
	}
}

func TestOutlineAndLessonLink(t *testing.T) {
	ix, _ := newTestIndex(t)
	ingestVectorsCourse(t, ix)

	course, err := ix.Outline(context.Background(), "vectors")
	if err != nil {
		t.Fatalf("outline failed: %v", err)
	}
	if course.Link != "https://example.com/vectors" || len(course.Lessons) != 2 {
		t.Fatalf("outline incomplete: %+v", course)
	}

	if link := ix.LessonLink(context.Background(), "Intro to Vectors", 1); link != "https://example.com/vectors/1" {
		t.Fatalf("expected lesson 1 link, got %q", link)
	}
	if link := ix.LessonLink(context.Background(), "Intro to Vectors", 2); link != "" {
		t.Fatalf("expected empty link for lesson 2, got %q", link)
	}
}

func TestClear_AllowsRebuild(t *testing.T) {
	ix, _ := newTestIndex(t)
	ingestVectorsCourse(t, ix)

	if err := ix.Clear(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	count, _, err := ix.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty catalog after clear, got %d", count)
	}

	added, err := ix.AddCourse(context.Background(), &model.Course{Title: "Intro to Vectors"}, nil)
	if err != nil || !added {
		t.Fatalf("expected re-add after clear, got added=%v err=%v", added, err)
	}
}
