package model

// Chunk is the unit of indexed content produced by the chunker. Chunks live in
// the vector store, not in MySQL; course title plus position identifies one.
// Lesson is nil for course-level front matter that precedes the first lesson.
type Chunk struct {
	Text        string `json:"text"`
	CourseTitle string `json:"course_title"`
	Lesson      *int   `json:"lesson_number,omitempty"`
	Position    int    `json:"position"`
}
