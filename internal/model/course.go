package model

import "time"

// Course is the durable record of one ingested course. The title acts as the
// logical primary key: ingestion dedup and content filtering both key on it.
type Course struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:256;not null;uniqueIndex" json:"title"`
	Link       string    `gorm:"size:512" json:"link,omitempty"`
	Instructor string    `gorm:"size:128" json:"instructor,omitempty"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	Lessons    []Lesson  `gorm:"foreignKey:CourseID" json:"lessons"`
	CreatedAt  time.Time `json:"created_at"`
}

// Lesson belongs to exactly one course; Number is unique within it.
type Lesson struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	CourseID uint   `gorm:"not null;index" json:"-"`
	Number   int    `gorm:"not null" json:"number"`
	Title    string `gorm:"size:256;not null" json:"title"`
	Link     string `gorm:"size:512" json:"link,omitempty"`
}

// LessonByNumber returns the lesson with the given number, if present.
func (c *Course) LessonByNumber(number int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l, true
		}
	}
	return Lesson{}, false
}
