package repository

import (
	"fmt"

	"gorm.io/gorm"

	"coursechat/internal/model"
)

type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Upsert records a course by title, updating chunk count and lessons when it
// already exists. Re-ingesting the same transcript is a no-op at the index
// level but refreshes the durable record.
func (r *CourseRepository) Upsert(course *model.Course) error {
	var existing model.Course
	err := r.db.Where("title = ?", course.Title).First(&existing).Error
	if err == nil {
		course.ID = existing.ID
		if err := r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(course).Error; err != nil {
			return fmt.Errorf("update course failed: %w", err)
		}
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("lookup course failed: %w", err)
	}
	if err := r.db.Create(course).Error; err != nil {
		return fmt.Errorf("create course failed: %w", err)
	}
	return nil
}

func (r *CourseRepository) List() ([]model.Course, error) {
	var courses []model.Course
	if err := r.db.Preload("Lessons").Order("title ASC").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("list courses failed: %w", err)
	}
	return courses, nil
}
