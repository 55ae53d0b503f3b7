package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups courses for browsing.
type Category struct {
	BaseModel
	Name    string   `gorm:"uniqueIndex;not null" json:"name"`
	Courses []Course `json:"-"`
}

// Course is owned by its instructor for all mutations. Duration is the sum of
// all lesson durations underneath and is maintained transactionally by the
// lesson create/delete paths.
type Course struct {
	BaseModel
	InstructorID     uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Instructor       *User     `json:"instructor,omitempty"`
	CategoryID       uuid.UUID `gorm:"type:uuid;index;not null" json:"categoryId"`
	Category         *Category `json:"category,omitempty"`
	Title            string    `gorm:"not null" json:"title"`
	Description      string    `gorm:"type:text" json:"description"`
	BriefDescription string    `json:"briefDescription"`
	Requirements     string    `gorm:"type:text" json:"requirements"`
	Objectives       string    `gorm:"type:text" json:"objectives"`
	Language         string    `json:"language"`
	Level            string    `json:"level"`
	Price            float64   `json:"price"`
	OriginalPrice    float64   `json:"originalPrice"`
	Duration         int       `json:"duration"`
	Published        bool      `json:"published"`
	ThumbnailURL     string    `json:"thumbnail"`
	ThumbnailID      string    `json:"thumbnailId,omitempty"`
	ThumbnailFile    string    `json:"thumbnailFile,omitempty"`
	Sections         []Section `gorm:"constraint:OnDelete:CASCADE" json:"sections,omitempty"`
	Reviews          []Review  `gorm:"constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
}

// Section holds an ordered slice of a course. Order is assigned append-at-end
// when the caller omits it and swapped pairwise on reorder.
type Section struct {
	BaseModel
	CourseID    uuid.UUID `gorm:"type:uuid;index;not null" json:"courseId"`
	Course      *Course   `json:"-"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Order       int       `gorm:"column:sort_order" json:"order"`
	Duration    int       `json:"duration"`
	Lessons     []Lesson  `gorm:"constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// BeforeCreate appends the section at the end of its course when no explicit
// order was given.
func (s *Section) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if s.Order != 0 {
		return nil
	}
	var max int
	err := tx.Model(&Section{}).
		Where("course_id = ?", s.CourseID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&max).Error
	if err != nil {
		return err
	}
	s.Order = max + 1
	return nil
}

// Lesson belongs to one section. VideoID references an object owned by the
// external media host and is deleted best-effort when the lesson goes away.
type Lesson struct {
	BaseModel
	SectionID   uuid.UUID `gorm:"type:uuid;index;not null" json:"sectionId"`
	Section     *Section  `json:"-"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Duration    int       `json:"duration"`
	Order       int       `gorm:"column:sort_order" json:"order"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	VideoID     string    `json:"videoId,omitempty"`
	FileName    string    `json:"fileName,omitempty"`
}

// BeforeCreate appends the lesson at the end of its section when no explicit
// order was given.
func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if err := l.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if l.Order != 0 {
		return nil
	}
	var max int
	err := tx.Model(&Lesson{}).
		Where("section_id = ?", l.SectionID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&max).Error
	if err != nil {
		return err
	}
	l.Order = max + 1
	return nil
}

// Review records one user's rating of a course. The composite unique index
// enforces at most one review per (user, course) pair.
type Review struct {
	BaseModel
	CourseID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_reviews_course_user;not null" json:"courseId"`
	UserID   uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_reviews_course_user;not null" json:"userId"`
	User     *User     `json:"user,omitempty"`
	Content  string    `gorm:"type:text" json:"content"`
	Rating   int       `json:"rating"`
}
