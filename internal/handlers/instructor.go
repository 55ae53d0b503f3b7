package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/coursehub/internal/middleware"
	"github.com/example/coursehub/internal/models"
	"github.com/example/coursehub/internal/services"
)

// InstructorHandler manages the instructor-owned course surface. Every
// mutating endpoint checks existence first (404) and ownership second (403)
// before touching any row.
type InstructorHandler struct {
	db    *gorm.DB
	media services.MediaStore
}

// NewInstructorHandler constructs an InstructorHandler.
func NewInstructorHandler(db *gorm.DB, media services.MediaStore) *InstructorHandler {
	return &InstructorHandler{db: db, media: media}
}

// GetCourses lists the acting instructor's courses with their reviews.
func (h *InstructorHandler) GetCourses(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
	}

	var courses []models.Course
	err := h.db.Where("instructor_id = ?", userID).
		Preload("Reviews").
		Order("updated_at desc").
		Find(&courses).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Courses fetched successfully.",
		"success": true,
		"data":    courses,
	})
}

// CreateCategoryRequest is the validated category payload.
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateCategory adds a browsing category. Duplicate names are rejected.
func (h *InstructorHandler) CreateCategory(c *fiber.Ctx) error {
	req := middleware.ValidatedBody[CreateCategoryRequest](c)

	category := models.Category{Name: req.Name}
	if err := h.db.Create(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusBadRequest, "Category already exists.")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Category created successfully.",
		"success": true,
		"data":    category,
	})
}

// CourseFormRequest is the validated course create/update payload. Category
// is referenced by name and must already exist.
type CourseFormRequest struct {
	Title            string  `json:"title" validate:"required"`
	Description      string  `json:"description"`
	BriefDescription string  `json:"briefDescription"`
	Category         string  `json:"category" validate:"required"`
	Level            string  `json:"level"`
	Price            float64 `json:"price" validate:"gte=0"`
	Requirements     string  `json:"requirements"`
	Objectives       string  `json:"objectives"`
	Language         string  `json:"language"`
}

// CreateCourse creates an unpublished course owned by the acting instructor.
func (h *InstructorHandler) CreateCourse(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
	}

	req := middleware.ValidatedBody[CourseFormRequest](c)

	var category models.Category
	if err := h.db.Where("name = ?", req.Category).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "Category does not exist.")
		}
		return err
	}

	course := models.Course{
		InstructorID:     userID,
		CategoryID:       category.ID,
		Title:            req.Title,
		Description:      req.Description,
		BriefDescription: req.BriefDescription,
		Requirements:     req.Requirements,
		Objectives:       req.Objectives,
		Language:         req.Language,
		Level:            req.Level,
		Price:            req.Price,
		OriginalPrice:    req.Price,
		Duration:         0,
	}

	if err := h.db.Create(&course).Error; err != nil {
		return err
	}
	course.Category = &category

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Course created successfully.",
		"success": true,
		"data":    course,
	})
}

// GetCourseByID returns the full course tree for editing, with sections and
// lessons in display order.
func (h *InstructorHandler) GetCourseByID(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
	}

	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}

	var course models.Course
	err = h.db.
		Preload("Category").
		Preload("Instructor", func(q *gorm.DB) *gorm.DB {
			return q.Select("id", "name", "email")
		}).
		Preload("Sections", func(q *gorm.DB) *gorm.DB {
			return q.Order("sort_order asc")
		}).
		Preload("Sections.Lessons", func(q *gorm.DB) *gorm.DB {
			return q.Order("sort_order asc")
		}).
		First(&course, "id = ?", courseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Course not found.")
		}
		return err
	}

	if course.InstructorID != userID {
		return fiber.NewError(fiber.StatusForbidden, "Forbidden access.")
	}

	return c.JSON(fiber.Map{
		"message": "Course fetched successfully.",
		"success": true,
		"data":    course,
	})
}

// SectionRequest is the validated section payload.
type SectionRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"gte=0"`
}

// CreateSection appends a section to the course. Without an explicit order it
// lands at max(sibling order)+1.
func (h *InstructorHandler) CreateSection(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}

	course, err := h.requireCourseOwnership(c, courseID)
	if err != nil {
		return err
	}

	req := middleware.ValidatedBody[SectionRequest](c)

	section := models.Section{
		CourseID:    course.ID,
		Title:       req.Title,
		Description: req.Description,
		Order:       req.Order,
	}

	if err := h.db.Create(&section).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Section created successfully.",
		"success": true,
		"data":    section,
	})
}

// UpdateSectionDetails renames a section.
func (h *InstructorHandler) UpdateSectionDetails(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}
	sectionID, err := parseUUIDParam(c, "sectionId")
	if err != nil {
		return err
	}

	section, err := h.requireSectionOwnership(c, courseID, sectionID)
	if err != nil {
		return err
	}

	req := middleware.ValidatedBody[SectionRequest](c)

	updates := map[string]interface{}{
		"title":       req.Title,
		"description": req.Description,
	}
	if err := h.db.Model(section).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Section details updated successfully.",
		"success": true,
		"data":    fiber.Map{"title": req.Title, "description": req.Description},
	})
}

// DeleteSection removes a section and its lessons in one transaction, then
// best-effort deletes every referenced video from the media host.
func (h *InstructorHandler) DeleteSection(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}
	sectionID, err := parseUUIDParam(c, "sectionId")
	if err != nil {
		return err
	}

	section, err := h.requireSectionOwnership(c, courseID, sectionID)
	if err != nil {
		return err
	}

	// The lesson list is read inside the transaction so a lesson added
	// concurrently cannot vanish without its duration leaving the course
	// aggregate or its video being cleaned up.
	var videoIDs []string
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var lessons []models.Lesson
		if err := tx.Where("section_id = ?", section.ID).Find(&lessons).Error; err != nil {
			return err
		}

		var removed int
		for _, lesson := range lessons {
			if lesson.VideoID != "" {
				videoIDs = append(videoIDs, lesson.VideoID)
			}
			removed += lesson.Duration
		}

		if err := tx.Where("section_id = ?", section.ID).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		if removed > 0 {
			err := tx.Model(&models.Course{}).Where("id = ?", courseID).
				Update("duration", gorm.Expr("duration - ?", removed)).Error
			if err != nil {
				return err
			}
		}
		return tx.Delete(&models.Section{}, "id = ?", section.ID).Error
	})
	if err != nil {
		return err
	}

	services.CleanupMedia(c.Context(), h.media, videoIDs...)

	return c.JSON(fiber.Map{
		"message": "Section deleted successfully.",
		"success": true,
	})
}

// LessonRequest is the validated lesson payload.
type LessonRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Duration    int    `json:"duration" validate:"gte=0"`
	Order       int    `json:"order" validate:"gte=0"`
	VideoURL    string `json:"videoUrl"`
	VideoID     string `json:"videoId"`
	FileName    string `json:"fileName"`
}

// AddLesson inserts a lesson and bumps the section and course aggregate
// durations by the lesson's duration, all in one transaction.
func (h *InstructorHandler) AddLesson(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}
	sectionID, err := parseUUIDParam(c, "sectionId")
	if err != nil {
		return err
	}

	section, err := h.requireSectionOwnership(c, courseID, sectionID)
	if err != nil {
		return err
	}

	req := middleware.ValidatedBody[LessonRequest](c)

	lesson := models.Lesson{
		SectionID:   section.ID,
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Order:       req.Order,
		VideoURL:    req.VideoURL,
		VideoID:     req.VideoID,
		FileName:    req.FileName,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Section{}).Where("id = ?", section.ID).
			Update("duration", gorm.Expr("duration + ?", req.Duration)).Error
		if err != nil {
			return err
		}
		err = tx.Model(&models.Course{}).Where("id = ?", courseID).
			Update("duration", gorm.Expr("duration + ?", req.Duration)).Error
		if err != nil {
			return err
		}
		return tx.Create(&lesson).Error
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Lesson added successfully.",
		"success": true,
		"data":    lesson,
	})
}

// DeleteLesson removes a lesson and decrements both aggregate durations in
// one transaction; only after commit is the lesson's video deleted
// best-effort from the media host.
func (h *InstructorHandler) DeleteLesson(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}
	sectionID, err := parseUUIDParam(c, "sectionId")
	if err != nil {
		return err
	}
	lessonID, err := parseUUIDParam(c, "lessonId")
	if err != nil {
		return err
	}

	section, err := h.requireSectionOwnership(c, courseID, sectionID)
	if err != nil {
		return err
	}

	var lesson models.Lesson
	if err := h.db.First(&lesson, "id = ? AND section_id = ?", lessonID, section.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Lesson not found.")
		}
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Section{}).Where("id = ?", section.ID).
			Update("duration", gorm.Expr("duration - ?", lesson.Duration)).Error
		if err != nil {
			return err
		}
		err = tx.Model(&models.Course{}).Where("id = ?", courseID).
			Update("duration", gorm.Expr("duration - ?", lesson.Duration)).Error
		if err != nil {
			return err
		}
		return tx.Delete(&lesson).Error
	})
	if err != nil {
		return err
	}

	if lesson.VideoID != "" {
		services.CleanupMedia(c.Context(), h.media, lesson.VideoID)
	}

	return c.JSON(fiber.Map{
		"message": "Lesson deleted successfully.",
		"success": true,
	})
}

type siblingRef struct {
	ID string `json:"id" validate:"required,uuid"`
}

// SectionOrderRequest names the two sections whose order values swap.
type SectionOrderRequest struct {
	Section1 siblingRef `json:"section1" validate:"required"`
	Section2 siblingRef `json:"section2" validate:"required"`
}

// UpdateSectionOrder swaps the order values of two sections under the same
// course. Any two siblings may swap; adjacency is not required.
func (h *InstructorHandler) UpdateSectionOrder(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}

	if _, err := h.requireCourseOwnership(c, courseID); err != nil {
		return err
	}

	req := middleware.ValidatedBody[SectionOrderRequest](c)

	var sections []models.Section
	err = h.db.Where("course_id = ? AND id IN ?", courseID, []string{req.Section1.ID, req.Section2.ID}).
		Find(&sections).Error
	if err != nil {
		return err
	}
	if len(sections) != 2 {
		return fiber.NewError(fiber.StatusNotFound, "Section not found.")
	}

	if err := h.swapSectionOrder(sections[0], sections[1]); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Section order updated successfully.",
		"success": true,
	})
}

func (h *InstructorHandler) swapSectionOrder(a, b models.Section) error {
	return h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Section{}).Where("id = ?", a.ID).Update("sort_order", b.Order).Error; err != nil {
			return err
		}
		return tx.Model(&models.Section{}).Where("id = ?", b.ID).Update("sort_order", a.Order).Error
	})
}

// LessonOrderRequest names the two lessons whose order values swap.
type LessonOrderRequest struct {
	Lesson1 siblingRef `json:"lesson1" validate:"required"`
	Lesson2 siblingRef `json:"lesson2" validate:"required"`
}

// UpdateLessonOrder swaps the order values of two lessons under the same
// section.
func (h *InstructorHandler) UpdateLessonOrder(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}
	sectionID, err := parseUUIDParam(c, "sectionId")
	if err != nil {
		return err
	}

	section, err := h.requireSectionOwnership(c, courseID, sectionID)
	if err != nil {
		return err
	}

	req := middleware.ValidatedBody[LessonOrderRequest](c)

	var lessons []models.Lesson
	err = h.db.Where("section_id = ? AND id IN ?", section.ID, []string{req.Lesson1.ID, req.Lesson2.ID}).
		Find(&lessons).Error
	if err != nil {
		return err
	}
	if len(lessons) != 2 {
		return fiber.NewError(fiber.StatusNotFound, "Lesson not found.")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Lesson{}).Where("id = ?", lessons[0].ID).Update("sort_order", lessons[1].Order).Error; err != nil {
			return err
		}
		return tx.Model(&models.Lesson{}).Where("id = ?", lessons[1].ID).Update("sort_order", lessons[0].Order).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Lesson order updated successfully.",
		"success": true,
	})
}

// UpdateCourseDetails rewrites the descriptive course fields.
func (h *InstructorHandler) UpdateCourseDetails(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}

	course, err := h.requireCourseOwnership(c, courseID)
	if err != nil {
		return err
	}

	req := middleware.ValidatedBody[CourseFormRequest](c)

	var category models.Category
	if err := h.db.Where("name = ?", req.Category).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "Category does not exist.")
		}
		return err
	}

	updates := map[string]interface{}{
		"title":             req.Title,
		"description":       req.Description,
		"brief_description": req.BriefDescription,
		"category_id":       category.ID,
		"level":             req.Level,
		"price":             req.Price,
		"original_price":    req.Price,
		"requirements":      req.Requirements,
		"objectives":        req.Objectives,
		"language":          req.Language,
	}
	if err := h.db.Model(course).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Course details updated successfully.",
		"success": true,
	})
}

// CourseSettingsRequest is the validated settings payload.
type CourseSettingsRequest struct {
	ThumbnailID  string `json:"thumbnailId"`
	ThumbnailURL string `json:"thumbnailUrl"`
	FileName     string `json:"fileName"`
}

// UpdateCourseSettings persists a new thumbnail reference. A replaced
// thumbnail is deleted best-effort from the media host first.
func (h *InstructorHandler) UpdateCourseSettings(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}

	course, err := h.requireCourseOwnership(c, courseID)
	if err != nil {
		return err
	}

	req := middleware.ValidatedBody[CourseSettingsRequest](c)

	if req.ThumbnailID != "" && course.ThumbnailID != "" {
		services.CleanupMedia(c.Context(), h.media, course.ThumbnailID)
	}

	updates := map[string]interface{}{
		"thumbnail_url":  req.ThumbnailURL,
		"thumbnail_id":   req.ThumbnailID,
		"thumbnail_file": req.FileName,
	}
	if err := h.db.Model(course).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Course settings updated successfully.",
		"success": true,
	})
}

// PublishCourse performs the one-way unpublished-to-published transition.
// There is no unpublish.
func (h *InstructorHandler) PublishCourse(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}

	course, err := h.requireCourseOwnership(c, courseID)
	if err != nil {
		return err
	}

	if course.Published {
		return fiber.NewError(fiber.StatusConflict, "Course is already published.")
	}

	if err := h.db.Model(course).Update("published", true).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Course published successfully.",
		"success": true,
		"data": fiber.Map{
			"title":       course.Title,
			"description": course.Description,
			"published":   true,
		},
	})
}

// requireCourseOwnership loads the minimal course projection and checks the
// acting user owns it. Existence is checked before ownership.
func (h *InstructorHandler) requireCourseOwnership(c *fiber.Ctx, courseID uuid.UUID) (*models.Course, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
	}

	var course models.Course
	err := h.db.Select("id", "instructor_id", "published", "title", "description", "thumbnail_id").
		First(&course, "id = ?", courseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Course not found.")
		}
		return nil, err
	}

	if course.InstructorID != userID {
		return nil, fiber.NewError(fiber.StatusForbidden, "Forbidden access.")
	}

	return &course, nil
}

// requireSectionOwnership loads the section and walks the parent chain: the
// section must exist, belong to the course named in the path, and that
// course must belong to the acting user.
func (h *InstructorHandler) requireSectionOwnership(c *fiber.Ctx, courseID, sectionID uuid.UUID) (*models.Section, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
	}

	var section models.Section
	err := h.db.Select("id", "course_id").First(&section, "id = ?", sectionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Section not found.")
		}
		return nil, err
	}

	var course models.Course
	err = h.db.Select("id", "instructor_id").First(&course, "id = ?", section.CourseID).Error
	if err != nil {
		return nil, err
	}

	if course.InstructorID != userID || course.ID != courseID {
		return nil, fiber.NewError(fiber.StatusForbidden, "Forbidden access.")
	}

	return &section, nil
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}
