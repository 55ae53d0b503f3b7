package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/coursehub/internal/models"
	"github.com/example/coursehub/internal/utils"
)

const featuredCoursesLimit = 8

// CoursesHandler serves the public browsing surface.
type CoursesHandler struct {
	db *gorm.DB
}

// NewCoursesHandler constructs a CoursesHandler.
func NewCoursesHandler(db *gorm.DB) *CoursesHandler {
	return &CoursesHandler{db: db}
}

// GetCategories lists category names.
func (h *CoursesHandler) GetCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.db.Select("id", "name").Order("name asc").Find(&categories).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Categories fetched successfully",
		"success": true,
		"data":    categories,
		"count":   len(categories),
	})
}

// GetAllCourses lists courses with category and instructor, paginated.
func (h *CoursesHandler) GetAllCourses(c *fiber.Ctx) error {
	page := utils.ParsePagination(c)

	var courses []models.Course
	err := page.Apply(h.db.
		Preload("Category").
		Preload("Instructor", func(q *gorm.DB) *gorm.DB {
			return q.Select("id", "name", "profile_url")
		}).
		Order("created_at desc")).
		Find(&courses).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Courses fetched successfully.",
		"success": true,
		"data":    courses,
		"count":   len(courses),
	})
}

// GetFeaturedCourses lists the front-page selection of published courses.
func (h *CoursesHandler) GetFeaturedCourses(c *fiber.Ctx) error {
	var courses []models.Course
	err := h.db.Where("published = ?", true).
		Preload("Category").
		Preload("Instructor", func(q *gorm.DB) *gorm.DB {
			return q.Select("id", "name", "profile_url")
		}).
		Order("updated_at desc").
		Limit(featuredCoursesLimit).
		Find(&courses).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Courses fetched successfully.",
		"success": true,
		"data":    courses,
		"count":   len(courses),
	})
}

// GetCourseByID returns one course with its category and instructor.
func (h *CoursesHandler) GetCourseByID(c *fiber.Ctx) error {
	courseID, err := parseUUIDParam(c, "courseId")
	if err != nil {
		return err
	}

	var course models.Course
	err = h.db.
		Preload("Category").
		Preload("Instructor", func(q *gorm.DB) *gorm.DB {
			return q.Select("id", "name", "email", "profile_url")
		}).
		Preload("Sections", func(q *gorm.DB) *gorm.DB {
			return q.Order("sort_order asc")
		}).
		Preload("Sections.Lessons", func(q *gorm.DB) *gorm.DB {
			return q.Order("sort_order asc")
		}).
		Preload("Reviews.User", func(q *gorm.DB) *gorm.DB {
			return q.Select("id", "name", "profile_url")
		}).
		First(&course, "id = ?", courseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Course not found.")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Course fetched successfully.",
		"success": true,
		"data":    course,
	})
}
