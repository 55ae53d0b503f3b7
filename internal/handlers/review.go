package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/coursehub/internal/middleware"
	"github.com/example/coursehub/internal/models"
)

// ReviewHandler manages course reviews.
type ReviewHandler struct {
	db *gorm.DB
}

// NewReviewHandler constructs a ReviewHandler.
func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{db: db}
}

// ReviewRequest is the validated review payload.
type ReviewRequest struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
	Content  string `json:"content" validate:"required"`
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
}

// Create adds a review. At most one review exists per (user, course) pair.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
	}

	req := middleware.ValidatedBody[ReviewRequest](c)
	courseID := uuid.MustParse(req.CourseID)

	var course models.Course
	if err := h.db.Select("id").First(&course, "id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Course not found.")
		}
		return err
	}

	var existing models.Review
	err := h.db.Where("course_id = ? AND user_id = ?", courseID, userID).First(&existing).Error
	if err == nil {
		return fiber.NewError(fiber.StatusConflict, "You have already reviewed this course.")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	review := models.Review{
		CourseID: courseID,
		UserID:   userID,
		Content:  req.Content,
		Rating:   req.Rating,
	}

	if err := h.db.Create(&review).Error; err != nil {
		// The unique index backs up the read-then-check under races.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "You have already reviewed this course.")
		}
		return err
	}

	err = h.db.Preload("User", func(q *gorm.DB) *gorm.DB {
		return q.Select("id", "name", "email", "profile_url")
	}).First(&review, "id = ?", review.ID).Error
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Review created successfully.",
		"success": true,
		"review":  review,
	})
}
