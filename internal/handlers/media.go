package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/coursehub/internal/middleware"
	"github.com/example/coursehub/internal/models"
	"github.com/example/coursehub/internal/services"
)

// MediaHandler issues short-lived upload credentials for the media host.
type MediaHandler struct {
	db       *gorm.DB
	imagekit *services.ImageKitService
}

// NewMediaHandler constructs a MediaHandler.
func NewMediaHandler(db *gorm.DB, imagekit *services.ImageKitService) *MediaHandler {
	return &MediaHandler{db: db, imagekit: imagekit}
}

// GetUploadAuth returns signed client-upload parameters. The user is looked
// up first so deleted accounts cannot mint upload credentials.
func (h *MediaHandler) GetUploadAuth(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
	}

	var user models.User
	if err := h.db.Select("id").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User not found.")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"message": "ImageKit authentication successful.",
		"success": true,
		"data":    h.imagekit.UploadAuth(),
	})
}
