package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/example/coursehub/internal/services"
)

const validatedBodyKey = "validatedBody"

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateBody parses the request body into T and runs struct validation
// before the handler sees it. When a rejected body carries already-uploaded
// media references (thumbnailId/videoId), those uploads are deleted
// best-effort so a failed metadata request does not orphan them.
func ValidateBody[T any](media services.MediaStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body T
		if err := c.BodyParser(&body); err != nil {
			cleanupOrphanedMedia(c, media)
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if err := validate.Struct(&body); err != nil {
			cleanupOrphanedMedia(c, media)

			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				first := verrs[0]
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"message": validationMessage(first),
					"error":   strings.ToLower(first.Field()),
					"success": false,
				})
			}
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		c.Locals(validatedBodyKey, &body)
		return c.Next()
	}
}

// ValidatedBody returns the typed, already-checked request body.
func ValidatedBody[T any](c *fiber.Ctx) *T {
	body, _ := c.Locals(validatedBodyKey).(*T)
	return body
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// cleanupOrphanedMedia inspects the raw body for media references uploaded
// client-side before this metadata request failed validation.
func cleanupOrphanedMedia(c *fiber.Ctx, media services.MediaStore) {
	if media == nil {
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return
	}

	var ids []string
	for _, key := range []string{"thumbnailId", "videoId"} {
		value, ok := raw[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(value, &id); err == nil && id != "" {
			ids = append(ids, id)
		}
	}

	if len(ids) > 0 {
		services.CleanupMedia(c.Context(), media, ids...)
	}
}
