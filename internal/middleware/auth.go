package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/coursehub/internal/config"
	"github.com/example/coursehub/internal/utils"
)

const (
	userContextKey = "currentUserID"
	otpContextKey  = "currentOtpID"
)

// RequireSession validates the access_token cookie and loads the
// authenticated user ID into context. Expired tokens clear the cookie.
func RequireSession(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(utils.AccessTokenCookie)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
		}

		claims, err := utils.ParseToken(cfg.JWTSecret, token, utils.PurposeSession)
		if err != nil {
			if err == utils.ErrTokenExpired {
				utils.ClearSessionCookie(c, cfg.IsProduction())
				return fiber.NewError(fiber.StatusUnauthorized, "Token expired, please sign in again")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		userID, err := claims.User()
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		c.Locals(userContextKey, userID)
		return c.Next()
	}
}

// RequireOTPToken validates the otp_token cookie issued at register or
// unverified login and loads both the user and OTP record IDs into context.
func RequireOTPToken(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(utils.OTPTokenCookie)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
		}

		claims, err := utils.ParseToken(cfg.JWTSecret, token, utils.PurposeOTP)
		if err != nil {
			if err == utils.ErrTokenExpired {
				utils.ClearOTPCookie(c, cfg.IsProduction())
				return fiber.NewError(fiber.StatusUnauthorized, "Token expired, please request a new OTP")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		userID, err := claims.User()
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}
		otpID, err := claims.Otp()
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		c.Locals(userContextKey, userID)
		c.Locals(otpContextKey, otpID)
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(userContextKey).(uuid.UUID)
	return id, ok
}

// GetCurrentOTPID extracts the OTP record ID bound to the presented OTP token.
func GetCurrentOTPID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(otpContextKey).(uuid.UUID)
	return id, ok
}
