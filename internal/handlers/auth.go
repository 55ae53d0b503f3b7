package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/coursehub/internal/config"
	"github.com/example/coursehub/internal/database"
	"github.com/example/coursehub/internal/middleware"
	"github.com/example/coursehub/internal/models"
	"github.com/example/coursehub/internal/services"
	"github.com/example/coursehub/internal/utils"
)

const (
	profileCacheTTL   = 24 * time.Hour
	defaultProfileURL = "/assets/default.jpg"
)

// ProfileCache is the slice of the redis wrapper the auth endpoints use for
// the 24h profile read-through.
type ProfileCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db    *gorm.DB
	cfg   *config.Config
	cache ProfileCache
	otps  *services.OTPService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, cache ProfileCache, otps *services.OTPService) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, cache: cache, otps: otps}
}

// RegisterRequest is the validated register payload.
type RegisterRequest struct {
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,min=8"`
	Name                 string `json:"name" validate:"required"`
	AgreeToTerms         bool   `json:"agreeToTerms" validate:"required"`
	AgreeToPrivacyPolicy bool   `json:"agreeToPrivacyPolicy" validate:"required"`
}

// Register creates an unverified user and starts the OTP gate. Registration
// alone never issues a session.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	req := middleware.ValidatedBody[RegisterRequest](c)

	var existing models.User
	err := h.db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return fiber.NewError(fiber.StatusConflict, "User already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to hash password")
	}

	user := models.User{
		Email:                req.Email,
		Name:                 req.Name,
		PasswordHash:         &passwordHash,
		ProfileURL:           defaultProfileURL,
		IsVerified:           false,
		AgreeToTerms:         req.AgreeToTerms,
		AgreeToPrivacyPolicy: req.AgreeToPrivacyPolicy,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	if err := h.issueOTP(c, &user); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully, please verify your email",
		"success": true,
		"data":    user,
	})
}

// LoginRequest is the validated login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates by password. Unverified users are re-gated on a fresh
// OTP instead of receiving a session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req := middleware.ValidatedBody[LoginRequest](c)

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User does not exist")
		}
		return err
	}

	if user.PasswordHash == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Password not set, Please set a password")
	}

	if !utils.CheckPassword(*user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid Email or Password")
	}

	if !user.IsVerified {
		if err := h.issueOTP(c, &user); err != nil {
			return err
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Email not verified, OTP sent",
			"success": false,
			"data":    fiber.Map{"redirect": "/verify-email"},
		})
	}

	token, err := utils.GenerateSessionToken(h.cfg.JWTSecret, user.ID, user.Email)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate token")
	}
	utils.SetSessionCookie(c, token, h.cfg.IsProduction())

	now := time.Now()
	user.LastLogin = &now
	if err := h.db.Model(&user).Update("last_login", now).Error; err != nil {
		return err
	}

	h.cacheProfile(c.Context(), &user)

	return c.JSON(fiber.Map{
		"message": "User logged in successfully",
		"success": true,
		"data":    user,
		"token":   token,
	})
}

// OTPRequest is the validated verify-email payload.
type OTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

// VerifyEmail redeems the OTP bound to the presented otp_token cookie and
// exchanges it for a session.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	req := middleware.ValidatedBody[OTPRequest](c)

	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
	}
	otpID, ok := middleware.GetCurrentOTPID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
	}

	var record models.OTP
	if err := h.db.First(&record, "id = ?", otpID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "OTP not found")
		}
		return err
	}

	if record.ExpiresAt.Before(time.Now()) {
		return fiber.NewError(fiber.StatusUnauthorized, "OTP expired, please request a new one")
	}

	if record.UserID != userID {
		return fiber.NewError(fiber.StatusForbidden, "Forbidden access.")
	}

	if record.Code != req.OTP {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid OTP")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("is_verified", true).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
	if err != nil {
		return err
	}
	user.IsVerified = true

	utils.ClearOTPCookie(c, h.cfg.IsProduction())

	// The verified flag and OTP deletion are already committed; a signing
	// failure past this point still has to surface as one.
	token, err := utils.GenerateSessionToken(h.cfg.JWTSecret, user.ID, user.Email)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate token")
	}
	utils.SetSessionCookie(c, token, h.cfg.IsProduction())

	h.cacheProfile(c.Context(), &user)

	return c.JSON(fiber.Map{
		"message": "Email verified successfully",
		"success": true,
		"data":    user,
		"token":   token,
	})
}

// Logout clears the session cookie and drops the cached profile. Tokens are
// not revoked server-side; a stolen token stays valid until expiry.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	utils.ClearSessionCookie(c, h.cfg.IsProduction())

	if userID, ok := middleware.GetCurrentUserID(c); ok && h.cache != nil {
		if err := h.cache.Delete(c.Context(), profileCacheKey(userID)); err != nil {
			log.Printf("[Cache] Failed to drop profile %s: %v", userID, err)
		}
	}

	return c.JSON(fiber.Map{
		"message": "User logged out successfully",
		"success": true,
	})
}

// Me returns the current user's profile, cache-first with a 24h TTL.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User unauthorized")
	}

	if h.cache != nil {
		cached, err := h.cache.Get(c.Context(), profileCacheKey(userID))
		if err == nil {
			var user models.User
			if err := json.Unmarshal([]byte(cached), &user); err == nil {
				return c.JSON(fiber.Map{"success": true, "data": user})
			}
		} else if !database.IsMiss(err) {
			log.Printf("[Cache] Failed to read profile %s: %v", userID, err)
		}
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	h.cacheProfile(c.Context(), &user)

	return c.JSON(fiber.Map{"success": true, "data": user})
}

// issueOTP runs the full issue pipeline: persist code, bind a short-lived
// token to it, set the otp_token cookie, enqueue delivery.
func (h *AuthHandler) issueOTP(c *fiber.Ctx, user *models.User) error {
	record, err := h.otps.Create(c.Context(), user.ID)
	if err != nil {
		log.Printf("[OTP] Failed to create OTP for %s: %v", user.Email, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to create OTP")
	}

	token, err := utils.GenerateOTPToken(h.cfg.JWTSecret, user.ID, user.Email, record.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate token")
	}
	utils.SetOTPCookie(c, token, h.cfg.IsProduction())

	if err := h.otps.Dispatch(c.Context(), user.Email, record.Code); err != nil {
		log.Printf("[OTP] Failed to dispatch OTP for %s: %v", user.Email, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to send OTP notification")
	}

	return nil
}

// cacheProfile refreshes the 24h profile cache entry. Best-effort: failures
// are logged only.
func (h *AuthHandler) cacheProfile(ctx context.Context, user *models.User) {
	if h.cache == nil {
		return
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, profileCacheKey(user.ID), payload, profileCacheTTL); err != nil {
		log.Printf("[Cache] Failed to cache profile %s: %v", user.ID, err)
	}
}

func profileCacheKey(userID uuid.UUID) string {
	return "user:" + userID.String()
}
