package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Cookie names for the two token kinds.
const (
	AccessTokenCookie = "access_token"
	OTPTokenCookie    = "otp_token"
)

// SetSessionCookie attaches the signed session token as an HTTP-only cookie.
func SetSessionCookie(c *fiber.Ctx, token string, production bool) {
	setTokenCookie(c, AccessTokenCookie, token, SessionTokenTTL, production)
}

// SetOTPCookie attaches the signed OTP token. The cookie expires before the
// OTP record does; a stale cookie forces a fresh issue.
func SetOTPCookie(c *fiber.Ctx, token string, production bool) {
	setTokenCookie(c, OTPTokenCookie, token, OTPCookieTTL, production)
}

// ClearSessionCookie removes the session cookie. Idempotent.
func ClearSessionCookie(c *fiber.Ctx, production bool) {
	expireCookie(c, AccessTokenCookie, production)
}

// ClearOTPCookie removes the OTP cookie. Idempotent.
func ClearOTPCookie(c *fiber.Ctx, production bool) {
	expireCookie(c, OTPTokenCookie, production)
}

func setTokenCookie(c *fiber.Ctx, name, token string, ttl time.Duration, production bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   production,
		SameSite: sameSite(production),
	})
}

func expireCookie(c *fiber.Ctx, name string, production bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   production,
		SameSite: sameSite(production),
	})
}

func sameSite(production bool) string {
	if production {
		return fiber.CookieSameSiteNoneMode
	}
	return fiber.CookieSameSiteLaxMode
}
