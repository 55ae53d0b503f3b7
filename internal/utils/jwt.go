package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes. An OTP token can never be presented where a session token is
// expected and vice versa.
const (
	PurposeSession = "session"
	PurposeOTP     = "otp"
)

// Token lifetimes. The otp_token cookie itself is capped at 10 minutes while
// the OTP record stays valid for 15.
const (
	SessionTokenTTL = 7 * 24 * time.Hour
	OTPTokenTTL     = 15 * time.Minute
	OTPCookieTTL    = 10 * time.Minute
)

// ErrTokenExpired signals an expired but otherwise well-formed token. Callers
// clear the corresponding cookie and take the re-auth path.
var ErrTokenExpired = errors.New("token expired")

// ErrTokenInvalid signals a malformed token or a bad signature.
var ErrTokenInvalid = errors.New("invalid token")

// Claims embeds the identity carried by both session and OTP tokens. OtpID is
// set only when Purpose is "otp".
type Claims struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	OtpID   string `json:"otpId,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// User returns the parsed user id from the claims.
func (c *Claims) User() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// Otp returns the parsed OTP record id from the claims.
func (c *Claims) Otp() (uuid.UUID, error) {
	return uuid.Parse(c.OtpID)
}

// GenerateSessionToken signs a 7-day session credential.
func GenerateSessionToken(secret string, userID uuid.UUID, email string) (string, error) {
	return sign(secret, &Claims{
		UserID:  userID.String(),
		Email:   email,
		Purpose: PurposeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(SessionTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

// GenerateOTPToken signs a short-lived credential bound to one OTP record.
func GenerateOTPToken(secret string, userID uuid.UUID, email string, otpID uuid.UUID) (string, error) {
	return sign(secret, &Claims{
		UserID:  userID.String(),
		Email:   email,
		OtpID:   otpID.String(),
		Purpose: PurposeOTP,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(OTPTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

func sign(secret string, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and checks the purpose discriminator.
// Expired tokens map to ErrTokenExpired, everything else bad to ErrTokenInvalid.
func ParseToken(secret, tokenString, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Purpose != purpose {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
