package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/coursehub/internal/models"
)

// OTPValidity is how long a persisted code stays redeemable.
const OTPValidity = 15 * time.Minute

// OTPService drives the one-time-code lifecycle: generate, persist, dispatch.
type OTPService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewOTPService constructs an OTPService.
func NewOTPService(db *gorm.DB, notifier Notifier) *OTPService {
	return &OTPService{db: db, notifier: notifier}
}

// GenerateOTPCode returns a cryptographically random 6-digit code, uniform
// over 000000-999999 and zero-padded.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// OTPNotification is the out-of-band delivery message shape.
type OTPNotification struct {
	Type      string `json:"type"`
	Email     string `json:"email"`
	OTP       string `json:"otp"`
	Timestamp string `json:"timestamp"`
}

// Create generates and persists a fresh OTP record for the user. A previously
// issued, still-valid record for the same user is not deleted; the newest
// token-bound record supersedes it logically.
func (s *OTPService) Create(ctx context.Context, userID uuid.UUID) (*models.OTP, error) {
	code, err := GenerateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate OTP code: %w", err)
	}

	record := models.OTP{
		UserID:    userID,
		Code:      code,
		ExpiresAt: time.Now().Add(OTPValidity),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("persist OTP: %w", err)
	}

	return &record, nil
}

// Dispatch enqueues the out-of-band delivery message for a created record.
func (s *OTPService) Dispatch(ctx context.Context, email, code string) error {
	notification := OTPNotification{
		Type:      "send-otp",
		Email:     email,
		OTP:       code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.notifier.Publish(ctx, notification); err != nil {
		return fmt.Errorf("dispatch OTP notification: %w", err)
	}

	return nil
}
