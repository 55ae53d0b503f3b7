package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/example/coursehub/internal/config"
	"github.com/example/coursehub/internal/models"
	"github.com/example/coursehub/internal/utils"
)

const (
	oauthStateCookie  = "oauth_state"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// OAuthHandler drives the Google redirect chain. Failures signal via
// redirects back to the frontend, never JSON bodies.
type OAuthHandler struct {
	db          *gorm.DB
	cfg         *config.Config
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// NewOAuthHandler constructs an OAuthHandler talking to Google.
func NewOAuthHandler(db *gorm.DB, cfg *config.Config) *OAuthHandler {
	return NewOAuthHandlerWithProvider(db, cfg, google.Endpoint, googleUserInfoURL, nil)
}

// NewOAuthHandlerWithProvider constructs an OAuthHandler against an explicit
// provider endpoint, userinfo URL and HTTP client. A nil client means the
// token-scoped oauth2 client.
func NewOAuthHandlerWithProvider(db *gorm.DB, cfg *config.Config, endpoint oauth2.Endpoint, userInfoURL string, client *http.Client) *OAuthHandler {
	return &OAuthHandler{
		db:  db,
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.OAuthCallbackURL + "/api/auth/google/callback",
			Scopes:       []string{"email", "profile"},
		},
		userInfoURL: userInfoURL,
		client:      client,
	}
}

// GoogleAuth redirects the browser into the Google consent flow with a
// random state value pinned in a short-lived cookie.
func (h *OAuthHandler) GoogleAuth(c *fiber.Ctx) error {
	state, err := randomState()
	if err != nil {
		return h.failRedirect(c, "auth_failed")
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect(h.oauth.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleCallback exchanges the authorization code, finds or creates the
// user, links the Google identity if unlinked, and issues a session.
// OAuth-authenticated users skip the OTP gate.
func (h *OAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(oauthStateCookie) {
		log.Println("[OAuth] State mismatch in Google callback")
		return h.failRedirect(c, "auth_failed")
	}

	code := c.Query("code")
	if code == "" {
		return h.failRedirect(c, "auth_failed")
	}

	var ctx context.Context = c.Context()
	if h.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, h.client)
	}

	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		log.Printf("[OAuth] Token exchange failed: %v", err)
		return h.failRedirect(c, "auth_failed")
	}

	info, err := h.fetchUserInfo(c, token)
	if err != nil {
		log.Printf("[OAuth] Failed to fetch Google user: %v", err)
		return h.failRedirect(c, "auth_failed")
	}

	if info.Email == "" {
		log.Println("[OAuth] No email in Google profile")
		return h.failRedirect(c, "auth_failed")
	}

	user, err := h.findOrCreateUser(info)
	if err != nil {
		log.Printf("[OAuth] Failed to find or create user: %v", err)
		return h.failRedirect(c, "user_not_found")
	}

	sessionToken, err := utils.GenerateSessionToken(h.cfg.JWTSecret, user.ID, user.Email)
	if err != nil {
		log.Printf("[OAuth] Failed to sign session token: %v", err)
		return h.failRedirect(c, "auth_failed")
	}
	utils.SetSessionCookie(c, sessionToken, h.cfg.IsProduction())

	return c.Redirect(h.cfg.FrontendURL+"/oauth2/redirect?token="+sessionToken, fiber.StatusTemporaryRedirect)
}

func (h *OAuthHandler) fetchUserInfo(c *fiber.Ctx, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.client
	if client == nil {
		client = oauth2.NewClient(c.Context(), oauth2.StaticTokenSource(token))
	}

	resp, err := client.Get(h.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("google userinfo returned non-200 status")
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// findOrCreateUser looks the account up by email. A new account is created
// verified per the provider's own email-verification flag; an existing
// unlinked account gets the Google identity attached.
func (h *OAuthHandler) findOrCreateUser(info *googleUserInfo) (*models.User, error) {
	now := time.Now()

	var user models.User
	err := h.db.Where("email = ?", info.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:                info.Email,
			Name:                 info.Name,
			GoogleID:             &info.ID,
			IsVerified:           info.VerifiedEmail,
			ProfileURL:           info.Picture,
			AgreeToTerms:         true,
			AgreeToPrivacyPolicy: true,
			LastLogin:            &now,
		}
		if user.ProfileURL == "" {
			user.ProfileURL = defaultProfileURL
		}
		if err := h.db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"last_login": now}
	if user.GoogleID == nil {
		updates["google_id"] = info.ID
		updates["is_verified"] = info.VerifiedEmail || user.IsVerified
	}
	if err := h.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	user.LastLogin = &now

	return &user, nil
}

func (h *OAuthHandler) failRedirect(c *fiber.Ctx, reason string) error {
	return c.Redirect(h.cfg.FrontendURL+"/login?error="+reason, fiber.StatusTemporaryRedirect)
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
