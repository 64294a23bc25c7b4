package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/internal/stores"
	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// --- Local Auth ---

type RegisterInput struct {
	Email       string      `json:"email" binding:"required,email"`
	Password    string      `json:"password" binding:"required,min=6"`
	Role        models.Role `json:"role" binding:"required"`
	DisplayName string      `json:"displayName"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func authBody(s *stores.Session) gin.H {
	user, _ := s.Auth.UserData()
	return gin.H{"token": s.Auth.Token(), "user": user}
}

func Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	s := session(c)
	if err := s.Auth.SignUp(c.Request.Context(), input.Email, input.Password, input.Role, input.DisplayName); err != nil {
		logger.Warn().Err(err).Str("email", input.Email).Msg("Registration failed")
		fail(c, err)
		return
	}

	logger.Info().Str("user_id", s.Auth.CurrentUserID()).Msg("User registered successfully")
	respond(c, http.StatusCreated, authBody(s))
}

func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	s := session(c)
	if err := s.Auth.SignIn(c.Request.Context(), input.Email, input.Password); err != nil {
		logger.Warn().Str("email", input.Email).Msg("Login failed")
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, authBody(s))
}

func Logout(c *gin.Context) {
	if err := session(c).Auth.SignOut(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func Me(c *gin.Context) {
	s := session(c)
	user, ok := s.Auth.UserData()
	if !ok {
		fail(c, stores.ErrUserNotFound)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user})
}

// --- OAuth ---

const (
	oauthStateCookie = "oauth_state"
	oauthRoleCookie  = "oauth_role"
)

var (
	googleOauthConfig *oauth2.Config

	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

func InitOAuthConfig(cfg *config.Config) {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		googleOauthConfig = nil
		logger.Warn().Msg("Google OAuth keys missing")
		return
	}
	googleOauthConfig = &oauth2.Config{
		RedirectURL:  cfg.GoogleCallbackURL,
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func GoogleLogin(c *gin.Context) {
	if googleOauthConfig == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}
	state, err := randomState()
	if err != nil {
		fail(c, err)
		return
	}
	secure := config.AppConfig.IsProduction()
	c.SetCookie(oauthStateCookie, state, 600, "/", "", secure, true)
	// role only applies when the callback creates the account
	if role := c.Query("role"); role != "" {
		c.SetCookie(oauthRoleCookie, role, 600, "/", "", secure, true)
	}
	c.Redirect(http.StatusTemporaryRedirect, googleOauthConfig.AuthCodeURL(state))
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func fetchGoogleProfile(ctx context.Context, token *oauth2.Token) (stores.OAuthProfile, error) {
	resp, err := googleOauthConfig.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return stores.OAuthProfile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return stores.OAuthProfile{}, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return stores.OAuthProfile{}, err
	}
	if info.Email == "" {
		return stores.OAuthProfile{}, fmt.Errorf("userinfo has no email")
	}
	return stores.OAuthProfile{
		Provider: "google",
		Subject:  info.ID,
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
	}, nil
}

func GoogleCallback(c *gin.Context) {
	if googleOauthConfig == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}

	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		badRequest(c, "Invalid OAuth state")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", config.AppConfig.IsProduction(), true)
	requested, _ := c.Cookie(oauthRoleCookie)

	ctx := c.Request.Context()
	token, err := googleOauthConfig.Exchange(ctx, c.Query("code"))
	if err != nil {
		logger.Error().Err(err).Msg("Google OAuth exchange failed")
		redirectOAuthError(c, "exchange_failed")
		return
	}

	profile, err := fetchGoogleProfile(ctx, token)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to get Google user info")
		redirectOAuthError(c, "userinfo_failed")
		return
	}

	// New accounts may only pick a non-admin role.
	role := models.Role(requested)
	if role != models.RoleOwner {
		role = models.RoleTenant
	}

	s := session(c)
	if err := s.Auth.SignInWithOAuth(ctx, profile, role); err != nil {
		logger.Error().Err(err).Str("email", profile.Email).Msg("Google sign-in failed")
		redirectOAuthError(c, "signin_failed")
		return
	}

	logger.Info().Str("user_id", s.Auth.CurrentUserID()).Msg("User logged in via OAuth")
	c.Redirect(http.StatusTemporaryRedirect,
		fmt.Sprintf("%s/oauth-callback?token=%s", config.AppConfig.FrontendURL, url.QueryEscape(s.Auth.Token())))
}

func redirectOAuthError(c *gin.Context, reason string) {
	c.Redirect(http.StatusTemporaryRedirect,
		fmt.Sprintf("%s/login?error=%s", config.AppConfig.FrontendURL, reason))
}
