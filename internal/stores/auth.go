package stores

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/pkg/utils"
	"golang.org/x/crypto/bcrypt"
)

// Revoker invalidates a session token before its expiry.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type noopRevoker struct{}

func (noopRevoker) Revoke(context.Context, string, time.Duration) error { return nil }

// OAuthProfile is the identity returned by a third-party sign-in.
type OAuthProfile struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Picture  string
}

type AuthState struct {
	UID       string       `json:"uid,omitempty"`
	UserData  *models.User `json:"userData"`
	IsLoading bool         `json:"isLoading"`
	Error     string       `json:"error,omitempty"`
}

// AuthStore holds the identity of one session.
type AuthStore struct {
	storeBase
	gw      gateway.Gateway
	users   *UserDirectory
	revoker Revoker

	uid    string
	user   *models.User
	token  string
	claims *utils.Claims
}

func newAuthStore(gw gateway.Gateway, users *UserDirectory, revoker Revoker, notifier Notifier) *AuthStore {
	s := &AuthStore{gw: gw, users: users, revoker: revoker}
	s.setup("auth", notifier)
	return s
}

func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := AuthState{UID: s.uid, IsLoading: s.loading(), Error: s.err}
	if s.user != nil {
		u := *s.user
		st.UserData = &u
	}
	return st
}

// CurrentUserID is "" for anonymous sessions.
func (s *AuthStore) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

func (s *AuthStore) Role() models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.Role
}

func (s *AuthStore) UserData() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Token is the session token issued by the last sign-in.
func (s *AuthStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *AuthStore) signedIn(u models.User, token string, claims *utils.Claims) {
	s.mu.Lock()
	s.uid = u.ID
	s.user = &u
	s.token = token
	s.claims = claims
	s.mu.Unlock()
}

func (s *AuthStore) issue(u models.User) error {
	token, err := utils.GenerateToken(u.ID, string(u.Role))
	if err != nil {
		return err
	}
	claims, err := utils.ValidateToken(token)
	if err != nil {
		return err
	}
	s.signedIn(u, token, claims)
	return nil
}

func (s *AuthStore) SignUp(ctx context.Context, email, password string, role models.Role, displayName string) error {
	err := s.track("signUp", func() error {
		if !role.Valid() {
			return ErrInvalidRole
		}
		email = strings.ToLower(strings.TrimSpace(email))

		_, err := s.users.FindByEmail(ctx, email)
		if err == nil {
			return ErrEmailInUse
		}
		if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		now := time.Now()
		u := models.User{
			ID:           utils.GenerateID(),
			Email:        email,
			DisplayName:  displayName,
			Role:         role,
			Provider:     "password",
			PasswordHash: string(hash),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.gw.Create(ctx, models.CollectionUsers, &u); err != nil {
			return err
		}
		s.users.Put(u)
		return s.issue(u)
	})
	if err != nil {
		s.failure("Registration failed", err)
		return err
	}
	s.toast(VariantSuccess, "Account created", "Your account has been created successfully")
	return nil
}

func (s *AuthStore) SignIn(ctx context.Context, email, password string) error {
	err := s.track("signIn", func() error {
		u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return ErrInvalidCredentials
		}
		return s.issue(u)
	})
	if err != nil {
		s.failure("Login failed", err)
		return err
	}
	s.toast(VariantSuccess, "Welcome back", "You have been logged in successfully")
	return nil
}

// SignInWithOAuth signs in the account matching the profile's email, creating
// it with defaultRole on first sign-in.
func (s *AuthStore) SignInWithOAuth(ctx context.Context, profile OAuthProfile, defaultRole models.Role) error {
	if defaultRole == "" {
		defaultRole = models.RoleTenant
	}

	created := false
	err := s.track("signInWithOAuth", func() error {
		if !defaultRole.Valid() {
			return ErrInvalidRole
		}
		email := strings.ToLower(strings.TrimSpace(profile.Email))

		u, err := s.users.FindByEmail(ctx, email)
		if err == nil {
			return s.issue(u)
		}
		if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		now := time.Now()
		u = models.User{
			ID:          utils.GenerateID(),
			Email:       email,
			DisplayName: profile.Name,
			Role:        defaultRole,
			PhotoURL:    profile.Picture,
			Provider:    profile.Provider,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.gw.Create(ctx, models.CollectionUsers, &u); err != nil {
			return err
		}
		s.users.Put(u)
		created = true
		return s.issue(u)
	})
	if err != nil {
		s.failure("Google login failed", err)
		return err
	}
	if created {
		s.toast(VariantSuccess, "Account created", "Your account has been created successfully with Google")
	} else {
		s.toast(VariantSuccess, "Welcome back", "You have been logged in successfully with Google")
	}
	return nil
}

// SignOut revokes the session token and forgets the identity.
func (s *AuthStore) SignOut(ctx context.Context) error {
	s.mu.Lock()
	claims := s.claims
	s.mu.Unlock()

	if claims != nil {
		if ttl := time.Until(claims.GetExpiresAt()); ttl > 0 {
			if err := s.revoker.Revoke(ctx, claims.GetJTI(), ttl); err != nil {
				s.mu.Lock()
				s.err = err.Error()
				s.mu.Unlock()
				s.failure("Logout failed", err)
				return err
			}
		}
	}

	s.mu.Lock()
	s.uid, s.user, s.token, s.claims = "", nil, "", nil
	s.mu.Unlock()

	s.toast(VariantInfo, "Logged out", "You have been logged out successfully")
	return nil
}

// Restore attaches a verified token to the session and resolves the profile.
// A token whose user record is missing still yields a signed-in session with
// no UserData.
func (s *AuthStore) Restore(ctx context.Context, token string, claims *utils.Claims) {
	s.mu.Lock()
	s.uid = claims.UserID
	s.token = token
	s.claims = claims
	s.mu.Unlock()

	_ = s.track("restore", func() error {
		u, err := s.users.Lookup(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil
			}
			return err
		}
		s.mu.Lock()
		s.user = &u
		s.mu.Unlock()
		return nil
	})
}

// Lookup resolves another user's profile through the shared directory.
func (s *AuthStore) Lookup(ctx context.Context, uid string) (models.User, error) {
	return s.users.Lookup(ctx, uid)
}
