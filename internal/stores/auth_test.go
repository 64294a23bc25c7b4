package stores

import (
	"context"
	"testing"

	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpSignInSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	revoker := &recordingRevoker{}
	s := NewSession(ctx, Deps{Gateway: f.gw, Notifier: f.toasts, Users: f.users, Revoker: revoker})
	defer s.Close()

	require.NoError(t, s.Auth.SignUp(ctx, " Ada@Example.com ", "hunter22", models.RoleOwner, "Ada"))
	st := s.Auth.State()
	require.NotNil(t, st.UserData)
	assert.Equal(t, "ada@example.com", st.UserData.Email)
	assert.Equal(t, models.RoleOwner, s.Auth.Role())
	assert.NotEmpty(t, s.Auth.Token())
	assert.NotEqual(t, "hunter22", st.UserData.PasswordHash)
	last, _ := f.toasts.Last()
	assert.Equal(t, "Account created", last.Title)

	claims, err := utils.ValidateToken(s.Auth.Token())
	require.NoError(t, err)
	assert.Equal(t, st.UID, claims.UserID)
	assert.Equal(t, "owner", claims.Role)

	require.NoError(t, s.Auth.SignOut(ctx))
	assert.Empty(t, s.Auth.CurrentUserID())
	assert.Empty(t, s.Auth.Token())
	last, _ = f.toasts.Last()
	assert.Equal(t, Toast{Variant: VariantInfo, Title: "Logged out", Description: "You have been logged out successfully"}, last)
	require.Contains(t, revoker.revoked, claims.GetJTI())
	assert.Positive(t, revoker.revoked[claims.GetJTI()])

	err = s.Auth.SignIn(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	last, _ = f.toasts.Last()
	assert.Equal(t, "Login failed", last.Title)
	assert.Equal(t, "Invalid email or password", s.Auth.State().Error)

	require.NoError(t, s.Auth.SignIn(ctx, "ADA@example.com", "hunter22"))
	assert.Equal(t, st.UID, s.Auth.CurrentUserID())
	assert.Empty(t, s.Auth.State().Error)
}

func TestSignUp_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t)

	require.NoError(t, s.Auth.SignUp(ctx, "ada@example.com", "pw", models.RoleTenant, "Ada"))

	other := f.session(t)
	assert.ErrorIs(t, other.Auth.SignUp(ctx, "ada@example.com", "pw2", models.RoleTenant, "Ada2"), ErrEmailInUse)
	last, _ := f.toasts.Last()
	assert.Equal(t, Toast{Variant: VariantError, Title: "Registration failed", Description: "Email already in use"}, last)
	assert.ErrorIs(t, other.Auth.SignUp(ctx, "new@example.com", "pw", "landlord", "X"), ErrInvalidRole)
	assert.Empty(t, other.Auth.CurrentUserID())
}

func TestSignInWithOAuth_CreatesThenLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := OAuthProfile{Provider: "google", Subject: "g-1", Email: "grace@example.com", Name: "Grace", Picture: "http://img/g.png"}

	first := f.session(t)
	require.NoError(t, first.Auth.SignInWithOAuth(ctx, profile, ""))
	u, ok := first.Auth.UserData()
	require.True(t, ok)
	assert.Equal(t, models.RoleTenant, u.Role)
	assert.Equal(t, "google", u.Provider)
	last, _ := f.toasts.Last()
	assert.Equal(t, "Account created", last.Title)

	second := f.session(t)
	require.NoError(t, second.Auth.SignInWithOAuth(ctx, profile, models.RoleOwner))
	assert.Equal(t, u.ID, second.Auth.CurrentUserID())
	assert.Equal(t, models.RoleTenant, second.Auth.Role())
	last, _ = f.toasts.Last()
	assert.Equal(t, "Welcome back", last.Title)

	// A password sign-in is impossible for an OAuth-only account.
	assert.ErrorIs(t, second.Auth.SignIn(ctx, "grace@example.com", ""), ErrInvalidCredentials)
}

func TestRestore_MissingProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := utils.GenerateToken("ghost", "tenant")
	require.NoError(t, err)
	claims, err := utils.ValidateToken(token)
	require.NoError(t, err)

	s := f.session(t)
	s.Auth.Restore(ctx, token, claims)
	st := s.Auth.State()
	assert.Equal(t, "ghost", st.UID)
	assert.Nil(t, st.UserData)
	assert.Empty(t, st.Error)
	assert.Equal(t, models.Role(""), s.Auth.Role())
}

func TestUserDirectory_Cache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signedIn(t, "u1", models.RoleTenant)

	u, err := f.users.Lookup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", u.Email)

	require.NoError(t, f.gw.Delete(ctx, models.CollectionUsers, "u1"))
	cached, err := f.users.Lookup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, cached.ID)

	f.users.Invalidate("u1")
	_, err = f.users.Lookup(ctx, "u1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
