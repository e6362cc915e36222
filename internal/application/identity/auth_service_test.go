package identity

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/infrastructure/auth"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/madrasa/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAuthService(t *testing.T) (*AuthService, *testutil.Store, *testutil.School) {
	t.Helper()
	st := testutil.NewStore(t)
	school := st.SeedSchool(t, "NOOR")
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "access-secret-for-tests-only-32b",
		RefreshSecret:          "refresh-secret-for-tests-only-32",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "madrasa-test",
	})
	svc := NewAuthService(st.Repos, jwtService, auth.NewInMemoryTokenBlacklist(), zap.NewNop())
	return svc, st, school
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func TestAuthService_Login(t *testing.T) {
	svc, st, school := newTestAuthService(t)
	ctx := testutil.Context(t)
	accountant := st.SeedUser(t, school.TenantID(), "accounts@noor.test", identity.RoleAccountant, nil)

	result, err := svc.Login(ctx, LoginInput{Email: " Accounts@NOOR.test ", Password: testutil.TestPassword, IP: "10.0.0.7"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, accountant.ID, result.User.ID)
	assert.Equal(t, identity.RoleAccountant, result.User.Role)
	assert.Contains(t, result.User.Capabilities, string(identity.CapFeesRunBatch))

	stored, err := st.Repos.Users().FindByID(ctx, accountant.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	claims, err := svc.Authenticate(ctx, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, school.TenantID(), claims.TenantUUID())
	assert.Equal(t, accountant.ID, claims.UserUUID())

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, wrong := svc.Login(ctx, LoginInput{Email: "accounts@noor.test", Password: "nope"})
		_, unknown := svc.Login(ctx, LoginInput{Email: "ghost@noor.test", Password: testutil.TestPassword})
		assert.ErrorIs(t, wrong, identity.ErrInvalidCredentials)
		assert.ErrorIs(t, unknown, identity.ErrInvalidCredentials)
	})

	t.Run("inactive organization", func(t *testing.T) {
		other := st.SeedSchool(t, "HUDA")
		other.Org.Deactivate()
		require.NoError(t, st.Repos.Organizations().Save(ctx, other.Org))
		_, err := svc.Login(ctx, LoginInput{Email: other.Admin.Email, Password: testutil.TestPassword})
		assert.Equal(t, "ORGANIZATION_INACTIVE", errorCode(err))
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, result.RefreshToken)
		assert.Equal(t, "TOKEN_INVALID", errorCode(err))
	})
}

func TestAuthService_RefreshRotates(t *testing.T) {
	svc, _, school := newTestAuthService(t)
	ctx := testutil.Context(t)

	login, err := svc.Login(ctx, LoginInput{Email: school.Admin.Email, Password: testutil.TestPassword})
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.Equal(t, "TOKEN_REVOKED", errorCode(err), "a refresh token works once")

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)

	_, err = svc.Refresh(ctx, "garbage")
	assert.Equal(t, "TOKEN_INVALID", errorCode(err))
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, school := newTestAuthService(t)
	ctx := testutil.Context(t)

	login, err := svc.Login(ctx, LoginInput{Email: school.Admin.Email, Password: testutil.TestPassword})
	require.NoError(t, err)
	claims, err := svc.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, LogoutInput{
		AccessJTI:    claims.ID,
		AccessTTL:    claims.RemainingTTL(),
		RefreshToken: login.RefreshToken,
	}))

	_, err = svc.Authenticate(ctx, login.AccessToken)
	assert.Equal(t, "TOKEN_REVOKED", errorCode(err))
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.Equal(t, "TOKEN_REVOKED", errorCode(err))

	assert.NoError(t, svc.Logout(ctx, LogoutInput{RefreshToken: "not-a-token"}), "unusable refresh tokens are ignored")
}

func TestAuthService_MeAndChangePassword(t *testing.T) {
	svc, st, school := newTestAuthService(t)
	ctx := testutil.Context(t)
	teacher, _ := st.SeedTeacher(t, school, "ustad@noor.test")
	actor := testutil.ActorFor(teacher)

	me, err := svc.Me(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, "ustad@noor.test", me.Email)
	assert.Equal(t, &school.Branch.ID, me.BranchID)

	login, err := svc.Login(ctx, LoginInput{Email: teacher.Email, Password: testutil.TestPassword})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, actor, ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "another-secret-2"})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, actor, ChangePasswordInput{CurrentPassword: testutil.TestPassword, NewPassword: "no-digits-here"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "new password needs a letter and a number")

	require.NoError(t, svc.ChangePassword(ctx, actor, ChangePasswordInput{CurrentPassword: testutil.TestPassword, NewPassword: "another-secret-2"}))

	_, err = svc.Authenticate(ctx, login.AccessToken)
	assert.Equal(t, "TOKEN_REVOKED", errorCode(err), "tokens issued before the change are revoked")

	_, err = svc.Login(ctx, LoginInput{Email: teacher.Email, Password: testutil.TestPassword})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginInput{Email: teacher.Email, Password: "another-secret-2"})
	assert.NoError(t, err)

	other := st.SeedSchool(t, "HUDA")
	_, err = svc.Me(ctx, identityActorIn(other, actor))
	assert.True(t, shared.IsNotFound(err))
}

func TestAuthService_PasswordReset(t *testing.T) {
	svc, st, school := newTestAuthService(t)
	svc.WithResetURL("https://office.noor.test/reset?lang=en")
	ctx := testutil.Context(t)
	teacher, _ := st.SeedTeacher(t, school, "ustad@noor.test")

	login, err := svc.Login(ctx, LoginInput{Email: teacher.Email, Password: testutil.TestPassword})
	require.NoError(t, err)

	queuedResets := func(t *testing.T) []notification.EmailNotification {
		t.Helper()
		var emails []notification.EmailNotification
		require.NoError(t, st.DB.Where("template_name = ?", notification.TemplatePasswordReset).Order("created_at").Find(&emails).Error)
		return emails
	}

	t.Run("unknown email is silent", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, "nobody@noor.test"))
		assert.Empty(t, queuedResets(t))
	})

	require.NoError(t, svc.ForgotPassword(ctx, " USTAD@noor.test "))
	emails := queuedResets(t)
	require.Len(t, emails, 1)
	assert.Equal(t, "ustad@noor.test", emails[0].Recipient)
	assert.Equal(t, notification.EmailPending, emails[0].Status)

	var data map[string]string
	require.NoError(t, emails[0].DecodeContext(&data))
	link, err := url.Parse(data["reset_link"])
	require.NoError(t, err)
	assert.Equal(t, "office.noor.test", link.Host)
	assert.Equal(t, "en", link.Query().Get("lang"))
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	t.Run("weak password keeps the token usable", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetPasswordInput{Token: token, NewPassword: "no-digits-here"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("access token is not a reset token", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetPasswordInput{Token: login.AccessToken, NewPassword: "fresh-secret-9"})
		assert.Equal(t, "TOKEN_INVALID", errorCode(err))
	})

	require.NoError(t, svc.ResetPassword(ctx, ResetPasswordInput{Token: token, NewPassword: "fresh-secret-9"}))

	_, err = svc.Login(ctx, LoginInput{Email: teacher.Email, Password: testutil.TestPassword})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginInput{Email: teacher.Email, Password: "fresh-secret-9"})
	assert.NoError(t, err)

	_, err = svc.Authenticate(ctx, login.AccessToken)
	assert.Equal(t, "TOKEN_REVOKED", errorCode(err), "sessions from before the reset end")

	err = svc.ResetPassword(ctx, ResetPasswordInput{Token: token, NewPassword: "second-try-10"})
	assert.Equal(t, "TOKEN_REVOKED", errorCode(err), "a reset token works once")

	t.Run("inactive account gets no email", func(t *testing.T) {
		stored, err := st.Repos.Users().FindByID(ctx, teacher.ID)
		require.NoError(t, err)
		stored.Deactivate()
		require.NoError(t, st.Repos.Users().Save(ctx, stored))

		require.NoError(t, svc.ForgotPassword(ctx, teacher.Email))
		assert.Len(t, queuedResets(t), 1)
	})
}

func TestAuthService_PasswordResetWithoutURL(t *testing.T) {
	svc, st, school := newTestAuthService(t)
	ctx := testutil.Context(t)
	st.SeedUser(t, school.TenantID(), "accounts@noor.test", identity.RoleAccountant, nil)

	require.NoError(t, svc.ForgotPassword(ctx, "accounts@noor.test"))

	var email notification.EmailNotification
	require.NoError(t, st.DB.Where("template_name = ?", notification.TemplatePasswordReset).First(&email).Error)
	var data map[string]string
	require.NoError(t, email.DecodeContext(&data))
	assert.Empty(t, data["reset_link"])
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, school.Org.Name, data["organization"])
}

func identityActorIn(school *testutil.School, actor identity.Actor) identity.Actor {
	actor.TenantID = school.TenantID()
	return actor
}
