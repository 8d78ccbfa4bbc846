package services_test

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"workforce_backend/internal/auth"
	"workforce_backend/internal/models"
	"workforce_backend/internal/services/dto"
	"workforce_backend/internal/testutil"
	"workforce_backend/pkg/apperrors"
	"workforce_backend/pkg/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	auth.Configure("test-secret", time.Hour)
	auth.SetHashCost(bcrypt.MinCost)
}

func TestAuth_LoginIssuesTokenWithCapabilities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hr := testutil.CreateUser(t, env.db, "Helen", "helen@example.com", models.UserRoleHR)

	resp, err := env.svc.AuthService.Login(ctx, env.db, &dto.LoginRequest{Email: "HELEN@example.com", Password: testutil.DefaultPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, hr.ID, resp.User.ID)
	assert.Contains(t, resp.User.Capabilities, string(auth.CapCreateAnnouncements))

	claims, err := auth.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, hr.ID, claims.UserID)
	assert.Equal(t, models.UserRoleHR, claims.Role)

	_, err = env.svc.AuthService.Login(ctx, env.db, &dto.LoginRequest{Email: hr.Email, Password: "wrong-password"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.svc.AuthService.Login(ctx, env.db, &dto.LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuth_RegisterAnnouncesNewEmployee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.db, "Admin", "admin@example.com", models.UserRoleAdmin)

	user, err := env.svc.AuthService.Register(ctx, env.db, &dto.RegisterRequest{
		Name:     " Nora ",
		Email:    "nora@example.com",
		Password: "s3cret-pass",
		Role:     models.UserRoleEmployee,
	})
	require.NoError(t, err)
	assert.Equal(t, "Nora", user.Name)
	assert.Equal(t, models.UserModelEmployee, user.Model)

	assert.Len(t, env.gw.For(admin.ID, realtime.EventEmployeeJoined), 1)
	assert.Equal(t, 1, env.svc.NotificationService.GetUnreadCount(ctx, admin.ID))

	_, err = env.svc.AuthService.Register(ctx, env.db, &dto.RegisterRequest{
		Name: "Dup", Email: "NORA@example.com", Password: "s3cret-pass", Role: models.UserRoleEmployee,
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	_, err = env.svc.AuthService.Register(ctx, env.db, &dto.RegisterRequest{
		Name: "Weak", Email: "weak@example.com", Password: "short", Role: models.UserRoleEmployee,
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
}

func TestAuth_SeedFirstAdminIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.AuthService.SeedFirstAdmin(ctx, env.db, "", "root@example.com", "bootstrap-pass"))
	require.NoError(t, env.svc.AuthService.SeedFirstAdmin(ctx, env.db, "", "other@example.com", "bootstrap-pass"))

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	resp, err := env.svc.AuthService.Login(ctx, env.db, &dto.LoginRequest{Email: "root@example.com", Password: "bootstrap-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, resp.User.Role)
	assert.Equal(t, "Administrator", resp.User.Name)

	me, err := env.svc.AuthService.Me(ctx, env.db, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, me.ID)

	// без email сид пропускается
	require.NoError(t, env.svc.AuthService.SeedFirstAdmin(ctx, env.db, "", "", ""))
}
