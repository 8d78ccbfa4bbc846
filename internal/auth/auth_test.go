package auth

import (
	"testing"
	"time"

	"workforce_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilities_ByRole(t *testing.T) {
	assert.True(t, Can(models.UserRoleHR, CapCreateAnnouncements))
	assert.True(t, Can(models.UserRoleAccountant, CapViewPayroll))
	assert.False(t, Can(models.UserRoleEmployee, CapCreateAnnouncements))
	assert.False(t, Can(models.UserRoleManager, CapViewPayroll))

	for _, role := range models.AllRoles {
		assert.True(t, Capabilities(role).Has(CapSendMessages), string(role))
	}

	assert.Empty(t, Capabilities("janitor"))
}

func TestCapabilities_ListIsSorted(t *testing.T) {
	list := Capabilities(models.UserRoleAdmin).List()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1], list[i])
	}
}

func TestToken_RoundTrip(t *testing.T) {
	Configure("test-secret", time.Hour)

	token, exp, err := GenerateToken("user-1", models.UserRoleManager)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.UserRoleManager, claims.Role)
}

func TestToken_RejectsWrongSecret(t *testing.T) {
	Configure("one", time.Hour)
	token, _, err := GenerateToken("user-1", models.UserRoleEmployee)
	require.NoError(t, err)

	Configure("two", time.Hour)
	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.Error(t, ValidatePassword("short"))
}
