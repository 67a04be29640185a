package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("dev-1", secret, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	deviceID, err := GetDeviceIDFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", deviceID)
}

func TestGetDeviceIDFromToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("dev-1", []byte("right"), time.Minute)
	require.NoError(t, err)

	_, err = GetDeviceIDFromToken(token, []byte("wrong"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestGetDeviceIDFromToken_Expired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("dev-1", secret, -time.Minute)
	require.NoError(t, err)

	_, err = GetDeviceIDFromToken(token, secret)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestGetDeviceIDFromToken_Garbage(t *testing.T) {
	_, err := GetDeviceIDFromToken("not.a.token", []byte("secret"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
