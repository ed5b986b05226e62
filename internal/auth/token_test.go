package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/wingsite/internal/model"
)

const testSecret = "test-secret-that-is-long-enough-123456"

func testUser() model.User {
	return model.User{ID: 42, Email: "ada@example.com", Role: model.RoleAdmin, Name: "Ada"}
}

func TestTokenManager_IssueVerify(t *testing.T) {
	m := NewTokenManager(testSecret)

	token, expires, err := m.Issue(testUser())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expires, time.Minute)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.IsAdmin())
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager(testSecret)
	issued := time.Now().Add(-25 * time.Hour)
	m.now = func() time.Time { return issued }

	token, _, err := m.Issue(testUser())
	require.NoError(t, err)

	// Still valid just before expiry.
	m.now = func() time.Time { return issued.Add(TokenTTL - time.Minute) }
	_, err = m.Verify(token)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenManager_Invalid(t *testing.T) {
	m := NewTokenManager(testSecret)
	token, _, err := m.Issue(testUser())
	require.NoError(t, err)

	other := NewTokenManager("another-secret-that-is-long-enough-1234")
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	parts := strings.Split(token, ".")
	_, err = m.Verify(parts[0] + "." + parts[1] + ".tampered")
	assert.ErrorIs(t, err, ErrInvalidToken, "tampered signature")

	_, err = m.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken, "empty")

	_, err = m.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken, "garbage")
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	m := NewTokenManager(testSecret)

	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RequiresExpiry(t *testing.T) {
	m := NewTokenManager(testSecret)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
