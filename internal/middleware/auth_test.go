package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestIssueAndParseToken(t *testing.T) {
	now := time.Now()
	signed, jti, err := IssueToken(testSecret, 42, "host", now)
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := ParseToken(testSecret, signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "host", claims.Role)
	assert.Equal(t, jti, claims.JTI)
	assert.WithinDuration(t, now.Add(TokenTTL), claims.ExpiresAt, time.Second)
}

func TestParseToken_Rejections(t *testing.T) {
	sign := func(claims jwt.MapClaims, secret string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		s, _ := token.SignedString([]byte(secret))
		return s
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "7",
			"iss": TokenIssuer,
			"aud": TokenAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"wrong secret", sign(base(), "other-secret"), ErrInvalidToken},
		{"expired", func() string {
			c := base()
			c["exp"] = time.Now().Add(-time.Hour).Unix()
			return sign(c, testSecret)
		}(), ErrInvalidToken},
		{"wrong issuer", func() string {
			c := base()
			c["iss"] = "someone-else"
			return sign(c, testSecret)
		}(), ErrInvalidToken},
		{"wrong audience", func() string {
			c := base()
			c["aud"] = "someone-else"
			return sign(c, testSecret)
		}(), ErrInvalidToken},
		{"non numeric subject", func() string {
			c := base()
			c["sub"] = "abc"
			return sign(c, testSecret)
		}(), ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(testSecret, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer"))
	assert.Equal(t, "", BearerToken(""))
}
