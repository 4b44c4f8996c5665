package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/feedback-api/infrastructure/jwt"
)

const secret = "test-secret"

func TestParseBearer(t *testing.T) {
	valid, err := jwt.Sign(secret, jwt.Claims{
		Sub: "admin",
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	expired, err := jwt.Sign(secret, jwt.Claims{
		Sub: "admin",
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	require.NoError(t, err)

	otherSecret, err := jwt.Sign("other", jwt.Claims{Sub: "admin"})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		header  string
		wantErr error
	}{
		{name: "valid", header: "Bearer " + valid},
		{name: "missing", header: "", wantErr: jwt.ErrMissingToken},
		{name: "wrong scheme", header: "Basic abc", wantErr: jwt.ErrInvalidFormat},
		{name: "expired", header: "Bearer " + expired, wantErr: jwt.ErrInvalidToken},
		{name: "wrong secret", header: "Bearer " + otherSecret, wantErr: jwt.ErrInvalidToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			claims, parseErr := jwt.ParseBearer(tc.header, secret)
			if tc.wantErr != nil {
				assert.ErrorIs(t, parseErr, tc.wantErr)
				return
			}
			require.NoError(t, parseErr)
			assert.Equal(t, "admin", claims.Sub)
		})
	}
}
