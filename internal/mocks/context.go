package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

const testSecret = "test-secret-key-for-jwt"

// ContextWithClaims returns a context carrying a verified token for claims,
// as jwtauth.Verifier would leave it.
func ContextWithClaims(t testing.TB, claims jwt.Claims) context.Context {
	t.Helper()

	svc := jwt.NewJWTService(testSecret, time.Hour)
	token, _, err := svc.GenerateAccessToken(claims)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	decoded, err := svc.JWTAuth().Decode(token)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return jwtauth.NewContext(context.Background(), decoded, nil)
}
