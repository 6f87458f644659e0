package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleOwner    Role = "owner"
)

var (
	ErrMissingClaims = errors.New("token claims are missing or invalid")
	ErrInvalidToken  = errors.New("invalid token")

	ErrManagerRequired = errors.New("manager access required")
)

// Claims carried by access tokens. Tokens are issued by the identity
// service; this service only verifies them.
type Claims struct {
	UserID         string
	EmployeeID     string
	OrganizationID string
	Role           Role
}

// CanManage reports whether the caller may approve and correct shifts.
func (c Claims) CanManage() bool {
	return c.Role == RoleManager || c.Role == RoleOwner
}

// ClaimsFromContext reads the claims verified by jwtauth.Verifier.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	organizationID, ok := claims["organization_id"].(string)
	if !ok || organizationID == "" {
		return Claims{}, fmt.Errorf("%w: organization_id", ErrMissingClaims)
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, fmt.Errorf("%w: user_id", ErrMissingClaims)
	}

	employeeID, _ := claims["employee_id"].(string)
	role, _ := claims["role"].(string)

	return Claims{
		UserID:         userID,
		EmployeeID:     employeeID,
		OrganizationID: organizationID,
		Role:           Role(role),
	}, nil
}

type Service interface {
	GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error)
	GenerateSSEToken(organizationID string, userID string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (organizationID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime time.Duration) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenExpirationTime).Unix()

	payload := map[string]interface{}{
		"user_id":         claims.UserID,
		"organization_id": claims.OrganizationID,
		"role":            string(claims.Role),
		"type":            "access",
		"exp":             expiresAt,
	}
	if claims.EmployeeID != "" {
		payload["employee_id"] = claims.EmployeeID
	}

	_, tokenString, err := j.tokenAuth.Encode(payload)
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(organizationID string, userID string) (token string, expiresIn int, err error) {
	expiresIn = 300
	expiresAt := time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":         userID,
		"organization_id": organizationID,
		"type":            "sse",
		"exp":             expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns the organization it streams
func (j *JWTService) ValidateSSEToken(tokenString string) (organizationID string, err error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return "", ErrInvalidToken
	}

	orgVal, ok := token.Get("organization_id")
	if !ok {
		return "", ErrInvalidToken
	}

	organizationID, ok = orgVal.(string)
	if !ok || organizationID == "" {
		return "", ErrInvalidToken
	}

	return organizationID, nil
}
