package utils

import (
	"errors" // Token validation errors
	"time"   // Time for token expiration

	"oficina/internal/domain" // Role and identity types

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// PurposeOrderView marks tokens that grant read access to one service order
const PurposeOrderView = "os_view"

// ErrInvalidToken is returned for any token that fails signature, expiry or shape checks
var ErrInvalidToken = errors.New("invalid or expired token")

// JWT Claims for session tokens
type Claims struct {
	UserID               uint        `json:"user_id"` // Custom claim for user ID
	Name                 string      `json:"nome"`    // Display name
	Role                 domain.Role `json:"role"`    // Authorization role
	jwt.RegisteredClaims             // Standard JWT claims
}

// ViewClaims for public service-order links
type ViewClaims struct {
	OrderID              uint   `json:"os_id"`   // The only order the token opens
	Purpose              string `json:"purpose"` // Always PurposeOrderView
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateJWT creates a session token for user that expires after ttl
func GenerateJWT(user domain.Identity, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	// Set token claims
	claims := Claims{
		UserID: user.UserID, // Custom claim for user ID
		Name:   user.Name,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a session token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenStr, secret, claims); err != nil {
		return nil, err
	}
	// View tokens carry no user and must never open a session
	if claims.UserID == 0 || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateViewToken creates a public link token for one service order
func GenerateViewToken(orderID uint, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(ttl)
	claims := ViewClaims{
		OrderID: orderID,
		Purpose: PurposeOrderView,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return signed, expires, err
}

// ParseViewToken returns the order id a public link token grants access to
func ParseViewToken(tokenStr, secret string) (uint, error) {
	claims := &ViewClaims{}
	if err := parse(tokenStr, secret, claims); err != nil {
		return 0, err
	}
	if claims.Purpose != PurposeOrderView || claims.OrderID == 0 {
		return 0, ErrInvalidToken
	}
	return claims.OrderID, nil
}

func parse(tokenStr, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	// Every failure collapses to one error so callers cannot tell expiry from forgery
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
