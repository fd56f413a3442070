package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/excuse-lab/excuse-api/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	bearerPrefix = "Bearer"

	// supabaseAudience is the aud claim on access tokens for signed-in users
	supabaseAudience = "authenticated"

	contextUserID    = "user_id"
	contextUserEmail = "user_email"
)

// Claims are the parts of a Supabase access token the API reads
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

var errMissingSubject = errors.New("token has no subject")

// ParseToken verifies an HS256 access token signed with the project's JWT secret
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(supabaseAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	if claims.Subject == "" {
		return nil, errMissingSubject
	}
	return claims, nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == bearerPrefix {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// OptionalAuth attaches the caller when a valid token is present and never rejects
func OptionalAuth(cfg *config.Config) gin.HandlerFunc {
	if !cfg.IsSupabaseAuth() {
		return NoAuth()
	}

	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if claims, err := ParseToken(tokenString, cfg.SupabaseJWTSecret); err == nil {
				setUser(c, claims)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid token with 401. With AUTH_MODE=none every
// request passes as anonymous.
func RequireAuth(cfg *config.Config) gin.HandlerFunc {
	if !cfg.IsSupabaseAuth() {
		return NoAuth()
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		claims, err := ParseToken(tokenString, cfg.SupabaseJWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		setUser(c, claims)
		c.Next()
	}
}

func setUser(c *gin.Context, claims *Claims) {
	c.Set(contextUserID, claims.Subject)
	c.Set(contextUserEmail, claims.Email)
}

// GetCurrentUserID returns the authenticated caller's id
func GetCurrentUserID(c *gin.Context) (string, bool) {
	id := c.GetString(contextUserID)
	return id, id != ""
}

// GetCurrentUserEmail returns the authenticated caller's email
func GetCurrentUserEmail(c *gin.Context) (string, bool) {
	email := c.GetString(contextUserEmail)
	return email, email != ""
}
