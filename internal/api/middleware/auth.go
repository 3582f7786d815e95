package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/vanshpatelx/Opinex/internal/models"
)

// contextKey is a type for context keys
type contextKey string

// CallerContextKey holds the authenticated models.Caller.
const CallerContextKey contextKey = "caller"

// Claims is the JWT payload issued by the auth service.
type Claims struct {
	ID   string `json:"id"`
	Role string `json:"type"`
	jwt.RegisteredClaims
}

// JWTAuth validates HMAC-signed bearer tokens and stores the caller in the
// gin context.
func JWTAuth(secret []byte) gin.HandlerFunc {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Missing Authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			unauthorized(c, "Invalid token format")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc)
		if err != nil {
			log.Warn().Err(err).Msg("JWT parse error")
			switch {
			case errors.Is(err, jwt.ErrTokenSignatureInvalid):
				unauthorized(c, "Invalid token signature")
			case errors.Is(err, jwt.ErrTokenExpired):
				unauthorized(c, "Token expired")
			default:
				unauthorized(c, "Invalid token")
			}
			return
		}
		if !token.Valid {
			unauthorized(c, "Invalid token")
			return
		}

		id, err := strconv.ParseInt(claims.ID, 10, 64)
		role := models.Role(claims.Role)
		if err != nil || !role.Valid() {
			log.Warn().Str("id", claims.ID).Str("type", claims.Role).Msg("Invalid token claims")
			unauthorized(c, "Invalid token")
			return
		}

		c.Set(string(CallerContextKey), models.Caller{ID: id, Role: role})
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message, "code": "UNAUTHORIZED"})
}

// GetCallerFromContext retrieves the authenticated caller from the context
func GetCallerFromContext(c *gin.Context) (models.Caller, error) {
	callerVal, exists := c.Get(string(CallerContextKey))
	if !exists {
		return models.Caller{}, errors.New("caller not found in context")
	}

	caller, ok := callerVal.(models.Caller)
	if !ok {
		return models.Caller{}, errors.New("caller in context has incorrect type")
	}

	return caller, nil
}
