package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lamyj/sycomore/shared/types"
)

// AuthMiddleware validates a bearer JWT issued out-of-band against
// jwtSecret. The console has no user database (see DESIGN.md: dropped
// dependencies), so there is no per-user lookup here — a valid
// signature is the whole check.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := types.NewRequestID()
		c.Set("request_id", requestID)

		authHeader := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, types.NewAPIError(types.New(
				types.Unauthorized,
				"missing bearer token",
				"Authorization header must be 'Bearer <token>'",
			), requestID))
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, types.NewAPIError(types.New(
				types.Unauthorized, "invalid token", errString(err),
			), requestID))
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			c.Set("scopes", claims["scopes"])
		}
		c.Next()
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// CORSMiddleware handles CORS headers for browser-based console clients.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
