package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/piloted/finsync/internal/models"
)

// AuthMiddleware validates the bearer token and places the user id in
// the request context. Every request without a valid token is rejected
// with the NotAuthenticated condition.
func AuthMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid token format")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "Invalid token claims")
			return
		}
		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			abortUnauthorized(c, "Invalid user ID in token")
			return
		}

		c.Set("userId", userID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    "NOT_AUTHENTICATED",
		Message: message,
	})
	c.Abort()
}

// userID pulls the authenticated user id out of the gin context.
func userID(c *gin.Context) string {
	id, _ := c.Get("userId")
	s, _ := id.(string)
	return s
}
