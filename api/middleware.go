package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mkazantsev/tablebook/internal/domain"
)

const (
	ctxUserID = "userID"
	ctxEmail  = "email"
	ctxAdmin  = "admin"
)

// Auth validates a Bearer token and stores the caller's identity on the gin
// context. Token issuance happens in a separate auth service; only HMAC
// validation lives here.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		email, _ := claims["email"].(string)
		role, _ := claims["role"].(string)

		c.Set(ctxUserID, sub)
		c.Set(ctxEmail, email)
		c.Set(ctxAdmin, role == "admin")
		c.Next()
	}
}

func requesterFrom(c *gin.Context) domain.Requester {
	return domain.Requester{
		UserID: c.GetString(ctxUserID),
		Email:  c.GetString(ctxEmail),
		Admin:  c.GetBool(ctxAdmin),
	}
}
