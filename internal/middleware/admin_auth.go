package middleware

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func jwtSecret() []byte {
	return []byte(os.Getenv("ADMIN_JWT_SECRET"))
}

// RequireAdmin guards the dashboard API with a bearer JWT issued by
// IssueAdminToken.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := jwtSecret()
		if len(secret) == 0 {
			return c.Status(500).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(401).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			return c.Status(401).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		return c.Next()
	}
}

// IssueAdminToken signs a 24h admin token.
func IssueAdminToken() (string, error) {
	secret := jwtSecret()
	if len(secret) == 0 {
		return "", fmt.Errorf("ADMIN_JWT_SECRET not set")
	}

	claims := jwt.MapClaims{
		"role": "admin",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
