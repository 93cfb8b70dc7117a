// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ViewerTokenTTL = 12 * time.Hour

	// LocalsUsername is where JwtMiddleware stores the viewer's username.
	LocalsUsername = "username"
)

var ErrInvalidViewerToken = errors.New("invalid viewer token")

// IssueViewerToken signs a token that lets a browser talk to this dashboard
// server on behalf of username.
func IssueViewerToken(secret, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseViewerToken returns the username a valid token was issued for.
func ParseViewerToken(secret, tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidViewerToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidViewerToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidViewerToken
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return "", ErrInvalidViewerToken
	}
	return username, nil
}

// BearerOrQueryToken reads the token from the Authorization header, falling
// back to the "token" query parameter browsers use for websockets.
func BearerOrQueryToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ctx.Query("token")
}

// CurrentUser reports the logged-in username, or false when logged out.
type CurrentUser func() (string, bool)

// JwtMiddleware admits requests carrying a viewer token issued for the user
// who is currently logged in. Tokens issued before a logout stop working.
func JwtMiddleware(secret string, current CurrentUser) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := BearerOrQueryToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		username, err := ParseViewerToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		active, ok := current()
		if !ok || active != username {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Session ended"))
		}

		ctx.Locals(LocalsUsername, username)
		return ctx.Next()
	}
}
