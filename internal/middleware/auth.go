package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

var errMissingToken = errors.New("missing bearer token")

// JWTAuth authenticates HS256 bearer tokens whose subject is the user id.
// With optional set, requests without a token pass through anonymously but
// a bad token is still rejected.
func JWTAuth(secret []byte, optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := authenticate(c.Request().Header.Get(echo.HeaderAuthorization), secret)
			switch {
			case errors.Is(err, errMissingToken) && optional:
				return next(c)
			case err != nil:
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"message": "authentication required",
					"code":    "unauthenticated",
				}).SetInternal(err)
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

func authenticate(header string, secret []byte) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// UserID returns the authenticated user, or "" for anonymous requests.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// IssueToken signs a token for userID. Used by operators and tests.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
