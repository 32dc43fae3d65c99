package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const (
	tokenCookieName = "token"
	actorContextKey = "actor_id"
)

var (
	errTokenMissing = errors.New("no token provided")
	errTokenInvalid = errors.New("invalid token")
)

// Claims are the access token claims issued by the auth service.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ActorMiddleware verifies the caller's token and stores the actor id on the
// context. A missing token yields 401 and an unverifiable one 403.
func ActorMiddleware(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return respondError(c, http.StatusUnauthorized, "Unauthorized", errTokenMissing.Error())
			}

			claims, err := parseClaims(parser, key, raw)
			if err != nil {
				log.WithError(err).WithField("path", c.Path()).Warn("Rejected request with invalid token")
				return respondError(c, http.StatusForbidden, "Forbidden", errTokenInvalid.Error())
			}

			c.Set(actorContextKey, claims.UserID)
			return next(c)
		}
	}
}

func parseClaims(parser *jwt.Parser, key []byte, raw string) (*Claims, error) {
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errTokenInvalid
	}
	if claims.UserID == "" {
		return nil, errTokenInvalid
	}
	return claims, nil
}

func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(tokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// ActorFromContext returns the verified actor id, or "" outside the
// middleware.
func ActorFromContext(c echo.Context) string {
	id, _ := c.Get(actorContextKey).(string)
	return id
}
