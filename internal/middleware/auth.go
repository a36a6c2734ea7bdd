package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"tagsync/internal/model"
)

const sessionExpiry = 24 * time.Hour

// ContextLogin is the echo context key holding the authenticated login.
const ContextLogin = "login"

type SessionClaims struct {
	Login string `json:"login"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies the session ids of the stub backend. A
// session id is a signed JWT carried in the sid query parameter.
type Sessions struct {
	secret []byte
	now    func() time.Time
}

func NewSessions(secret string) *Sessions {
	return &Sessions{secret: []byte(secret), now: time.Now}
}

// Issue returns a new session id for login.
func (s *Sessions) Issue(login string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		Login: login,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses a session id and returns its login.
func (s *Sessions) Verify(sid string) (string, error) {
	token, err := jwt.ParseWithClaims(sid, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid session claims")
	}
	return claims.Login, nil
}

// RequireSession middleware verifies the sid query parameter
func (s *Sessions) RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := c.QueryParam("sid")
			if sid == "" {
				return c.JSON(http.StatusUnauthorized, authFailure("Missing sid parameter"))
			}

			login, err := s.Verify(sid)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, authFailure("Invalid session"))
			}

			c.Set(ContextLogin, login)
			return next(c)
		}
	}
}

func authFailure(msg string) model.Response {
	return model.Response{ResponseInfo: model.ResponseInfo{
		ResponseCode:    "AUTHREQUIRED",
		ResponseMessage: msg,
	}}
}
