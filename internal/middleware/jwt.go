package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// Context keys set by the JWT middleware.
const (
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued by the account service and injects the token's subject and role
// claims into the request context.  Tokens are verified only; this service
// never issues them.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return jwtMiddleware(secret, true)
}

// OptionalJWT behaves like JWTAuth for requests that carry a token and lets
// anonymous requests through untouched.  A token that is present but
// invalid is still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return jwtMiddleware(secret, false)
}

func jwtMiddleware(secret string, required bool) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if auth == "" && !required {
                return next(c)
            }
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Only HMAC tokens signed with our secret are accepted.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                return []byte(secret), nil
            }, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            uid, ok := parseSubject(claims["sub"])
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
            }
            c.Set(ctxUserID, uid)
            if role, ok := claims["role"].(string); ok {
                c.Set(ctxRole, strings.ToUpper(role))
            }
            return next(c)
        }
    }
}
