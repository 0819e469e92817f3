package middleware // middleware provides shared request processing for handlers

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
)

// Roles allowed to edit trip paths and seat layouts.
const (
    RoleOwner = "OWNER"
    RoleAdmin = "ADMIN"
)

// RequireRole aborts with 403 unless the role stored by JWTAuth is one of
// roles.  Comparison ignores case.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[strings.ToUpper(r)] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[Role(c)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
