package middleware

// identity.go holds helpers that read the caller identity the JWT
// middleware stored in the Echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// parseSubject accepts the sub claim as a decimal string or a JSON number.
func parseSubject(v any) (uint64, bool) {
    switch t := v.(type) {
    case string:
        n, err := strconv.ParseUint(t, 10, 64)
        return n, err == nil && n > 0
    case float64:
        if t > 0 && t == float64(uint64(t)) {
            return uint64(t), true
        }
    }
    return 0, false
}

// UserID returns the authenticated user, if any.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    return id, ok
}

// Role returns the upper-cased role claim, or "".
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}

// currentUserID is the rate limit key part for the caller.
func currentUserID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
