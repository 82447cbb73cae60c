package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// publicPaths are route paths reachable without a session: infrastructure
// endpoints plus login and sign-up.
var publicPaths = map[string]bool{
	"/health":             true,
	"/metrics":            true,
	"/api/v1/auth/login":  true,
	"/api/v1/auth/signup": true,
}

// AuthSkipper returns true for requests whose matched route is public, and
// for requests no endpoint matched so they fall through to a 404.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()] || Unmatched(c)
}

// Unmatched reports whether c was routed to the catch-all echo registers
// for a group with middleware. No endpoint here uses a wildcard path.
func Unmatched(c echo.Context) bool {
	return strings.HasSuffix(c.Path(), "/*")
}

// IsPublicPath reports whether path is reachable without a session.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
