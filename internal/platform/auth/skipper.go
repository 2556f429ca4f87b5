package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths that bypass authentication and the
// per-request database session.
var publicPaths = map[string]bool{
	"/health":             true,
	"/health/db":          true,
	"/metrics":            true,
	"/api/v1/auth/signup": true,
	"/api/v1/auth/signin": true,
}

// AuthSkipper returns true for requests whose route should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path is public.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
