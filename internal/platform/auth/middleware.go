package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	callerKey contextKey = "caller"
	tokenKey  contextKey = "token_claims"
)

// Role is the immutable role assigned to a profile at registration.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Caller is the authenticated identity attached to a request.
type Caller struct {
	UserID    uuid.UUID
	ProfileID uuid.UUID
	Role      Role
}

func (c Caller) Is(r Role) bool { return c.Role == r }

// Claims are the session token claims. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	ProfileID string `json:"profile_id"`
	Role      Role   `json:"role"`
}

type JWTConfig struct {
	Issuer     string
	SigningKey []byte
	// Revocations, when set, rejects tokens revoked at sign-out.
	Revocations RevocationStore
	Skipper     func(c echo.Context) bool
	Logger      zerolog.Logger
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	keyFunc := func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := bearerToken(c.Request())
			if err != nil {
				return err
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			caller, err := claims.caller()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
			}

			ctx := c.Request().Context()
			if cfg.Revocations != nil {
				revoked, err := cfg.Revocations.IsRevoked(ctx, claims.ID)
				if err != nil {
					cfg.Logger.Error().Err(err).Msg("revocation lookup failed")
					return echo.NewHTTPError(http.StatusServiceUnavailable, "session check unavailable")
				}
				if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
				}
			}

			ctx = WithCaller(ctx, caller)
			ctx = context.WithValue(ctx, tokenKey, claims)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("caller_id", caller.ProfileID.String())

			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return parts[1], nil
}

func (cl *Claims) caller() (Caller, error) {
	userID, err := uuid.Parse(cl.Subject)
	if err != nil {
		return Caller{}, err
	}
	profileID, err := uuid.Parse(cl.ProfileID)
	if err != nil {
		return Caller{}, err
	}
	if !cl.Role.Valid() {
		return Caller{}, jwt.ErrTokenInvalidClaims
	}
	return Caller{UserID: userID, ProfileID: profileID, Role: cl.Role}, nil
}

// Development identity used when no X-Dev-* headers are sent.
var (
	DevUserID    = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	DevProfileID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// DevAuthMiddleware trusts X-Dev-User-ID, X-Dev-Profile-ID and X-Dev-Role
// headers and defaults to an admin caller. Development only.
func DevAuthMiddleware(skipper func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}
			h := c.Request().Header
			caller := Caller{UserID: DevUserID, ProfileID: DevProfileID, Role: RoleAdmin}
			if v, err := uuid.Parse(h.Get("X-Dev-User-ID")); err == nil {
				caller.UserID = v
			}
			if v, err := uuid.Parse(h.Get("X-Dev-Profile-ID")); err == nil {
				caller.ProfileID = v
			}
			if r := Role(h.Get("X-Dev-Role")); r.Valid() {
				caller.Role = r
			}

			c.SetRequest(c.Request().WithContext(WithCaller(c.Request().Context(), caller)))
			c.Set("caller_id", caller.ProfileID.String())
			return next(c)
		}
	}
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns the request caller and whether one is present.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}

// ClaimsFromContext returns the verified token claims, nil in dev mode.
func ClaimsFromContext(ctx context.Context) *Claims {
	cl, _ := ctx.Value(tokenKey).(*Claims)
	return cl
}
