package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepoint/hms/internal/domain/identity"
	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/validate"
)

var errBadCredentials = apperr.Unauthorized("invalid email or password")

type Service struct {
	users       UserRepository
	profiles    identity.ProfileRepository
	tx          identity.TxRunner
	tokens      *auth.TokenIssuer
	revocations auth.RevocationStore
	logger      zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewService(users UserRepository, profiles identity.ProfileRepository, tx identity.TxRunner,
	tokens *auth.TokenIssuer, revocations auth.RevocationStore, logger zerolog.Logger) *Service {
	return &Service{
		users:       users,
		profiles:    profiles,
		tx:          tx,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger.With().Str("component", "account").Logger(),
	}
}

// Signup creates the user and its profile in one transaction.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*identity.Profile, error) {
	req.Email = normalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var profile *identity.Profile
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.users.Create(ctx, req.Email, hash)
		if err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return apperr.Conflict(apperr.CodeConflict, "an account with this email already exists")
			}
			return err
		}
		profile, err = s.profiles.Create(ctx, &identity.Profile{
			UserID:    u.ID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      req.Role,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("profile_id", profile.ID.String()).Str("role", string(profile.Role)).Msg("account registered")
	return profile, nil
}

// Signin verifies credentials and issues a session token.
func (s *Service) Signin(ctx context.Context, req SigninRequest) (*Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Spend the same bcrypt work as a real check.
			auth.CheckPassword(s.dummy(), req.Password)
			return nil, errBadCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, errBadCredentials
	}

	p, err := s.profiles.GetByUserID(ctx, u.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	token, exp, err := s.tokens.Issue(auth.Caller{UserID: u.ID, ProfileID: p.ID, Role: p.Role})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{Token: token, ExpiresAt: exp, Profile: p}, nil
}

// Signout revokes the presented token until it expires. Sessions without a
// token (development auth) have nothing to revoke.
func (s *Service) Signout(ctx context.Context) error {
	claims := auth.ClaimsFromContext(ctx)
	if claims == nil || s.revocations == nil {
		return nil
	}
	exp := time.Now()
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := s.revocations.Revoke(ctx, claims.ID, exp); err != nil {
		return apperr.Transient(err)
	}
	return nil
}

// CurrentSession reports the caller bound to ctx.
func (s *Service) CurrentSession(ctx context.Context) (*SessionInfo, error) {
	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return nil, apperr.Unauthorized("authentication required")
	}
	info := &SessionInfo{UserID: caller.UserID, ProfileID: caller.ProfileID, Role: caller.Role}
	if claims := auth.ClaimsFromContext(ctx); claims != nil && claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
	}
	return info, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword("not-a-real-password")
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
