package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/patchnotes/internal/auth/cache"
	"github.com/aussiebroadwan/patchnotes/internal/auth/domain"
	"github.com/aussiebroadwan/patchnotes/internal/auth/store"
	"github.com/aussiebroadwan/patchnotes/pkg/cryptox"
	"github.com/aussiebroadwan/patchnotes/pkg/jwtx"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
)

// DefaultBlacklistTTL is how long a revoked refresh token is remembered.
const DefaultBlacklistTTL = 30 * 24 * time.Hour

// RevocationScope selects how refresh-token revocations are recorded.
type RevocationScope string

const (
	// RevocationPerToken keeps one entry per revoked jti (rt_<userId>:<jti>),
	// so every rotated or logged-out token stays rejected and several
	// devices can hold live refresh tokens at once.
	RevocationPerToken RevocationScope = "token"

	// RevocationPerUser keeps a single rt_<userId> slot holding the most
	// recently revoked jti. Only that one token is rejected.
	RevocationPerUser RevocationScope = "user"
)

func ParseRevocationScope(s string) (RevocationScope, error) {
	switch RevocationScope(strings.ToLower(strings.TrimSpace(s))) {
	case RevocationPerToken, "":
		return RevocationPerToken, nil
	case RevocationPerUser:
		return RevocationPerUser, nil
	default:
		return "", fmt.Errorf("unknown revocation scope %q (want token or user)", s)
	}
}

// SessionService mints, rotates and revokes the cookie token pair.
type SessionService struct {
	Store store.Store
	Cache cache.Cache
	Codec *jwtx.Codec

	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	BlacklistTTL  time.Duration
	Revocation    RevocationScope

	Now func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *SessionService) accessTTL() time.Duration {
	if s.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.AccessTTL
}

func (s *SessionService) refreshTTL() time.Duration {
	if s.RefreshTTL <= 0 {
		return jwtx.DefaultRefreshTokenTTL
	}
	return s.RefreshTTL
}

func (s *SessionService) blacklistTTL() time.Duration {
	if s.BlacklistTTL <= 0 {
		return DefaultBlacklistTTL
	}
	return s.BlacklistTTL
}

func refreshKey(userID string) string { return "rt_" + userID }

func revokedKey(userID, jti string) string { return "rt_" + userID + ":" + jti }

// Login mints a fresh access/refresh pair for u and records the refresh
// token under rt_<userId> for the rest of its lifetime.
func (s *SessionService) Login(ctx context.Context, u domain.User) (domain.Session, error) {
	sess, err := s.login(ctx, u)
	return sess, Translate(err)
}

func (s *SessionService) login(ctx context.Context, u domain.User) (domain.Session, error) {
	payload := jwtx.Payload{UserID: u.ID, Role: u.Role.String()}

	payload.JTI = jwtx.NewJTI()
	access, ac, err := s.Codec.Sign(payload, s.AccessSecret, s.accessTTL())
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign access token: %w", err)
	}

	payload.JTI = jwtx.NewJTI()
	refresh, rc, err := s.Codec.Sign(payload, s.RefreshSecret, s.refreshTTL())
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign refresh token: %w", err)
	}

	remaining := rc.ExpiresAtTime().Sub(s.now())
	if err := s.Cache.Set(ctx, refreshKey(u.ID), cryptox.FingerprintToken(refresh), remaining); err != nil {
		return domain.Session{}, fmt.Errorf("save refresh token: %w", err)
	}

	slogx.FromContext(ctx).Debug("session issued", "user_id", u.ID, "access_jti", ac.ID, "refresh_jti", rc.ID)

	return domain.Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  ac.ExpiresAtTime(),
		RefreshExpiresAt: rc.ExpiresAtTime(),
	}, nil
}

// Refresh rotates a refresh token: the caller gets a new pair and the
// presented token is revoked. Every failure is Unauthorized.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.User, domain.Session, error) {
	log := slogx.FromContext(ctx)

	if refreshToken == "" {
		return domain.User{}, domain.Session{}, unauthorized(ErrInvalidToken)
	}

	claims, err := s.Codec.Verify(refreshToken, s.RefreshSecret)
	if err != nil {
		return domain.User{}, domain.Session{}, unauthorized(err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: user %s no longer exists", ErrInvalidToken, claims.UserID)
		}
		return domain.User{}, domain.Session{}, unauthorized(err)
	}

	revoked, err := s.isBlacklisted(ctx, user.ID, claims.ID)
	if err != nil {
		return domain.User{}, domain.Session{}, unauthorized(err)
	}
	if revoked {
		log.Info("refresh token replayed", "user_id", user.ID, "jti", claims.ID)
		return domain.User{}, domain.Session{}, unauthorized(ErrTokenBlacklisted)
	}

	sess, err := s.login(ctx, user)
	if err != nil {
		return domain.User{}, domain.Session{}, unauthorized(err)
	}

	if err := s.blacklist(ctx, user.ID, claims.ID, claims.ExpiresAtTime()); err != nil {
		return domain.User{}, domain.Session{}, unauthorized(err)
	}

	return user, sess, nil
}

// Logout revokes the caller's refresh token, if one was presented. The
// token is only decoded: an expired or foreign token is still revoked under
// the caller's key.
func (s *SessionService) Logout(ctx context.Context, userID, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := jwtx.Decode(refreshToken)
	if err != nil || claims.ID == "" {
		slogx.FromContext(ctx).Debug("logout with undecodable refresh token", "user_id", userID, "err", err)
		return nil
	}

	return Translate(s.blacklist(ctx, userID, claims.ID, claims.ExpiresAtTime()))
}

// IsBlacklisted reports whether the refresh token jti has been revoked.
func (s *SessionService) IsBlacklisted(ctx context.Context, userID, jti string) (bool, error) {
	ok, err := s.isBlacklisted(ctx, userID, jti)
	return ok, Translate(err)
}

func (s *SessionService) isBlacklisted(ctx context.Context, userID, jti string) (bool, error) {
	key := refreshKey(userID)
	if s.Revocation == RevocationPerToken || s.Revocation == "" {
		key = revokedKey(userID, jti)
	}

	v, err := s.Cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read blacklist: %w", err)
	}

	if s.Revocation == RevocationPerUser {
		return v == jti, nil
	}
	return true, nil
}

// blacklist revokes jti until the later of the blacklist TTL and the token's
// own expiry; a shorter entry would let the token verify again.
func (s *SessionService) blacklist(ctx context.Context, userID, jti string, expiresAt time.Time) error {
	ttl := s.blacklistTTL()
	if remaining := expiresAt.Sub(s.now()); remaining > ttl {
		ttl = remaining
	}

	var err error
	switch s.Revocation {
	case RevocationPerUser:
		err = s.Cache.Set(ctx, refreshKey(userID), jti, ttl)
	default:
		err = s.Cache.Set(ctx, revokedKey(userID, jti), "1", ttl)
	}
	if err != nil {
		return fmt.Errorf("blacklist refresh token: %w", err)
	}
	return nil
}

// AuthenticateAccess verifies an access token and loads its user.
func (s *SessionService) AuthenticateAccess(ctx context.Context, accessToken string) (domain.User, error) {
	if accessToken == "" {
		return domain.User{}, Translate(ErrInvalidToken)
	}

	claims, err := s.Codec.Verify(accessToken, s.AccessSecret)
	if err != nil {
		return domain.User{}, unauthorized(err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: user %s no longer exists", ErrInvalidToken, claims.UserID)
		}
		return domain.User{}, Translate(err)
	}
	return user, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck spends the same time as a real verification so a
// missing username is indistinguishable by latency.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword("not-a-real-password")
	})
	_ = cryptox.VerifyPassword(password, dummyHash)
}

// VerifyCredentials checks a username/password pair. Both a missing user
// and a wrong password yield the same Unauthorized error.
func (s *SessionService) VerifyCredentials(ctx context.Context, username, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		burnPasswordCheck(password)
		return domain.User{}, Translate(ErrBadCredentials)
	}
	if err != nil {
		return domain.User{}, Translate(err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrInvalidHash) {
			log.Warn("stored password hash is unreadable", "user_id", user.ID, "err", err)
		}
		return domain.User{}, Translate(ErrBadCredentials)
	}

	if cryptox.NeedsRehash(user.PasswordHash) {
		if hash, err := cryptox.HashPassword(password); err == nil {
			if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
				log.Warn("password rehash failed", "user_id", user.ID, "err", err)
			} else {
				user.PasswordHash = hash
			}
		}
	}

	return user, nil
}

// Register creates a USER account from self-service input.
func (s *SessionService) Register(ctx context.Context, in UserInput) (domain.User, error) {
	in.Role = domain.RoleUser
	u, err := createUser(ctx, s.Store, in)
	return u, Translate(err)
}
