package services

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wleci/internal/domain"
	"wleci/internal/repos"
)

// Session is a decoded, validated session token.
type Session struct {
	ID        string
	UserID    uint
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (s *Session) IsAdmin() bool { return s != nil && s.Role == domain.RoleAdmin }

type claims struct {
	UserID uint        `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and verifies stateless session tokens. Validity is
// signature + expiry, plus a per-user revocation cutoff.
type SessionIssuer struct {
	secret  []byte
	ttl     time.Duration
	revoked *repos.RevocationRepo
	now     func() time.Time
}

func NewSessionIssuer(secret string, ttl time.Duration, revoked *repos.RevocationRepo) *SessionIssuer {
	return &SessionIssuer{secret: []byte(secret), ttl: ttl, revoked: revoked, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	s.now = now
	return s
}

func (s *SessionIssuer) TTL() time.Duration { return s.ttl }

func (s *SessionIssuer) Issue(id domain.Identity) (string, time.Time, error) {
	now := s.now()
	c := claims{
		UserID: id.ID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(id.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, c.ExpiresAt.Time, nil
}

func (s *SessionIssuer) Parse(ctx context.Context, raw string) (*Session, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, notAuthenticated(err.Error())
	}
	if c.UserID == 0 || c.IssuedAt == nil {
		return nil, notAuthenticated("missing_claims")
	}
	if _, ok := domain.ParseRole(string(c.Role)); !ok {
		return nil, notAuthenticated("bad_role")
	}

	if s.revoked != nil {
		cutoff, ok, err := s.revoked.Cutoff(ctx, c.UserID)
		if err != nil {
			return nil, err
		}
		if ok && c.IssuedAt.Unix() <= cutoff {
			return nil, notAuthenticated("revoked")
		}
	}

	return &Session{
		ID:        c.ID,
		UserID:    c.UserID,
		Role:      c.Role,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// NeedsRefresh is true once more than half of the session lifetime is spent.
func (s *SessionIssuer) NeedsRefresh(sess *Session) bool {
	return s.now().Sub(sess.IssuedAt) > s.ttl/2
}

// Refresh re-issues sess with a new lifetime and the same id/role.
func (s *SessionIssuer) Refresh(sess *Session) (string, time.Time, error) {
	return s.Issue(domain.Identity{ID: sess.UserID, Role: sess.Role})
}

// Revoke kills every session of userID issued up to now.
func (s *SessionIssuer) Revoke(ctx context.Context, userID uint) error {
	if s.revoked == nil {
		return nil
	}
	return s.revoked.Revoke(ctx, userID, s.now())
}

func notAuthenticated(reason string) error {
	return &Error{Kind: ErrNotAuthenticated, Msg: "Unauthorized", Reason: reason}
}
