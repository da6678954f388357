package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lumehq/accountd/pkg/cachex"
	"github.com/lumehq/accountd/pkg/jwtx"
)

const (
	blacklistKeyPrefix = "auth:blacklist_token"
	thresholdKeyPrefix = "auth:revoked_token_threshold"
)

// SessionService tracks which sessions are dead. Two mechanisms, checked in
// order:
//
//  1. Blacklist: logout writes a per-(user, session) entry. Kills one pair.
//  2. Threshold: password change writes a per-user cutoff timestamp. Any
//     token issued at or before it is dead, across all sessions.
//
// Entries live in the cache with a TTL of the refresh lifetime; once every
// token that could be affected has expired on its own, the entry is garbage.
type SessionService struct {
	Cache      cachex.Cache
	RefreshTTL time.Duration
}

func NewSessionService(cache cachex.Cache, refreshTTL time.Duration) *SessionService {
	if refreshTTL <= 0 {
		refreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	return &SessionService{Cache: cache, RefreshTTL: refreshTTL}
}

func blacklistKey(userID, sid string) string {
	return fmt.Sprintf("%s_%s_%s", blacklistKeyPrefix, userID, sid)
}

func thresholdKey(userID string) string {
	return fmt.Sprintf("%s_%s", thresholdKeyPrefix, userID)
}

// Blacklist revokes one session for one user. Both tokens of the pair carry
// the same sid, so this kills the pair.
func (s *SessionService) Blacklist(ctx context.Context, userID, sid string) error {
	return s.Cache.Set(ctx, blacklistKey(userID, sid), "1", s.RefreshTTL)
}

// RevokeIssuedAtOrBefore records a per-user cutoff. Tokens whose iat is at or
// before issuedAt fail CheckRevocation until the entry expires.
func (s *SessionService) RevokeIssuedAtOrBefore(ctx context.Context, userID string, issuedAt int64) error {
	return s.Cache.Set(ctx, thresholdKey(userID), strconv.FormatInt(issuedAt, 10), s.RefreshTTL)
}

// CheckRevocation reports whether the given session is still live. The
// blacklist is consulted first, then the per-user threshold. Cache read
// failures propagate: a dead cache must not silently resurrect revoked
// sessions.
func (s *SessionService) CheckRevocation(ctx context.Context, userID, sid string, issuedAt int64) error {
	_, err := s.Cache.Get(ctx, blacklistKey(userID, sid))
	switch {
	case err == nil:
		return ErrTokenBlacklisted
	case !errors.Is(err, cachex.ErrNotFound):
		return err
	}

	raw, err := s.Cache.Get(ctx, thresholdKey(userID))
	if errors.Is(err, cachex.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	threshold, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Unparseable threshold entries fail closed.
		return ErrTokenRevoked
	}
	if issuedAt <= threshold {
		return ErrTokenRevoked
	}
	return nil
}
