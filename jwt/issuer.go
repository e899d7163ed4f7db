package jwt

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultAccessTTL is the access window used when none is configured.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is the refresh window used when none is configured.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Issuer mints access and refresh tokens. It holds no state besides its
// configuration and is safe for concurrent use.
type Issuer struct {
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer validates lifetimes and binds them to codec. A nil now falls back
// to time.Now.
//
// NewIssuer fails unless the refresh window is strictly longer than the
// access window.
func NewIssuer(codec *Codec, cfg Config, now func() time.Time) (*Issuer, error) {
	if codec == nil {
		return nil, errors.New("issuer requires a codec")
	}
	if codec.signKey == nil {
		return nil, ErrNoSigningKey
	}
	if cfg.AccessTTL < time.Second {
		return nil, errors.New("access TTL must be at least 1s")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must be greater than access TTL")
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		codec:      codec,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
	}, nil
}

// AccessTTL returns the access window.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the refresh window.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccessToken signs a short-lived token carrying subject and roles.
func (i *Issuer) IssueAccessToken(subject string, roles []string) (string, error) {
	return i.issue(subject, roles, KindAccess, i.accessTTL)
}

// IssueRefreshToken signs a long-lived token carrying only the subject.
// Roles are reloaded from the credential store on refresh.
func (i *Issuer) IssueRefreshToken(subject string) (string, error) {
	return i.issue(subject, nil, KindRefresh, i.refreshTTL)
}

// IssuePair returns a fresh access token and refresh token for subject.
func (i *Issuer) IssuePair(subject string, roles []string) (access, refresh string, err error) {
	access, err = i.IssueAccessToken(subject, roles)
	if err != nil {
		return "", "", err
	}
	refresh, err = i.IssueRefreshToken(subject)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (i *Issuer) issue(subject string, roles []string, kind TokenKind, ttl time.Duration) (string, error) {
	now := i.now()
	return i.codec.Encode(Claims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Roles:     roles,
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
}
