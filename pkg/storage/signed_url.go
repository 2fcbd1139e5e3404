package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenInvalid = errors.New("invalid download token")
	ErrTokenExpired = errors.New("download token expired")
)

// Grant is the payload carried by a signed download token.
type Grant struct {
	JobID     string
	OwnerID   string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token granting the owner access to one stored report file.
func (s *SignedURLSigner) Generate(jobID, ownerID, relPath string) (string, time.Time, error) {
	if jobID == "" || ownerID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("jobID, ownerID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	parts := []string{
		jobID,
		base64.RawURLEncoding.EncodeToString([]byte(ownerID)),
		strconv.FormatInt(expiresAt.UnixMilli(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(relPath)),
	}
	token := strings.Join(append(parts, s.sign(parts)), ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns its grant. allowExpired skips the
// expiry check for cleanup routines.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (Grant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 5 {
		return Grant{}, ErrTokenInvalid
	}
	if !hmac.Equal([]byte(s.sign(parts[:4])), []byte(parts[4])) {
		return Grant{}, ErrTokenInvalid
	}

	owner, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}
	expMillis, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}
	path, err := base64.RawURLEncoding.DecodeString(parts[3])
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}

	grant := Grant{JobID: parts[0], OwnerID: string(owner), Path: string(path), ExpiresAt: time.UnixMilli(expMillis)}
	if !allowExpired && s.now().After(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) sign(parts []string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
