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
	// ErrInvalidToken covers malformed or tampered tokens.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned once the token TTL has passed.
	ErrTokenExpired = errors.New("download token expired")
)

// DownloadTicket is the information carried by a signed download token.
type DownloadTicket struct {
	OwnerID   string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner builds a signer. A non-positive ttl defaults to 15 minutes.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token granting ownerID access to path.
func (s *SignedURLSigner) Generate(ownerID, path string) (string, time.Time, error) {
	if ownerID == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("owner and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC()
	owner := base64.RawURLEncoding.EncodeToString([]byte(ownerID))
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(path))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{owner, exp, encodedPath, s.sign(owner, exp, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse verifies the signature and expiry of a token.
// allowExpired skips the expiry check for cleanup routines.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (DownloadTicket, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return DownloadTicket{}, ErrInvalidToken
	}
	owner, exp, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(owner, exp, encodedPath)), []byte(signature)) {
		return DownloadTicket{}, ErrInvalidToken
	}
	ownerID, err := base64.RawURLEncoding.DecodeString(owner)
	if err != nil {
		return DownloadTicket{}, ErrInvalidToken
	}
	path, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return DownloadTicket{}, ErrInvalidToken
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return DownloadTicket{}, ErrInvalidToken
	}
	ticket := DownloadTicket{OwnerID: string(ownerID), Path: string(path), ExpiresAt: time.Unix(unix, 0).UTC()}
	if !allowExpired && s.now().After(ticket.ExpiresAt) {
		return DownloadTicket{}, ErrTokenExpired
	}
	return ticket, nil
}

func (s *SignedURLSigner) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
