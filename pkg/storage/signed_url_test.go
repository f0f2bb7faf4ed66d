package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("user-1", "timetables/user-1/week.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ticket, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "user-1", ticket.OwnerID)
	assert.Equal(t, "timetables/user-1/week.pdf", ticket.Path)
	assert.WithinDuration(t, expiresAt, ticket.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	base := time.Now()
	signer.now = func() time.Time { return base }
	token, _, err := signer.Generate("user-1", "a.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	ticket, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "a.csv", ticket.Path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("user-1", "a.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "dXNlci0y"
	_, err = signer.Parse(strings.Join(parts, "."), false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token, false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Parse("garbage", false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignedURLSignerRequiresSecret(t *testing.T) {
	_, _, err := NewSignedURLSigner("", time.Hour).Generate("user-1", "a.csv")
	assert.Error(t, err)
}
