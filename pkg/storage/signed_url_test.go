package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "owner-1", "reports/file.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	grant, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", grant.JobID)
	assert.Equal(t, "owner-1", grant.OwnerID)
	assert.Equal(t, "reports/file.csv", grant.Path)
	assert.WithinDuration(t, expiresAt, grant.ExpiresAt, time.Millisecond)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return now }

	token, _, err := signer.Generate("job-1", "owner-1", "reports/file.csv")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	grant, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", grant.JobID)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "owner-1", "reports/file.csv")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = signer.Parse("a.b.c", false)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("owner-1/job-1.csv", []byte("a,b\n"))
	require.NoError(t, err)

	f, err := store.Open(name)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, store.Delete(name))
	require.NoError(t, store.Delete(name))
}

func TestLocalStorageRejectsEscapes(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.csv", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = store.Open("/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.csv", []byte("x"))
	require.NoError(t, err)
	_, err = store.Save("new.csv", []byte("y"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)
}
