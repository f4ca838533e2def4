package sge_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	sge "github.com/sge-esporte/go-sge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity(role sge.Role) *sge.Identity {
	return &sge.Identity{
		ID:    uuid.New(),
		Name:  "Maria Souza",
		Email: "maria@sge.gov.br",
		Role:  role,
	}
}

func TestSessionStoreSaveAndRestore(t *testing.T) {
	storage := sge.NewMemoryStorage()
	store := sge.NewSessionStore(storage)
	require.NoError(t, store.Init())
	assert.False(t, store.IsAuthenticated())

	identity := testIdentity(sge.RoleDirigente)
	require.NoError(t, store.Save(&sge.Session{
		AccessToken: "token-123",
		Identity:    identity,
		Mode:        sge.SessionModeOnline,
	}))

	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, sge.SessionModeOnline, store.Mode())

	// a second store over the same storage restores the session
	restored := sge.NewSessionStore(storage)
	require.NoError(t, restored.Init())
	require.True(t, restored.IsAuthenticated())
	assert.Equal(t, "token-123", restored.Current().AccessToken)
	assert.Equal(t, identity.Email, restored.Identity().Email)
	assert.Equal(t, identity.Role, restored.Identity().Role)
}

func TestSessionStoreSaveRejectsPartialSessions(t *testing.T) {
	store := sge.NewSessionStore(sge.NewMemoryStorage())
	require.NoError(t, store.Init())

	assert.Error(t, store.Save(nil))
	assert.Error(t, store.Save(&sge.Session{AccessToken: "t"}))
	assert.Error(t, store.Save(&sge.Session{Identity: testIdentity(sge.RoleLeitor)}))
	assert.False(t, store.IsAuthenticated())
}

func TestSessionStoreClearIsIdempotent(t *testing.T) {
	store := sge.NewSessionStore(sge.NewMemoryStorage())
	require.NoError(t, store.Init())
	require.NoError(t, store.Save(&sge.Session{
		AccessToken: "token-123",
		Identity:    testIdentity(sge.RoleAtleta),
		Mode:        sge.SessionModeOffline,
	}))

	require.NoError(t, store.Clear())
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, "", store.Mode())

	require.NoError(t, store.Clear())
	assert.False(t, store.IsAuthenticated())
}

func TestSessionStoreSessionModeSurvivesRestart(t *testing.T) {
	storage := sge.NewMemoryStorage()
	store := sge.NewSessionStore(storage)
	require.NoError(t, store.Init())
	require.NoError(t, store.Save(&sge.Session{
		AccessToken: "token-123",
		Identity:    testIdentity(sge.RoleGestor),
		Mode:        sge.SessionModeOffline,
	}))

	restored := sge.NewSessionStore(storage)
	require.NoError(t, restored.Init())
	assert.Equal(t, sge.SessionModeOffline, restored.Mode())
}

func TestSessionStoreTreatsCorruptIdentityAsNoSession(t *testing.T) {
	storage := sge.NewMemoryStorage()
	require.NoError(t, storage.Set(sge.StorageKeyAccessToken, "token-123"))
	require.NoError(t, storage.Set(sge.StorageKeyUser, "{not json"))

	store := sge.NewSessionStore(storage)
	require.NoError(t, store.Init())
	assert.False(t, store.IsAuthenticated())
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	storage := sge.NewFileStorage(path)

	require.NoError(t, storage.Set("k", "v"))

	v, ok, err := storage.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, storage.Delete("k"))
	_, ok, err = storage.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting a missing key is fine
	require.NoError(t, storage.Delete("k"))
}

func TestFileStorageSurvivesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	storage := sge.NewFileStorage(path)
	_, ok, err := storage.Get("anything")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.Set("k", "v"))
	v, ok, err := storage.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)
}
