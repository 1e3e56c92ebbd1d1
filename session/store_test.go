package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nourish/config"
	"nourish/models"
)

func openStore(t *testing.T, path string) *DBStore {
	t.Helper()
	db, err := config.OpenDB(path)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewDBStore(db)
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"db": func(t *testing.T) Store {
			return openStore(t, filepath.Join(t.TempDir(), "session.db"))
		},
	}

	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			s := mk(t)

			cred, err := s.Get()
			require.NoError(t, err)
			assert.Nil(t, cred)

			require.NoError(t, s.Set("access-1", "refresh-1"))
			cred, err = s.Get()
			require.NoError(t, err)
			assert.Equal(t, &models.Credential{AccessToken: "access-1", RefreshToken: "refresh-1"}, cred)

			require.NoError(t, s.SetAccess("access-2"))
			cred, err = s.Get()
			require.NoError(t, err)
			assert.Equal(t, "access-2", cred.AccessToken)
			assert.Equal(t, "refresh-1", cred.RefreshToken)

			require.NoError(t, s.Set("access-3", ""))
			cred, err = s.Get()
			require.NoError(t, err)
			assert.Equal(t, "access-3", cred.AccessToken)
			assert.Empty(t, cred.RefreshToken, "login without refresh token must drop the stale one")

			require.NoError(t, s.Clear())
			cred, err = s.Get()
			require.NoError(t, err)
			assert.Nil(t, cred)
		})
	}
}

func TestDBStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	first := openStore(t, path)
	require.NoError(t, first.Set("persisted", "r"))

	second := openStore(t, path)
	cred, err := second.Get()
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "persisted", cred.AccessToken)
}

func TestWatcherSeesOtherProcessLogout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	mine := openStore(t, path)
	require.NoError(t, mine.Set("tok", "ref"))

	changes := make(chan *models.Credential, 8)
	w, err := NewWatcher(mine, path, func(c *models.Credential) { changes <- c }, nil)
	require.NoError(t, err)
	defer w.Close()

	other := openStore(t, path)
	require.NoError(t, other.Clear())

	select {
	case c := <-changes:
		assert.Nil(t, c)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the logout")
	}
}
