package credstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cmstar/go-logx/logxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 较小的 work factor 让测试跑得快一些。
const testWorkFactor = 10

func newTestFileStore(t *testing.T) *FileStore {
	s, err := NewFileStore(FileStoreOption{
		Path:       filepath.Join(t.TempDir(), "creds", "store.age"),
		Passphrase: "correct horse battery staple",
		WorkFactor: testWorkFactor,
	})
	require.NoError(t, err)
	return s
}

// 对 Store 接口的通用检查，各实现共用。
func testStoreContract(t *testing.T, s Store) {
	t.Run("absent", func(t *testing.T) {
		v, ok := s.Get("none")
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("set-get", func(t *testing.T) {
		require.True(t, s.Set("token", []byte("abc"), DefaultAccessibility))
		v, ok := s.Get("token")
		require.True(t, ok)
		assert.Equal(t, []byte("abc"), v)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.True(t, s.Set("token", []byte("1"), AccessibleAlways))
		require.True(t, s.Set("token", []byte("2"), AccessibleAfterFirstUnlock))

		e, ok := Lookup(s, "token")
		require.True(t, ok)
		assert.Equal(t, "token", e.Key)
		assert.Equal(t, []byte("2"), e.Value)
		assert.Equal(t, AccessibleAfterFirstUnlock, e.Accessibility)
	})

	t.Run("string", func(t *testing.T) {
		require.True(t, SetString(s, "name", "中文", DefaultAccessibility))
		v, ok := GetString(s, "name")
		require.True(t, ok)
		assert.Equal(t, "中文", v)
	})

	t.Run("bad-accessibility", func(t *testing.T) {
		assert.False(t, s.Set("bad", []byte("x"), Accessibility(100)))
		_, ok := s.Get("bad")
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		require.True(t, s.Set("k", []byte("v"), DefaultAccessibility))
		assert.True(t, s.Delete("k"))
		_, ok := s.Get("k")
		assert.False(t, ok)

		// Deleting an absent key still succeeds.
		assert.True(t, s.Delete("k"))
		assert.True(t, s.Delete("never-existed"))
	})

	t.Run("clear", func(t *testing.T) {
		require.True(t, s.Set("a", []byte("1"), DefaultAccessibility))
		require.True(t, s.Set("b", []byte("2"), DefaultAccessibility))
		assert.True(t, s.Clear())

		_, ok := s.Get("a")
		assert.False(t, ok)
		_, ok = s.Get("b")
		assert.False(t, ok)

		assert.True(t, s.Clear())
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())

	t.Run("copy", func(t *testing.T) {
		s := NewMemoryStore()
		in := []byte("abc")
		s.Set("k", in, DefaultAccessibility)
		in[0] = 'x'

		out, _ := s.Get("k")
		assert.Equal(t, []byte("abc"), out)
		out[0] = 'y'

		again, _ := s.Get("k")
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("no-duplicates", func(t *testing.T) {
		s := NewMemoryStore()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				s.Set("token", []byte(fmt.Sprint(i)), DefaultAccessibility)
				s.Get("token")
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, s.Len())
	})
}

func TestFileStore(t *testing.T) {
	s := newTestFileStore(t)
	testStoreContract(t, s)

	t.Run("persist", func(t *testing.T) {
		require.True(t, s.Set("token", []byte("persisted"), AccessibleWhenUnlockedThisDeviceOnly))

		reopened, err := NewFileStore(FileStoreOption{
			Path:       s.Path(),
			Passphrase: "correct horse battery staple",
			WorkFactor: testWorkFactor,
		})
		require.NoError(t, err)

		e, ok := reopened.Entry("token")
		require.True(t, ok)
		assert.Equal(t, []byte("persisted"), e.Value)
		assert.Equal(t, AccessibleWhenUnlockedThisDeviceOnly, e.Accessibility)
	})

	t.Run("encrypted", func(t *testing.T) {
		require.True(t, s.Set("token", []byte("plain-secret"), DefaultAccessibility))
		raw, err := os.ReadFile(s.Path())
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "plain-secret")
		assert.Contains(t, string(raw), "age-encryption.org")

		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("wrong-passphrase", func(t *testing.T) {
		require.True(t, s.Set("token", []byte("x"), DefaultAccessibility))

		logger := logxtest.NewRecorder()
		wrong, err := NewFileStore(FileStoreOption{
			Path:       s.Path(),
			Passphrase: "wrong",
			WorkFactor: testWorkFactor,
			Logger:     logger,
		})
		require.NoError(t, err)

		_, ok := wrong.Get("token")
		assert.False(t, ok)
		assert.False(t, wrong.Set("token", []byte("y"), DefaultAccessibility))
		assert.Len(t, logger.Messages, 2)

		// The stored content is untouched.
		v, ok := s.Get("token")
		require.True(t, ok)
		assert.Equal(t, []byte("x"), v)
	})
}

func TestNewFileStore(t *testing.T) {
	_, err := NewFileStore(FileStoreOption{Passphrase: "p"})
	assert.Error(t, err)

	_, err = NewFileStore(FileStoreOption{Path: "p"})
	assert.Error(t, err)

	_, err = NewFileStore(FileStoreOption{Path: "p", Passphrase: "p", WorkFactor: 64})
	assert.Error(t, err)

	s, err := NewFileStore(FileStoreOption{Path: "p", Passphrase: "p"})
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkFactor, s.workFactor)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "", Fingerprint(nil))

	a := Fingerprint([]byte("abc"))
	assert.Len(t, a, 16)
	assert.Equal(t, a, Fingerprint([]byte("abc")))
	assert.NotEqual(t, a, Fingerprint([]byte("abd")))
}

func TestAccessibility(t *testing.T) {
	assert.Equal(t, AccessibleWhenUnlocked, DefaultAccessibility)
	assert.True(t, DefaultAccessibility.RequiresUnlock())
	assert.False(t, DefaultAccessibility.ThisDeviceOnly())

	assert.True(t, AccessibleAlwaysThisDeviceOnly.ThisDeviceOnly())
	assert.False(t, AccessibleAlways.RequiresUnlock())
	assert.False(t, AccessibleAfterFirstUnlock.RequiresUnlock())

	assert.Equal(t, "Accessibility(9)", Accessibility(9).String())
	assert.False(t, Accessibility(-1).Valid())

	for a := AccessibleWhenUnlocked; a <= AccessibleAlwaysThisDeviceOnly; a++ {
		got, err := ParseAccessibility(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	got, err := ParseAccessibility("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAccessibility, got)

	_, err = ParseAccessibility("Sometimes")
	assert.Error(t, err)
}
