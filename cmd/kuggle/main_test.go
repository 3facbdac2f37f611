package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmstar/go-kuggleapi"
	"github.com/cmstar/go-kuggleapi/clienttest"
	"github.com/cmstar/go-kuggleapi/config"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runForTest(t *testing.T, args ...string) (string, string, error) {
	t.Setenv(config.EnvConfigPath, "")
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// useTempHome 让默认的凭据文件落在临时目录中，并给出口令。
// 需在一个测试的多次 run 之前调用一次，使这些 run 共享同一个凭据文件。
func useTempHome(t *testing.T) string {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("KUGGLE_PASSPHRASE", "pw")
	return home
}

func TestRun_Get(t *testing.T) {
	useTempHome(t)
	s := clienttest.NewServer()
	defer s.Close()
	s.Envelope("GET", "items", 200, "OK", map[string]any{"n": 1})

	out, _, err := runForTest(t,
		"--base-url", s.BaseURL(),
		"--token", "tk",
		"-H", "X-Trace: abc",
		"get", "items", "q=x y", "ids:=[1,2]",
	)
	require.NoError(t, err)
	assert.JSONEq(t, `{"meta":{"code":200,"msg":"OK"},"data":{"n":1}}`, out)

	r, ok := s.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "GET", r.Method)
	assert.Equal(t, "ids%5B%5D=1&ids%5B%5D=2&q=x%20y", r.RawQuery)
	assert.Equal(t, "tk", r.Header.Get("Token"))
	assert.Equal(t, "abc", r.Header.Get("X-Trace"))
}

func TestRun_ApiError(t *testing.T) {
	useTempHome(t)
	s := clienttest.NewServer()
	defer s.Close()
	s.Envelope("POST", "login", 403, "denied", nil)

	out, _, err := runForTest(t, "--base-url", s.BaseURL(), "POST", "login", "user=u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
	assert.Contains(t, out, `"code": 403`)
}

func TestRun_ConfigAndSigning(t *testing.T) {
	useTempHome(t)
	s := clienttest.NewServer()
	defer s.Close()
	s.Envelope("GET", "profile", 200, "OK", nil)

	path := filepath.Join(t.TempDir(), "kuggle.yaml")
	content := "base_url: " + s.BaseURL() + "\nlocale: de_DE\nsigning:\n  key: k\n  secret: s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, _, err := runForTest(t, "--config", path, "GET", "profile")
	require.NoError(t, err)

	r, _ := s.LastRequest()
	assert.Equal(t, "de_DE", r.Header.Get("Accept-Language"))
	assert.Contains(t, r.Header.Get("Authorization"), "KUGGLE-AUTH Key=k")
}

func TestRun_FileStore(t *testing.T) {
	s := clienttest.NewServer()
	defer s.Close()
	s.Handle("POST", "login", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"meta":  map[string]any{"code": 200, "msg": "OK"},
			"token": "issued",
		})
	})
	s.Envelope("GET", "profile", 200, "OK", nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "kuggle.toml")
	content := `base_url = "` + s.BaseURL() + `"
[credentials]
store = "file"
path = "` + filepath.Join(dir, "creds.age") + `"
passphrase_env = "KUGGLE_TEST_PASSPHRASE"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("KUGGLE_TEST_PASSPHRASE", "pw")

	_, _, err := runForTest(t, "--config", path, "POST", "login")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "creds.age"))

	// The token stored by the previous process is sent.
	_, _, err = runForTest(t, "--config", path, "GET", "profile")
	require.NoError(t, err)
	r, _ := s.LastRequest()
	assert.Equal(t, "issued", r.Header.Get("Token"))

	_, _, err = runForTest(t, "--config", path, "logout")
	require.NoError(t, err)

	_, _, err = runForTest(t, "--config", path, "GET", "profile")
	require.NoError(t, err)
	r, _ = s.LastRequest()
	assert.Empty(t, r.Header.Get("Token"))
}

func TestRun_DefaultStore(t *testing.T) {
	home := useTempHome(t)

	s := clienttest.NewServer()
	defer s.Close()
	s.Handle("POST", "login", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"meta":  map[string]any{"code": 200, "msg": "OK"},
			"token": "abc",
		})
	})
	s.Envelope("GET", "profile", 200, "OK", nil)

	_, stderr, err := runForTest(t, "--base-url", s.BaseURL(), "POST", "login", "user=u")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "warning")
	assert.FileExists(t, filepath.Join(home, ".config", "kuggle", "credentials.age"))

	_, _, err = runForTest(t, "--base-url", s.BaseURL(), "GET", "profile")
	require.NoError(t, err)
	r, _ := s.LastRequest()
	assert.Equal(t, "abc", r.Header.Get("Token"))

	_, _, err = runForTest(t, "--base-url", s.BaseURL(), "logout")
	require.NoError(t, err)

	_, _, err = runForTest(t, "--base-url", s.BaseURL(), "GET", "profile")
	require.NoError(t, err)
	r, _ = s.LastRequest()
	assert.Empty(t, r.Header.Get("Token"))
}

func TestRun_MemoryStore(t *testing.T) {
	home := useTempHome(t)

	s := clienttest.NewServer()
	defer s.Close()
	s.Handle("POST", "login", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"meta":  map[string]any{"code": 200, "msg": "OK"},
			"token": "abc",
		})
	})
	s.Envelope("GET", "items", 200, "OK", nil)

	_, stderr, err := runForTest(t, "--base-url", s.BaseURL(), "--store", "memory", "POST", "login")
	require.NoError(t, err)
	assert.Contains(t, stderr, "warning: the issued token is kept in memory only")
	assert.NoFileExists(t, filepath.Join(home, ".config", "kuggle", "credentials.age"))

	// No token issued, nothing to warn about.
	_, stderr, err = runForTest(t, "--base-url", s.BaseURL(), "--store", "memory", "GET", "items")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	_, _, err = runForTest(t, "--base-url", s.BaseURL(), "--store", "memory", "logout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory store")
}

func TestRun_Usage(t *testing.T) {
	_, stderr, err := runForTest(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Usage: kuggle")

	_, _, err = runForTest(t, "GET")
	assert.Error(t, err)

	_, _, err = runForTest(t, "--store", "vault", "GET", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials.store")
}

func TestParseParams(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		params, err := parseParams([]string{"a=1", "b:=true", "c=x:=y", "d:={\"k\":null}", "e="})
		require.NoError(t, err)
		assert.Equal(t, "a=1&b=1&c=x%3A%3Dy&d%5Bk%5D=&e=", kuggleapi.EncodeParams(params))
	})

	for _, c := range []string{"noeq", "=v", "a:=[", "a:=1 2", `a:={"k":1}{}`} {
		_, err := parseParams([]string{c})
		assert.Error(t, err, c)
	}

	_, err := parseParams([]string{"a=1", "a=2"})
	assert.Error(t, err)
}

func TestParseHeaders(t *testing.T) {
	h, err := parseHeaders([]string{"X-A: 1", "X-B:2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-A": "1", "X-B": "2"}, h)

	_, err = parseHeaders([]string{"bad"})
	assert.Error(t, err)

	h, err = parseHeaders(nil)
	require.NoError(t, err)
	assert.Nil(t, h)
}
