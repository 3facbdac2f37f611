package clienttest

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/cmstar/go-kuggleapi"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	s := NewServer()
	defer s.Close()

	assert.True(t, strings.HasSuffix(s.BaseURL(), "/1/"))

	s.Envelope("GET", "profile", 200, "OK", map[string]any{"id": 1})
	s.Raw("POST", "raw", 500, "text/plain", "oops")
	s.Handle("PUT", "/custom", func(c echo.Context) error {
		return c.String(http.StatusOK, c.FormValue("a[b]"))
	})

	t.Run("envelope", func(t *testing.T) {
		resp, err := http.Get(s.BaseURL() + "profile?x=1")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, 200, resp.StatusCode)
		assert.JSONEq(t, `{"meta":{"code":200,"msg":"OK"},"data":{"id":1}}`, string(body))

		r, ok := s.LastRequest()
		require.True(t, ok)
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/1/profile", r.Path)
		assert.Equal(t, "profile", r.Endpoint)
		assert.Equal(t, "x=1", r.RawQuery)

		pairs, err := r.QueryPairs()
		require.NoError(t, err)
		assert.Equal(t, []kuggleapi.QueryPair{{Key: "x", Value: "1"}}, pairs)
	})

	t.Run("raw", func(t *testing.T) {
		resp, err := http.Post(s.BaseURL()+"raw", kuggleapi.ContentTypeForm, strings.NewReader("k=v%20w"))
		require.NoError(t, err)
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, 500, resp.StatusCode)
		assert.Equal(t, "oops", string(body))

		r, _ := s.LastRequest()
		assert.Equal(t, "k=v%20w", string(r.Body))
		pairs, err := r.BodyPairs()
		require.NoError(t, err)
		assert.Equal(t, []kuggleapi.QueryPair{{Key: "k", Value: "v w"}}, pairs)
	})

	t.Run("body-readable-by-handler", func(t *testing.T) {
		req, _ := http.NewRequest("PUT", s.BaseURL()+"custom", strings.NewReader("a%5Bb%5D=1"))
		req.Header.Set(kuggleapi.HttpHeaderContentType, kuggleapi.ContentTypeForm)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "1", string(body))
	})

	assert.Len(t, s.Requests(), 3)
}

func TestServer_NoRequest(t *testing.T) {
	s := NewServer()
	defer s.Close()

	_, ok := s.LastRequest()
	assert.False(t, ok)
	assert.Empty(t, s.Requests())
}

func TestEnvelopeJSON(t *testing.T) {
	assert.JSONEq(t, `{"meta":{"code":401,"msg":"denied"},"data":null}`, EnvelopeJSON(401, "denied", nil))
}

func TestServer_Recover(t *testing.T) {
	s := NewServer()
	defer s.Close()

	s.Handle("GET", "boom", func(c echo.Context) error {
		panic("boom")
	})

	resp, err := http.Get(s.BaseURL() + "boom")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// The request is still recorded.
	r, ok := s.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "boom", r.Endpoint)
}
