package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStore_URL(t *testing.T) {
	s, err := NewHTTPStore("https://cdn.example.com/assets", 0)
	require.NoError(t, err)

	u, err := s.URL(context.Background(), "/capes/founder.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/assets/capes/founder.png", u)

	_, err = s.URL(context.Background(), "https://evil.example.com/x.png")
	assert.Error(t, err)
}

func TestHTTPStore_ETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/capes/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `W/"5d41402abc4b2a76b9719d911017c592"`)
	}))
	defer srv.Close()

	s, err := NewHTTPStore(srv.URL, 0)
	require.NoError(t, err)

	tag, err := s.ETag(context.Background(), "capes/founder.png")
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", NormalizeETag(tag))

	_, err = s.ETag(context.Background(), "capes/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewHTTPStore_RejectsBadScheme(t *testing.T) {
	_, err := NewHTTPStore("ftp://example.com", 0)
	assert.Error(t, err)
}

func TestNormalizeETag(t *testing.T) {
	assert.Equal(t, "abc", NormalizeETag(`"abc"`))
	assert.Equal(t, "abc", NormalizeETag(`W/"abc"`))
	assert.Equal(t, "abc", NormalizeETag(`abc`))
	assert.Equal(t, "", NormalizeETag(``))
}
