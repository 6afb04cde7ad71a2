package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads the body to dest", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("media-bytes"))
		}))
		defer srv.Close()

		dest := filepath.Join(t.TempDir(), "in.mp4")
		f := NewHTTPFetcher(5 * time.Second)

		require.NoError(t, f.Fetch(ctx, srv.URL, dest))

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "media-bytes", string(data))
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		f := NewHTTPFetcher(5 * time.Second)
		err := f.Fetch(ctx, srv.URL, filepath.Join(t.TempDir(), "in.mp4"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 404")
	})

	t.Run("canceled context aborts the request", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(time.Second)
		}))
		defer srv.Close()

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		f := NewHTTPFetcher(5 * time.Second)
		err := f.Fetch(canceled, srv.URL, filepath.Join(t.TempDir(), "in.mp4"))
		assert.Error(t, err)
	})
}
