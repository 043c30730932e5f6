package segment

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.DefaultConfig())
	destPath := filepath.Join(t.TempDir(), "seg.ts")

	n, err := downloadWithRetry(t.Context(), client, srv.URL, destPath, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), n)
	assert.Equal(t, 3, attempts)

	data, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDownloadWithRetry_404DoesNotRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.DefaultConfig())
	destPath := filepath.Join(t.TempDir(), "seg.ts")

	_, err := downloadWithRetry(t.Context(), client, srv.URL, destPath, nil)
	require.Error(t, err)
	assert.True(t, bsrerrors.Is(err, bsrerrors.KindStreamExpired))
	assert.Equal(t, 1, attempts)
}

func TestDownloadWithRetry_ExhaustsAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.DefaultConfig())
	destPath := filepath.Join(t.TempDir(), "seg.ts")

	_, err := downloadWithRetry(t.Context(), client, srv.URL, destPath, nil)
	require.Error(t, err)
}
