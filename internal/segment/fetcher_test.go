package segment

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/tvarr/internal/httpclient"
	"github.com/jmylchreest/tvarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher() *Fetcher {
	f := New(httpclient.New(httpclient.DefaultConfig()), testLogger())
	f.refreshCap = 20 * time.Millisecond
	return f
}

// fakeIndex records calls without needing a models.ArchiveIndex; used
// where tests only care what the Fetcher reported, not GORM persistence.
type fakeIndex struct {
	mu        sync.Mutex
	entries   []models.SegmentEntry
	hasInit   bool
	totalSize int64
}

func (f *fakeIndex) Append(e models.SegmentEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
}

func (f *fakeIndex) SetInitSegment() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasInit = true
}

func (f *fakeIndex) AddSize(n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalSize += n
}

func (f *fakeIndex) snapshot() ([]models.SegmentEntry, int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SegmentEntry, len(f.entries))
	copy(out, f.entries)
	return out, f.totalSize
}

func TestFetcher_RunHLS_TSMode(t *testing.T) {
	var mu sync.Mutex
	served := false

	mux := http.NewServeMux()
	mux.HandleFunc("/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if !served {
			served = true
			fmt.Fprint(w, "#EXTM3U\n#EXT-X-TARGETDURATION:1\n#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:1.0,\nseg0.ts\n#EXTINF:1.0,\nseg1.ts\n#EXT-X-ENDLIST\n")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/seg0.ts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tsdata0"))
	})
	mux.HandleFunc("/seg1.ts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tsdata1"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	workDir := t.TempDir()
	handle := models.StreamHandle{
		Format:      models.ContainerTS,
		PlaylistURL: srv.URL + "/index.m3u8",
		Headers:     map[string]string{},
	}

	f := newTestFetcher()
	idx := &fakeIndex{}
	err := f.Run(t.Context(), handle, workDir, idx)
	require.NoError(t, err)

	entries, _ := idx.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(0), entries[0].Sequence)
	assert.Equal(t, int64(1), entries[1].Sequence)

	data, err := os.ReadFile(filepath.Join(workDir, "0.ts"))
	require.NoError(t, err)
	assert.Equal(t, "tsdata0", string(data))
}

func TestFetcher_RunFLV_EndsOnEOF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(w, strings.NewReader("FLVbodybytes"))
	}))
	defer srv.Close()

	workDir := t.TempDir()
	handle := models.StreamHandle{
		Format:    models.ContainerFLV,
		StreamURL: srv.URL,
		Headers:   map[string]string{},
	}

	f := newTestFetcher()
	idx := &fakeIndex{}
	err := f.Run(t.Context(), handle, workDir, idx)
	require.NoError(t, err)

	_, size := idx.snapshot()
	assert.Equal(t, int64(len("FLVbodybytes")), size)

	data, err := os.ReadFile(filepath.Join(workDir, "stream.flv"))
	require.NoError(t, err)
	assert.Equal(t, "FLVbodybytes", string(data))
}

func TestFetcher_RunHLS_StreamExpiredOnDouble404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	workDir := t.TempDir()
	handle := models.StreamHandle{
		Format:      models.ContainerTS,
		PlaylistURL: srv.URL + "/index.m3u8",
		Headers:     map[string]string{},
	}

	f := newTestFetcher()
	idx := &fakeIndex{}
	err := f.Run(t.Context(), handle, workDir, idx)
	require.Error(t, err)
}
