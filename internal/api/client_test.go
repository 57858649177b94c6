package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, New(server.URL, "").Healthcheck(context.Background()))
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	assert.Error(t, New(url, "").Healthcheck(context.Background()))
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := New(server.URL, "").Healthcheck(context.Background())
	assert.ErrorContains(t, err, "status 500")
}

func TestUpload_Success(t *testing.T) {
	type received struct {
		secret, filename, session, topic, frames, duration string
		content                                           []byte
	}
	got := make(chan received, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions/add", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		content, _ := io.ReadAll(f)

		got <- received{
			secret:   r.FormValue("secret"),
			filename: r.FormValue("filename"),
			session:  r.FormValue("sessionName"),
			topic:    r.FormValue("topic"),
			frames:   r.FormValue("frames"),
			duration: r.FormValue("duration"),
			content:  content,
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "case-12_20260101_000000.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("gzdata"), 0644))

	err := New(server.URL, "key").Upload(context.Background(), path, UploadMetadata{
		SessionName: "case-12",
		Topic:       "fusion",
		Frames:      600,
		Duration:    10 * time.Second,
	})
	require.NoError(t, err)

	r := <-got
	assert.Equal(t, "key", r.secret)
	assert.Equal(t, "case-12_20260101_000000.json.gz", r.filename)
	assert.Equal(t, "case-12", r.session)
	assert.Equal(t, "fusion", r.topic)
	assert.Equal(t, "600", r.frames)
	assert.Equal(t, "10.000000", r.duration)
	assert.Equal(t, []byte("gzdata"), r.content)
}

func TestUpload_ServerRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "s.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	err := New(server.URL, "bad").Upload(context.Background(), path, UploadMetadata{})
	assert.ErrorContains(t, err, "status 403")
}

func TestUpload_MissingFile(t *testing.T) {
	err := New("http://localhost:1", "").Upload(context.Background(), "/nonexistent.json", UploadMetadata{})
	assert.ErrorContains(t, err, "failed to open file")
}
