package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBucket is an in-memory object store addressed by path.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	corrupt bool
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		if r.Header.Get("Content-Type") != "image/png" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		data, _ := io.ReadAll(r.Body)
		if b.corrupt {
			data = append(data, 0)
		}
		b.objects[r.URL.Path] = data
	case http.MethodGet:
		data, ok := b.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}
}

type fakePresigner struct {
	base string
}

func (f fakePresigner) PresignUpload(ctx context.Context, userID, contentType string, size int64) (*services.Upload, error) {
	key := "users/" + userID + "/probe.png"
	return &services.Upload{Key: key, URL: f.base + "/" + key + "?X-Amz-Signature=put"}, nil
}

func (f fakePresigner) PresignDownload(ctx context.Context, userID, key string) (string, error) {
	return f.base + "/" + key + "?X-Amz-Signature=get", nil
}

func stubStorage(t *testing.T, bucket *fakeBucket) {
	t.Helper()
	ts := httptest.NewServer(bucket)
	t.Cleanup(ts.Close)

	origP, origC := newPresigner, httpClient
	t.Cleanup(func() { newPresigner, httpClient = origP, origC })
	newPresigner = func(*config.Config) presigner { return fakePresigner{base: ts.URL} }
	httpClient = ts.Client()
}

func TestVerifyStorage(t *testing.T) {
	stubConfig(t, nil)
	bucket := &fakeBucket{objects: map[string][]byte{}}
	stubStorage(t, bucket)

	out, err := run(t, "verify-storage")
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded users/storage-probe/probe.png")
	assert.True(t, strings.HasSuffix(out, "OK    storage round trip succeeded\n"))
	assert.Equal(t, probePNG, bucket.objects["/users/storage-probe/probe.png"])
}

func TestVerifyStorage_Mismatch(t *testing.T) {
	stubConfig(t, nil)
	stubStorage(t, &fakeBucket{objects: map[string][]byte{}, corrupt: true})

	_, err := run(t, "verify-storage")
	assert.ErrorContains(t, err, "differ from the probe")
}

func TestProbeIsAcceptedAttachment(t *testing.T) {
	assert.Less(t, len(probePNG), services.MaxAttachmentSize)
	assert.Equal(t, "image/png", http.DetectContentType(probePNG))
}
