package osstest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerevia/go-oss/oss"
)

func testCreds(t *testing.T) *oss.Credentials {
	t.Helper()
	creds, err := oss.NewCredentials("emulator-key", "emulator-secret")
	require.NoError(t, err)
	return creds
}

// startServer runs an emulator and a client wired to it. The client
// always signs; signature checking is on only when the caller passes
// WithCredentials.
func startServer(t *testing.T, opts ...ServerOption) (*Server, *oss.Client) {
	t.Helper()

	s := NewServer(opts...)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	client, err := oss.New(srv.URL, testCreds(t))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return s, client
}

func TestObjectLifecycle(t *testing.T) {
	_, client := startServer(t, WithCredentials(testCreds(t)))
	ctx := context.Background()
	bucket := client.Bucket("pics")

	require.NoError(t, bucket.CreateBucket(ctx, nil))

	exists, err := bucket.IsBucketExist(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	put, err := bucket.PutObject(ctx, "holiday.jpg", strings.NewReader("beach bytes"), map[string]string{
		"Content-Type":     "image/jpeg",
		"x-oss-meta-place": "lisbon",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, put.ETag)
	assert.NotEmpty(t, put.RequestID)

	result, err := bucket.GetObject(ctx, "holiday.jpg", nil)
	require.NoError(t, err)
	data, err := io.ReadAll(result)
	require.NoError(t, err)
	require.NoError(t, result.Close())
	assert.Equal(t, "beach bytes", string(data))
	assert.Equal(t, "image/jpeg", result.ContentType)
	assert.Equal(t, put.ETag, result.ETag)
	assert.Equal(t, "lisbon", result.Headers.Get("x-oss-meta-place"))

	head, err := bucket.HeadObject(ctx, "holiday.jpg", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len("beach bytes")), head.ContentLength)
	assert.Equal(t, "Normal", head.ObjectType)

	meta, err := bucket.GetObjectMeta(ctx, "holiday.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(len("beach bytes")), meta.ContentLength)
	assert.Equal(t, put.ETag, meta.ETag)

	exists, err = bucket.IsObjectExist(ctx, "holiday.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = bucket.IsObjectExist(ctx, "never-uploaded")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, bucket.DeleteObject(ctx, "holiday.jpg"))
	// Idempotent: the second delete succeeds as well.
	require.NoError(t, bucket.DeleteObject(ctx, "holiday.jpg"))

	exists, err = bucket.IsObjectExist(ctx, "holiday.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, bucket.DeleteBucket(ctx))
	exists, err = bucket.IsBucketExist(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetObjectRangeAgainstEmulator(t *testing.T) {
	s, client := startServer(t)
	s.SeedObject("pics", "song.txt", []byte("do re mi fa sol"), "text/plain", nil)

	result, err := client.Bucket("pics").GetObjectRange(context.Background(), "song.txt", 3, 7, nil)
	require.NoError(t, err)
	defer result.Close()

	data, err := io.ReadAll(result)
	require.NoError(t, err)
	assert.Equal(t, "re mi", string(data))
	assert.Equal(t, int64(5), result.ContentLength)
}

func TestCopyAndUpdateMeta(t *testing.T) {
	s, client := startServer(t)
	s.SeedObject("pics", "src.txt", []byte("copy me"), "text/plain", map[string]string{
		"x-oss-meta-origin": "src",
	})
	s.SeedBucket("backup")
	ctx := context.Background()

	dst := client.Bucket("backup")
	copied, err := dst.CopyObject(ctx, "pics", "src.txt", "dst.txt", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, copied.ETag)

	result, err := dst.GetObject(ctx, "dst.txt", nil)
	require.NoError(t, err)
	data, err := io.ReadAll(result)
	require.NoError(t, err)
	require.NoError(t, result.Close())
	assert.Equal(t, "copy me", string(data))
	// Metadata travels with the copy by default.
	assert.Equal(t, "src", result.Headers.Get("x-oss-meta-origin"))

	_, err = dst.UpdateObjectMeta(ctx, "dst.txt", map[string]string{
		"x-oss-meta-origin": "rewritten",
	})
	require.NoError(t, err)

	head, err := dst.HeadObject(ctx, "dst.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", head.Headers.Get("x-oss-meta-origin"))

	_, err = dst.CopyObject(ctx, "pics", "no-such-key", "x", nil)
	require.Error(t, err)
	assert.True(t, oss.IsNotFound(err))
}

func TestAppendAgainstEmulator(t *testing.T) {
	_, client := startServer(t, WithCredentials(testCreds(t)))
	ctx := context.Background()
	bucket := client.Bucket("logs")
	require.NoError(t, bucket.CreateBucket(ctx, nil))

	first, err := bucket.AppendObject(ctx, "app.log", 0, strings.NewReader("hello "), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), first.NextPosition)

	second, err := bucket.AppendObject(ctx, "app.log", first.NextPosition, strings.NewReader("world"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11), second.NextPosition)

	result, err := bucket.GetObject(ctx, "app.log", nil)
	require.NoError(t, err)
	data, err := io.ReadAll(result)
	require.NoError(t, err)
	require.NoError(t, result.Close())
	assert.Equal(t, "hello world", string(data))

	// A stale position is rejected and the reply names the right one.
	_, err = bucket.AppendObject(ctx, "app.log", 3, strings.NewReader("x"), nil)
	require.Error(t, err)
	var serr *oss.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "PositionNotEqualToLength", serr.Code)
	assert.Equal(t, "11", serr.Headers.Get("x-oss-next-append-position"))

	// Overwriting with a plain put makes the object non-appendable.
	_, err = bucket.PutObject(ctx, "app.log", strings.NewReader("flat"), nil)
	require.NoError(t, err)
	_, err = bucket.AppendObject(ctx, "app.log", 4, strings.NewReader("more"), nil)
	require.Error(t, err)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "ObjectNotAppendable", serr.Code)
}

func TestListingAndIterator(t *testing.T) {
	s, client := startServer(t)
	for _, key := range []string{"docs/a.txt", "docs/b.txt", "docs/sub/c.txt", "top.txt", "dir/with space.txt"} {
		s.SeedObject("pics", key, []byte("x"), "text/plain", nil)
	}
	ctx := context.Background()
	bucket := client.Bucket("pics")

	page, err := bucket.ListObjects(ctx, "docs/", "/", "", 0)
	require.NoError(t, err)
	keys := make([]string, 0, len(page.Objects))
	for _, o := range page.Objects {
		keys = append(keys, o.Key)
	}
	assert.Equal(t, []string{"docs/a.txt", "docs/b.txt"}, keys)
	assert.Equal(t, []string{"docs/sub/"}, page.CommonPrefixes)

	it := bucket.Objects("", "", "", 2)
	var all []string
	for {
		info, err := it.Next(ctx)
		if err == oss.ErrNoMoreObjects {
			break
		}
		require.NoError(t, err)
		all = append(all, info.Key)
	}
	assert.Equal(t, []string{"dir/with space.txt", "docs/a.txt", "docs/b.txt", "docs/sub/c.txt", "top.txt"}, all)

	// Keys needing escaping survive the round trip.
	result, err := bucket.GetObject(ctx, "dir/with space.txt", nil)
	require.NoError(t, err)
	require.NoError(t, result.Close())
}

func TestGroupedListingPaginates(t *testing.T) {
	s, client := startServer(t)
	for _, key := range []string{"a.txt", "dir/1.txt", "dir/2.txt", "dir/3.txt", "e.txt"} {
		s.SeedObject("pics", key, []byte("x"), "", nil)
	}
	ctx := context.Background()
	bucket := client.Bucket("pics")

	page, err := bucket.ListObjects(ctx, "", "/", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Objects, 1)
	assert.Equal(t, "a.txt", page.Objects[0].Key)
	assert.Equal(t, []string{"dir/"}, page.CommonPrefixes)
	require.True(t, page.IsTruncated)
	assert.Equal(t, "dir/", page.NextMarker)

	// The group that closed the first page must not reappear.
	page, err = bucket.ListObjects(ctx, "", "/", page.NextMarker, 2)
	require.NoError(t, err)
	require.Len(t, page.Objects, 1)
	assert.Equal(t, "e.txt", page.Objects[0].Key)
	assert.Empty(t, page.CommonPrefixes)
	assert.False(t, page.IsTruncated)
}

func TestBatchDeleteAgainstEmulator(t *testing.T) {
	s, client := startServer(t, WithCredentials(testCreds(t)))
	for _, key := range []string{"a.txt", "b.txt", "keep.txt"} {
		s.SeedObject("pics", key, []byte("x"), "", nil)
	}

	result, err := client.Bucket("pics").DeleteObjects(context.Background(), []string{"a.txt", "b.txt"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, result.DeletedKeys)

	_, ok := s.Object("pics", "a.txt")
	assert.False(t, ok)
	_, ok = s.Object("pics", "keep.txt")
	assert.True(t, ok)
}

func TestSignatureRejected(t *testing.T) {
	serverCreds, err := oss.NewCredentials("right-key", "right-secret")
	require.NoError(t, err)

	s := NewServer(WithCredentials(serverCreds))
	s.SeedObject("pics", "k", []byte("x"), "", nil)
	srv := httptest.NewServer(s)
	defer srv.Close()

	client, err := oss.New(srv.URL, testCreds(t))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Bucket("pics").GetObject(context.Background(), "k", nil)
	require.Error(t, err)

	var serr *oss.ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusForbidden, serr.StatusCode)
	assert.Equal(t, "SignatureDoesNotMatch", serr.Code)
}

func TestVirtualHostRouting(t *testing.T) {
	s := NewServer(WithBaseHost("oss.example.test"))
	s.SeedObject("pics", "k.txt", []byte("virtual"), "text/plain", nil)

	req := httptest.NewRequest(http.MethodGet, "http://pics.oss.example.test/k.txt", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "virtual", rec.Body.String())

	// Without the bucket subdomain the path carries the bucket.
	req = httptest.NewRequest(http.MethodGet, "http://oss.example.test/pics/k.txt", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPresignedURLFetch(t *testing.T) {
	s, client := startServer(t, WithCredentials(testCreds(t)))
	s.SeedObject("pics", "shared.txt", []byte("presigned payload"), "text/plain", nil)

	signed, err := client.Bucket("pics").SignURL(http.MethodGet, "shared.txt", time.Minute, nil, nil)
	require.NoError(t, err)

	resp, err := http.Get(signed)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "presigned payload", string(data))

	// A tampered signature is rejected.
	tampered := strings.Replace(signed, "Signature=", "Signature=AAAA", 1)
	resp, err = http.Get(tampered)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLoadSeed(t *testing.T) {
	seed := `
buckets:
  - name: pics
    objects:
      - key: a.txt
        content: hello
        content-type: text/plain
        meta:
          x-oss-meta-author: nelson
  - name: logs
    objects:
      - key: app.log
        content: "line one\n"
        appendable: true
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s, client := startServer(t)
	require.NoError(t, s.LoadSeed(path))

	data, ok := s.Object("pics", "a.txt")
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))

	head, err := client.Bucket("pics").HeadObject(context.Background(), "a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "nelson", head.Headers.Get("x-oss-meta-author"))

	logHead, err := client.Bucket("logs").HeadObject(context.Background(), "app.log", nil)
	require.NoError(t, err)
	assert.Equal(t, "Appendable", logHead.ObjectType)
}
