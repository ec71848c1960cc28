package oss

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = []byte(`
endpoint: oss-cn-hangzhou.aliyuncs.com
access-key-id: 44CF9590006BF252F707
access-key-secret: OtxrzxIsfpFjA7SwPzILwy8Bw21TLhquhboDYROV
cname: false
timeout: 30s
`)

func TestMain(m *testing.M) {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.ErrorLevel)
	os.Exit(m.Run())
}

func Test_ClientFromConfig(t *testing.T) {
	viper.Reset()
	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(bytes.NewBuffer(testConfig)))

	assert := assert.New(t)

	creds, err := NewCredentials(viper.GetString("access-key-id"), viper.GetString("access-key-secret"))
	require.NoError(t, err)

	client, err := New(viper.GetString("endpoint"), creds, WithTimeout(viper.GetDuration("timeout")))
	require.NoError(t, err)
	defer client.Close()

	assert.Equal("http://oss-cn-hangzhou.aliyuncs.com", client.endpoint)
	assert.Equal(30*time.Second, client.opts.Timeout)
}

func TestNewRejectsNilCredentials(t *testing.T) {
	_, err := New("oss-cn-hangzhou.aliyuncs.com", nil)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	creds, err := NewCredentials("ak", "sk")
	require.NoError(t, err)

	_, err = New("http://", creds)
	require.Error(t, err)

	var perr *ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestListBuckets(t *testing.T) {
	var got captured
	bucket := newTestBucket(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.record(r)
		xmlResponse(w, http.StatusOK, `<?xml version="1.0"?>
<ListAllMyBucketsResult>
  <Owner><ID>1234</ID><DisplayName>1234</DisplayName></Owner>
  <IsTruncated>true</IsTruncated>
  <NextMarker>pics</NextMarker>
  <Buckets>
    <Bucket>
      <Name>backups</Name>
      <Location>oss-cn-hangzhou</Location>
      <CreationDate>2023-08-01T10:00:00.000Z</CreationDate>
      <StorageClass>Standard</StorageClass>
    </Bucket>
    <Bucket>
      <Name>pics</Name>
      <Location>oss-cn-hangzhou</Location>
      <CreationDate>2023-08-02T10:00:00.000Z</CreationDate>
      <StorageClass>IA</StorageClass>
    </Bucket>
  </Buckets>
</ListAllMyBucketsResult>`)
	}))

	result, err := bucket.client.ListBuckets(context.Background(), "p", "", 10)
	require.NoError(t, err)

	c := got.get()
	assert.Equal(t, "/", c.path)
	assert.Equal(t, "p", c.query.Get("prefix"))
	assert.Equal(t, "10", c.query.Get("max-keys"))

	require.Len(t, result.Buckets, 2)
	assert.Equal(t, "backups", result.Buckets[0].Name)
	assert.Equal(t, "pics", result.Buckets[1].Name)
	assert.Equal(t, "IA", result.Buckets[1].StorageClass)
	assert.True(t, result.IsTruncated)
	assert.Equal(t, "pics", result.NextMarker)
	assert.Equal(t, "1234", result.Owner.ID)
}

func TestClosedClientRefusesRequests(t *testing.T) {
	bucket := newTestBucket(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	bucket.client.Close()

	_, err := bucket.GetObject(context.Background(), "k", nil)
	assert.ErrorIs(t, err, ErrClientClosed)

	err = bucket.DeleteObject(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestFileRoundTrip(t *testing.T) {
	var mu sync.Mutex
	store := map[string][]byte{}

	bucket := newTestBucket(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			store[r.URL.Path] = body
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			mu.Lock()
			body, ok := store[r.URL.Path]
			mu.Unlock()
			if !ok {
				xmlResponse(w, http.StatusNotFound, `<Error><Code>NoSuchKey</Code></Error>`)
				return
			}
			w.Write(body)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	dir := t.TempDir()
	src := filepath.Join(dir, "upload.txt")
	require.NoError(t, os.WriteFile(src, []byte("file round trip payload"), 0o644))

	_, err := bucket.PutObjectFromFile(context.Background(), "upload.txt", src, nil)
	require.NoError(t, err)

	dst := filepath.Join(dir, "download.txt")
	require.NoError(t, bucket.GetObjectToFile(context.Background(), "upload.txt", dst, nil))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "file round trip payload", string(data))
}

func TestGetObjectToFileTruncatedBody(t *testing.T) {
	bucket := newTestBucket(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Announce more than is sent, then cut the connection.
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("server does not support hijacking")
			return
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			return
		}
		buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort")
		buf.Flush()
		conn.Close()
	}))

	dst := filepath.Join(t.TempDir(), "out.bin")
	err := bucket.GetObjectToFile(context.Background(), "k", dst, nil)
	require.Error(t, err)
}
