package oss

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	log "github.com/sirupsen/logrus"
)

// presignFreshness is how much remaining validity a cached presigned
// URL must have to be handed out again.
const presignFreshness = time.Minute

// Bucket performs object operations against one named bucket. It is
// cheap to construct and safe for concurrent use.
type Bucket struct {
	client *Client
	name   string

	presignMu    sync.Mutex
	presignCache *lru.Cache
}

func newBucket(c *Client, name string) *Bucket {
	b := &Bucket{client: c, name: name}
	if c.opts.PresignCacheSize > 0 {
		b.presignCache = lru.New(c.opts.PresignCacheSize)
	}
	return b
}

func (b *Bucket) Name() string {
	return b.name
}

// PutObject stores body under key and returns the stored object's ETag.
// headers go on the request verbatim; Content-Type is sniffed from the
// key's extension when the caller does not set one.
func (b *Bucket) PutObject(ctx context.Context, key string, body io.Reader, headers map[string]string) (result *PutResult, err error) {
	headers = withContentType(key, headers)

	resp, err := b.client.do(ctx, "PutObject", http.MethodPut, b.name, key, nil, headers, body)
	if err != nil {
		log.Warnf("Put Object(%s) into Bucket(%s) failed: %v", key, b.name, err)
		return nil, fmt.Errorf("failed to put object %s in bucket %s: %w", key, b.name, err)
	}
	defer CheckClose(resp, &err)

	return &PutResult{
		ETag:      unquoteETag(resp.Headers.Get("Etag")),
		RequestID: resp.RequestID,
	}, nil
}

// PutObjectFromFile uploads the file at filePath under key. The
// Content-Type follows the file's extension unless headers choose one.
func (b *Bucket) PutObjectFromFile(ctx context.Context, key, filePath string, headers map[string]string) (result *PutResult, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer CheckClose(f, &err)

	return b.PutObject(ctx, key, f, withContentType(filePath, headers))
}

// GetObject opens key for reading. The returned body can be consumed
// exactly once and must be closed.
func (b *Bucket) GetObject(ctx context.Context, key string, headers map[string]string) (*GetObjectResult, error) {
	resp, err := b.client.do(ctx, "GetObject", http.MethodGet, b.name, key, nil, headers, nil)
	if err != nil {
		log.Warnf("Get Object(%s) from Bucket(%s) failed: %v", key, b.name, err)
		return nil, fmt.Errorf("failed to get object %s in bucket %s: %w", key, b.name, err)
	}

	return &GetObjectResult{
		Response:      resp,
		ContentLength: parseContentLength(resp.Headers.Get("Content-Length")),
		ContentType:   resp.Headers.Get("Content-Type"),
		ETag:          unquoteETag(resp.Headers.Get("Etag")),
		LastModified:  parseHTTPTime(resp.Headers.Get("Last-Modified")),
	}, nil
}

// GetObjectRange reads a byte range of key. Either bound may be -1 to
// leave that end open.
func (b *Bucket) GetObjectRange(ctx context.Context, key string, start, end int64, headers map[string]string) (*GetObjectResult, error) {
	h := copyHeaders(headers)
	if r := makeRangeString(start, end); r != "" {
		h["Range"] = r
	}
	return b.GetObject(ctx, key, h)
}

// GetObjectToFile downloads key into filePath. A reply shorter than its
// announced Content-Length fails with a ProtocolError.
func (b *Bucket) GetObjectToFile(ctx context.Context, key, filePath string, headers map[string]string) (err error) {
	result, err := b.GetObject(ctx, key, headers)
	if err != nil {
		return err
	}
	defer CheckClose(result, &err)

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filePath, err)
	}
	defer CheckClose(f, &err)

	written, err := io.Copy(f, result)
	if err != nil {
		return fmt.Errorf("failed to read object %s in bucket %s: %w", key, b.name, err)
	}
	if result.ContentLength >= 0 && written != result.ContentLength {
		return &ProtocolError{Reason: fmt.Sprintf("short body: read %d of %d bytes", written, result.ContentLength)}
	}
	return nil
}

// DeleteObject removes key. Deleting an object that is already gone is
// a success, not an error.
func (b *Bucket) DeleteObject(ctx context.Context, key string) (err error) {
	resp, err := b.client.do(ctx, "DeleteObject", http.MethodDelete, b.name, key, nil, nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		log.Warnf("Delete Object(%s) from Bucket(%s) failed: %v", key, b.name, err)
		return fmt.Errorf("failed to delete object %s in bucket %s: %w", key, b.name, err)
	}
	return resp.Close()
}

// DeleteObjects removes the given keys in one request and returns the
// keys the service reports deleted.
func (b *Bucket) DeleteObjects(ctx context.Context, keys []string) (result *DeleteObjectsResult, err error) {
	if len(keys) == 0 {
		return nil, ErrEmptyKeyList
	}

	req := deleteXML{Quiet: false}
	for _, k := range keys {
		req.Objects = append(req.Objects, deleteKey{Key: k})
	}
	payload, err := xml.Marshal(req)
	if err != nil {
		return nil, &ProtocolError{Reason: "encode delete request", Err: err}
	}

	sum := md5.Sum(payload)
	headers := map[string]string{
		"Content-MD5":  base64.StdEncoding.EncodeToString(sum[:]),
		"Content-Type": "application/xml",
	}
	params := url.Values{}
	params.Set("delete", "")
	params.Set("encoding-type", "url")

	resp, err := b.client.do(ctx, "DeleteObjects", http.MethodPost, b.name, "", params, headers, bytes.NewReader(payload))
	if err != nil {
		log.Warnf("Delete Objects from Bucket(%s) failed: %v", b.name, err)
		return nil, fmt.Errorf("failed to delete %d objects in bucket %s: %w", len(keys), b.name, err)
	}
	defer CheckClose(resp, &err)

	out := &DeleteObjectsResult{}
	if err := decodeXML(resp, out); err != nil {
		return nil, err
	}
	for i, k := range out.DeletedKeys {
		out.DeletedKeys[i] = decodeListedKey(k, out.EncodingType)
	}
	out.RequestID = resp.RequestID
	return out, nil
}

// HeadObject fetches the full metadata of key without its body.
func (b *Bucket) HeadObject(ctx context.Context, key string, headers map[string]string) (result *HeadObjectResult, err error) {
	resp, err := b.client.do(ctx, "HeadObject", http.MethodHead, b.name, key, nil, headers, nil)
	if err != nil {
		log.Warnf("Head Object(%s) from Bucket(%s) failed: %v", key, b.name, err)
		return nil, fmt.Errorf("failed to head object %s in bucket %s: %w", key, b.name, err)
	}
	defer CheckClose(resp, &err)

	return &HeadObjectResult{
		ContentLength: parseContentLength(resp.Headers.Get("Content-Length")),
		ContentType:   resp.Headers.Get("Content-Type"),
		ETag:          unquoteETag(resp.Headers.Get("Etag")),
		LastModified:  parseHTTPTime(resp.Headers.Get("Last-Modified")),
		ObjectType:    resp.Headers.Get(headerOSSObjectType),
		StorageClass:  resp.Headers.Get(headerOSSStorageClass),
		Headers:       resp.Headers,
		RequestID:     resp.RequestID,
	}, nil
}

// GetObjectMeta fetches the reduced metadata view of key through the
// objectMeta subresource.
func (b *Bucket) GetObjectMeta(ctx context.Context, key string) (result *ObjectMeta, err error) {
	params := url.Values{}
	params.Set("objectMeta", "")

	resp, err := b.client.do(ctx, "GetObjectMeta", http.MethodHead, b.name, key, params, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get meta of object %s in bucket %s: %w", key, b.name, err)
	}
	defer CheckClose(resp, &err)

	return &ObjectMeta{
		ContentLength: parseContentLength(resp.Headers.Get("Content-Length")),
		ETag:          unquoteETag(resp.Headers.Get("Etag")),
		LastModified:  parseHTTPTime(resp.Headers.Get("Last-Modified")),
		RequestID:     resp.RequestID,
	}, nil
}

// IsObjectExist reports whether key exists. The check goes through the
// objectMeta subresource so a missing bucket still surfaces as an error
// instead of a false negative.
func (b *Bucket) IsObjectExist(ctx context.Context, key string) (bool, error) {
	_, err := b.GetObjectMeta(ctx, key)
	if err == nil {
		return true, nil
	}

	var serr *ServerError
	if errors.As(err, &serr) && serr.Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}

// CopyObject copies srcKey of srcBucket onto dstKey in this bucket. An
// empty srcBucket means this bucket. headers steer the copy, the
// metadata directive included.
func (b *Bucket) CopyObject(ctx context.Context, srcBucket, srcKey, dstKey string, headers map[string]string) (result *CopyObjectResult, err error) {
	if srcBucket == "" {
		srcBucket = b.name
	}
	h := copyHeaders(headers)
	h[headerOSSCopySource] = "/" + srcBucket + "/" + escapeKey(srcKey)

	resp, err := b.client.do(ctx, "CopyObject", http.MethodPut, b.name, dstKey, nil, h, nil)
	if err != nil {
		log.Warnf("Copy Object(%s/%s) to Bucket(%s) failed: %v", srcBucket, srcKey, b.name, err)
		return nil, fmt.Errorf("failed to copy object %s/%s to %s in bucket %s: %w", srcBucket, srcKey, dstKey, b.name, err)
	}
	defer CheckClose(resp, &err)

	out := &CopyObjectResult{}
	if err := decodeXML(resp, out); err != nil {
		return nil, err
	}
	out.RequestID = resp.RequestID
	return out, nil
}

// UpdateObjectMeta replaces the object's metadata with headers by
// copying the object onto itself.
func (b *Bucket) UpdateObjectMeta(ctx context.Context, key string, headers map[string]string) (*CopyObjectResult, error) {
	h := copyHeaders(headers)
	h[headerOSSMetadataDirective] = "REPLACE"
	return b.CopyObject(ctx, b.name, key, key, h)
}

// AppendObject writes body at position of the appendable object key.
// position must equal the object's current length; the result carries
// where the next append must start.
func (b *Bucket) AppendObject(ctx context.Context, key string, position int64, body io.Reader, headers map[string]string) (result *AppendResult, err error) {
	params := url.Values{}
	params.Set("append", "")
	params.Set("position", strconv.FormatInt(position, 10))
	headers = withContentType(key, headers)

	resp, err := b.client.do(ctx, "AppendObject", http.MethodPost, b.name, key, params, headers, body)
	if err != nil {
		log.Warnf("Append Object(%s) in Bucket(%s) failed: %v", key, b.name, err)
		return nil, fmt.Errorf("failed to append to object %s in bucket %s: %w", key, b.name, err)
	}
	defer CheckClose(resp, &err)

	next, perr := strconv.ParseInt(resp.Headers.Get(headerOSSNextAppendPosition), 10, 64)
	if perr != nil {
		return nil, &ProtocolError{Reason: "missing next append position", Err: perr}
	}
	return &AppendResult{
		NextPosition: next,
		ETag:         unquoteETag(resp.Headers.Get("Etag")),
		RequestID:    resp.RequestID,
	}, nil
}

// presignEntry is one cached presigned URL.
type presignEntry struct {
	url       string
	expiresAt time.Time
}

// SignURL builds a presigned URL for method on key, valid for expires.
// Plain URLs are cached per method and key and reused while they stay
// comfortably inside their validity.
func (b *Bucket) SignURL(method, key string, expires time.Duration, headers map[string]string, params url.Values) (string, error) {
	if expires <= 0 {
		return "", &SigningError{Missing: "Expires"}
	}

	now := time.Now()
	cacheKey := method + " " + key
	cacheable := b.presignCache != nil && len(headers) == 0 && len(params) == 0 && expires > presignFreshness

	if cacheable {
		b.presignMu.Lock()
		if v, ok := b.presignCache.Get(cacheKey); ok {
			e := v.(presignEntry)
			if now.Add(presignFreshness).Before(e.expiresAt) {
				b.presignMu.Unlock()
				return e.url, nil
			}
			b.presignCache.Remove(cacheKey)
		}
		b.presignMu.Unlock()
	}

	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	expiry := now.Add(expires).Unix()

	signed, err := b.client.signer.PresignParams(method, b.name, key, expiry, h, params)
	if err != nil {
		return "", err
	}
	urlStr := b.client.urls.URL(b.name, key, signed)

	if cacheable {
		b.presignMu.Lock()
		b.presignCache.Add(cacheKey, presignEntry{url: urlStr, expiresAt: time.Unix(expiry, 0)})
		b.presignMu.Unlock()
	}
	return urlStr, nil
}

// CreateBucket provisions the bucket. Service-side choices such as the
// initial ACL travel in headers.
func (b *Bucket) CreateBucket(ctx context.Context, headers map[string]string) (err error) {
	resp, err := b.client.do(ctx, "CreateBucket", http.MethodPut, b.name, "", nil, headers, nil)
	if err != nil {
		log.Warnf("Create Bucket(%s) failed: %v", b.name, err)
		return fmt.Errorf("failed to create bucket %s: %w", b.name, err)
	}
	return resp.Close()
}

// DeleteBucket removes the bucket, which must be empty.
func (b *Bucket) DeleteBucket(ctx context.Context) (err error) {
	resp, err := b.client.do(ctx, "DeleteBucket", http.MethodDelete, b.name, "", nil, nil, nil)
	if err != nil {
		log.Warnf("Delete Bucket(%s) failed: %v", b.name, err)
		return fmt.Errorf("failed to delete bucket %s: %w", b.name, err)
	}
	return resp.Close()
}

// GetBucketInfo fetches the bucket's description.
func (b *Bucket) GetBucketInfo(ctx context.Context) (result *BucketInfo, err error) {
	params := url.Values{}
	params.Set("bucketInfo", "")

	resp, err := b.client.do(ctx, "GetBucketInfo", http.MethodGet, b.name, "", params, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get info of bucket %s: %w", b.name, err)
	}
	defer CheckClose(resp, &err)

	out := &BucketInfo{}
	if err := decodeXML(resp, out); err != nil {
		return nil, err
	}
	out.RequestID = resp.RequestID
	return out, nil
}

// GetBucketStat fetches the bucket's storage and object counters.
func (b *Bucket) GetBucketStat(ctx context.Context) (result *BucketStat, err error) {
	params := url.Values{}
	params.Set("stat", "")

	resp, err := b.client.do(ctx, "GetBucketStat", http.MethodGet, b.name, "", params, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get stat of bucket %s: %w", b.name, err)
	}
	defer CheckClose(resp, &err)

	out := &BucketStat{}
	if err := decodeXML(resp, out); err != nil {
		return nil, err
	}
	out.RequestID = resp.RequestID
	return out, nil
}

// IsBucketExist reports whether the bucket exists.
func (b *Bucket) IsBucketExist(ctx context.Context) (bool, error) {
	_, err := b.GetBucketInfo(ctx)
	if err == nil {
		return true, nil
	}

	var serr *ServerError
	if errors.As(err, &serr) && serr.Code == "NoSuchBucket" {
		return false, nil
	}
	return false, err
}

// ListObjects fetches one listing page. Zero maxKeys keeps the
// service's default page size.
func (b *Bucket) ListObjects(ctx context.Context, prefix, delimiter, marker string, maxKeys int) (result *ListObjectsResult, err error) {
	params := url.Values{}
	params.Set("encoding-type", "url")
	if prefix != "" {
		params.Set("prefix", prefix)
	}
	if delimiter != "" {
		params.Set("delimiter", delimiter)
	}
	if marker != "" {
		params.Set("marker", marker)
	}
	if maxKeys > 0 {
		params.Set("max-keys", strconv.Itoa(maxKeys))
	}

	resp, err := b.client.do(ctx, "ListObjects", http.MethodGet, b.name, "", params, nil, nil)
	if err != nil {
		log.Warnf("List Objects from Bucket(%s) failed: %v", b.name, err)
		return nil, fmt.Errorf("failed to list objects in bucket %s: %w", b.name, err)
	}
	defer CheckClose(resp, &err)

	out := &ListObjectsResult{}
	if err := decodeXML(resp, out); err != nil {
		return nil, err
	}

	out.Prefix = decodeListedKey(out.Prefix, out.EncodingType)
	out.Marker = decodeListedKey(out.Marker, out.EncodingType)
	out.NextMarker = decodeListedKey(out.NextMarker, out.EncodingType)
	out.Delimiter = decodeListedKey(out.Delimiter, out.EncodingType)
	for i := range out.Objects {
		out.Objects[i].Key = decodeListedKey(out.Objects[i].Key, out.EncodingType)
	}
	for i := range out.CommonPrefixes {
		out.CommonPrefixes[i] = decodeListedKey(out.CommonPrefixes[i], out.EncodingType)
	}
	out.RequestID = resp.RequestID
	return out, nil
}

// Objects returns a lazy iterator over the bucket's keys. marker
// resumes a previous walk; pageSize caps each page fetch, zero for the
// service default.
func (b *Bucket) Objects(prefix, delimiter, marker string, pageSize int) *ObjectIterator {
	return &ObjectIterator{
		bucket:    b,
		prefix:    prefix,
		delimiter: delimiter,
		marker:    marker,
		pageSize:  pageSize,
	}
}

func copyHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h)+2)
	for k, v := range h {
		out[k] = v
	}
	return out
}

// withContentType sniffs a Content-Type from name's extension unless
// the caller already chose one.
func withContentType(name string, headers map[string]string) map[string]string {
	for k := range headers {
		if strings.EqualFold(k, "Content-Type") {
			return headers
		}
	}
	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		return headers
	}
	h := copyHeaders(headers)
	h["Content-Type"] = ct
	return h
}
