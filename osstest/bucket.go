package osstest

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jerevia/go-oss/oss"
)

const defaultMaxKeys = 100

var emulatorOwner = oss.Owner{ID: "oss-emulator", DisplayName: "oss-emulator"}

func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	marker := q.Get("marker")
	maxKeys, _ := strconv.Atoi(q.Get("max-keys"))
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	s.mu.RLock()
	var names []string
	for name := range s.buckets {
		if strings.HasPrefix(name, prefix) && name > marker {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	truncated := len(names) > maxKeys
	if truncated {
		names = names[:maxKeys]
	}

	out := oss.ListBucketsResult{
		Prefix:      prefix,
		Marker:      marker,
		MaxKeys:     maxKeys,
		IsTruncated: truncated,
		Owner:       emulatorOwner,
	}
	for _, name := range names {
		b := s.buckets[name]
		out.Buckets = append(out.Buckets, oss.BucketProperties{
			Name:         name,
			Location:     "osstest",
			CreationDate: b.created,
			StorageClass: "Standard",
		})
	}
	s.mu.RUnlock()

	if truncated {
		out.NextMarker = names[len(names)-1]
	}
	writeXML(w, http.StatusOK, out)
}

func (s *Server) handlePutBucket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; ok {
		s.writeError(w, r, http.StatusConflict, "BucketAlreadyExists", "bucket already exists")
		return
	}
	s.buckets[name] = &bucketData{
		created: time.Now().UTC(),
		acl:     r.Header.Get("x-oss-acl"),
		objects: make(map[string]*objectData),
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[name]
	if !ok {
		s.writeError(w, r, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}
	if len(b.objects) > 0 {
		s.writeError(w, r, http.StatusConflict, "BucketNotEmpty", "bucket is not empty")
		return
	}
	delete(s.buckets, name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBucket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	q := r.URL.Query()

	s.mu.RLock()
	b, ok := s.buckets[name]
	if !ok {
		s.mu.RUnlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}

	switch {
	case q.Has("bucketInfo"):
		out := oss.BucketInfo{
			Name:             name,
			Location:         "osstest",
			CreationDate:     b.created,
			ExtranetEndpoint: r.Host,
			IntranetEndpoint: r.Host,
			StorageClass:     "Standard",
			Owner:            emulatorOwner,
		}
		s.mu.RUnlock()
		writeXML(w, http.StatusOK, out)

	case q.Has("stat"):
		out := oss.BucketStat{ObjectCount: int64(len(b.objects))}
		for _, obj := range b.objects {
			out.Storage += int64(len(obj.data))
		}
		s.mu.RUnlock()
		writeXML(w, http.StatusOK, out)

	default:
		out := listBucketPage(name, b, q)
		s.mu.RUnlock()
		writeXML(w, http.StatusOK, out)
	}
}

// listItem is one entry of the merged object and prefix stream a
// delimiter listing walks in key order.
type listItem struct {
	key      string
	isPrefix bool
	obj      *objectData
}

func listBucketPage(name string, b *bucketData, q url.Values) oss.ListObjectsResult {
	prefix := q.Get("prefix")
	delimiter := q.Get("delimiter")
	marker := q.Get("marker")
	encodingType := q.Get("encoding-type")
	maxKeys, _ := strconv.Atoi(q.Get("max-keys"))
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	// The marker cut happens on the rolled-up position, not the raw
	// key, so a group that closed one page is not reopened on the next.
	var items []listItem
	seenPrefix := map[string]bool{}
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		pos := k
		isPrefix := false
		if delimiter != "" {
			if i := strings.Index(rest, delimiter); i >= 0 {
				pos = prefix + rest[:i+len(delimiter)]
				isPrefix = true
			}
		}
		if pos <= marker {
			continue
		}
		if isPrefix {
			if seenPrefix[pos] {
				continue
			}
			seenPrefix[pos] = true
			items = append(items, listItem{key: pos, isPrefix: true})
			continue
		}
		items = append(items, listItem{key: k, obj: b.objects[k]})
	}

	truncated := len(items) > maxKeys
	if truncated {
		items = items[:maxKeys]
	}

	encode := func(v string) string {
		if encodingType == "url" {
			return url.QueryEscape(v)
		}
		return v
	}

	out := oss.ListObjectsResult{
		Name:         name,
		Prefix:       encode(prefix),
		Marker:       encode(marker),
		MaxKeys:      maxKeys,
		Delimiter:    encode(delimiter),
		IsTruncated:  truncated,
		EncodingType: encodingType,
	}
	if truncated {
		out.NextMarker = encode(items[len(items)-1].key)
	}
	for _, item := range items {
		if item.isPrefix {
			out.CommonPrefixes = append(out.CommonPrefixes, encode(item.key))
			continue
		}
		out.Objects = append(out.Objects, oss.ObjectInfo{
			Key:          encode(item.key),
			LastModified: item.obj.lastModified,
			ETag:         item.obj.etag,
			Type:         item.obj.objectType,
			Size:         int64(len(item.obj.data)),
			StorageClass: "Standard",
		})
	}
	return out
}

type deleteRequest struct {
	XMLName xml.Name `xml:"Delete"`
	Quiet   bool     `xml:"Quiet"`
	Objects []struct {
		Key string `xml:"Key"`
	} `xml:"Object"`
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("delete") {
		s.writeError(w, r, http.StatusBadRequest, "InvalidArgument", "missing delete subresource")
		return
	}
	name := chi.URLParam(r, "bucket")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "InvalidRequest", "unreadable body")
		return
	}
	if want := r.Header.Get("Content-MD5"); want != "" {
		sum := md5.Sum(body)
		if base64.StdEncoding.EncodeToString(sum[:]) != want {
			s.writeError(w, r, http.StatusBadRequest, "InvalidDigest", "Content-MD5 mismatch")
			return
		}
	}

	var req deleteRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "MalformedXML", "unparseable delete request")
		return
	}

	s.mu.Lock()
	b, ok := s.buckets[name]
	if !ok {
		s.mu.Unlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}
	encodingType := r.URL.Query().Get("encoding-type")
	out := oss.DeleteObjectsResult{EncodingType: encodingType}
	for _, obj := range req.Objects {
		delete(b.objects, obj.Key)
		if req.Quiet {
			continue
		}
		key := obj.Key
		if encodingType == "url" {
			key = url.QueryEscape(key)
		}
		out.DeletedKeys = append(out.DeletedKeys, key)
	}
	s.mu.Unlock()

	writeXML(w, http.StatusOK, out)
}
