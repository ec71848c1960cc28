package osstest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jerevia/go-oss/oss"
)

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return `"` + strings.ToUpper(hex.EncodeToString(sum[:])) + `"`
}

func collectMeta(h http.Header) map[string]string {
	meta := map[string]string{}
	for k, vs := range h {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "x-oss-meta-") && len(vs) > 0 {
			meta[lk] = vs[0]
		}
	}
	return meta
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")

	if src := r.Header.Get("x-oss-copy-source"); src != "" {
		s.copyObject(w, r, name, key, src)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "InvalidRequest", "unreadable body")
		return
	}

	obj := &objectData{
		data:         body,
		contentType:  r.Header.Get("Content-Type"),
		etag:         etagOf(body),
		lastModified: time.Now().UTC(),
		meta:         collectMeta(r.Header),
		objectType:   "Normal",
	}

	s.mu.Lock()
	b, ok := s.buckets[name]
	if !ok {
		s.mu.Unlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}
	b.objects[key] = obj
	s.mu.Unlock()

	w.Header().Set("Etag", obj.etag)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) copyObject(w http.ResponseWriter, r *http.Request, dstBucket, dstKey, src string) {
	srcBucket, srcKeyEnc := splitPath(src)
	srcKey, err := url.PathUnescape(srcKeyEnc)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "InvalidArgument", "unparseable copy source")
		return
	}

	s.mu.Lock()
	sb, ok := s.buckets[srcBucket]
	if !ok {
		s.mu.Unlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchBucket", "source bucket does not exist")
		return
	}
	sobj, ok := sb.objects[srcKey]
	if !ok {
		s.mu.Unlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchKey", "source key does not exist")
		return
	}
	db, ok := s.buckets[dstBucket]
	if !ok {
		s.mu.Unlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchBucket", "destination bucket does not exist")
		return
	}

	meta := make(map[string]string, len(sobj.meta))
	for k, v := range sobj.meta {
		meta[k] = v
	}
	contentType := sobj.contentType
	if strings.EqualFold(r.Header.Get("x-oss-metadata-directive"), "REPLACE") {
		meta = collectMeta(r.Header)
		if ct := r.Header.Get("Content-Type"); ct != "" {
			contentType = ct
		}
	}

	obj := &objectData{
		data:         append([]byte(nil), sobj.data...),
		contentType:  contentType,
		etag:         sobj.etag,
		lastModified: time.Now().UTC(),
		meta:         meta,
		objectType:   "Normal",
	}
	db.objects[dstKey] = obj
	s.mu.Unlock()

	writeXML(w, http.StatusOK, oss.CopyObjectResult{
		ETag:         obj.etag,
		LastModified: obj.lastModified,
	})
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")

	s.mu.RLock()
	b, ok := s.buckets[name]
	if !ok {
		s.mu.RUnlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}
	obj, ok := b.objects[key]
	if !ok {
		s.mu.RUnlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchKey", "key does not exist")
		return
	}
	data := obj.data
	s.stampObjectHeaders(w, obj, false)
	s.mu.RUnlock()

	status := http.StatusOK
	if spec := r.Header.Get("Range"); spec != "" {
		start, end, ok := parseRange(spec, int64(len(data)))
		if !ok {
			s.writeError(w, r, http.StatusRequestedRangeNotSatisfiable, "InvalidRange", "cannot satisfy range")
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(data)))
		data = data[start : end+1]
		status = http.StatusPartialContent
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) handleHeadObject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")
	metaOnly := r.URL.Query().Has("objectMeta")

	s.mu.RLock()
	b, ok := s.buckets[name]
	if !ok {
		s.mu.RUnlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}
	obj, ok := b.objects[key]
	if !ok {
		s.mu.RUnlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchKey", "key does not exist")
		return
	}
	s.stampObjectHeaders(w, obj, metaOnly)
	size := len(obj.data)
	s.mu.RUnlock()

	w.Header().Set("Content-Length", strconv.Itoa(size))
	w.WriteHeader(http.StatusOK)
}

// stampObjectHeaders must be called with the store lock held.
func (s *Server) stampObjectHeaders(w http.ResponseWriter, obj *objectData, metaOnly bool) {
	h := w.Header()
	h.Set("Etag", obj.etag)
	h.Set("Last-Modified", obj.lastModified.UTC().Format(http.TimeFormat))
	if metaOnly {
		return
	}
	if obj.contentType != "" {
		h.Set("Content-Type", obj.contentType)
	}
	h.Set("x-oss-object-type", obj.objectType)
	h.Set("x-oss-storage-class", "Standard")
	for k, v := range obj.meta {
		h.Set(k, v)
	}
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")

	s.mu.Lock()
	b, ok := s.buckets[name]
	if !ok {
		s.mu.Unlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}
	// Deleting an absent key succeeds, the way the service behaves.
	delete(b.objects, key)
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAppendObject(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("append") {
		s.writeError(w, r, http.StatusBadRequest, "InvalidArgument", "missing append subresource")
		return
	}
	position, err := strconv.ParseInt(q.Get("position"), 10, 64)
	if err != nil || position < 0 {
		s.writeError(w, r, http.StatusBadRequest, "InvalidArgument", "bad append position")
		return
	}

	name := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "InvalidRequest", "unreadable body")
		return
	}

	s.mu.Lock()
	b, ok := s.buckets[name]
	if !ok {
		s.mu.Unlock()
		s.writeError(w, r, http.StatusNotFound, "NoSuchBucket", "bucket does not exist")
		return
	}

	obj, exists := b.objects[key]
	if exists && obj.objectType != "Appendable" {
		s.mu.Unlock()
		s.writeError(w, r, http.StatusConflict, "ObjectNotAppendable", "object is not appendable")
		return
	}

	var current []byte
	if exists {
		current = obj.data
	}
	if position != int64(len(current)) {
		w.Header().Set("x-oss-next-append-position", strconv.Itoa(len(current)))
		s.mu.Unlock()
		s.writeError(w, r, http.StatusConflict, "PositionNotEqualToLength", "append position does not match object length")
		return
	}

	joined := append(append([]byte(nil), current...), body...)
	next := &objectData{
		data:         joined,
		contentType:  r.Header.Get("Content-Type"),
		etag:         etagOf(joined),
		lastModified: time.Now().UTC(),
		meta:         collectMeta(r.Header),
		objectType:   "Appendable",
	}
	if exists {
		if next.contentType == "" {
			next.contentType = obj.contentType
		}
		for k, v := range obj.meta {
			if _, set := next.meta[k]; !set {
				next.meta[k] = v
			}
		}
	}
	b.objects[key] = next
	s.mu.Unlock()

	w.Header().Set("x-oss-next-append-position", strconv.Itoa(len(joined)))
	w.Header().Set("Etag", next.etag)
	w.WriteHeader(http.StatusOK)
}

// parseRange handles the single-range forms bytes=a-b, bytes=a- and
// bytes=-n.
func parseRange(spec string, size int64) (start, end int64, ok bool) {
	spec = strings.TrimPrefix(spec, "bytes=")
	i := strings.IndexByte(spec, '-')
	if i < 0 {
		return 0, 0, false
	}
	first, last := spec[:i], spec[i+1:]

	switch {
	case first == "" && last == "":
		return 0, 0, false
	case first == "":
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 || size == 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	case last == "":
		a, err := strconv.ParseInt(first, 10, 64)
		if err != nil || a >= size {
			return 0, 0, false
		}
		return a, size - 1, true
	default:
		a, err1 := strconv.ParseInt(first, 10, 64)
		z, err2 := strconv.ParseInt(last, 10, 64)
		if err1 != nil || err2 != nil || a > z || a >= size {
			return 0, 0, false
		}
		if z >= size {
			z = size - 1
		}
		return a, z, true
	}
}
