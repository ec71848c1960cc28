// Package osstest is an in-process emulator of an OSS endpoint for
// exercising clients in tests: buckets and objects live in memory, the
// wire shapes match the service's XML documents and headers, and v1
// request signatures can be verified against fixed credentials.
package osstest

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jerevia/go-oss/oss"
)

// Server emulates one OSS endpoint. The zero value is not usable; use
// NewServer. It implements http.Handler and is safe for concurrent
// use.
type Server struct {
	mu      sync.RWMutex
	buckets map[string]*bucketData

	signer   *oss.Signer
	creds    *oss.Credentials
	baseHost string

	nextRequestID uint64
	router        chi.Router
}

type bucketData struct {
	created time.Time
	acl     string
	objects map[string]*objectData
}

type objectData struct {
	data         []byte
	contentType  string
	etag         string
	lastModified time.Time
	meta         map[string]string
	objectType   string
}

type ServerOption func(*Server)

// WithCredentials makes the server verify the v1 signature of every
// request against creds, rejecting mismatches with
// SignatureDoesNotMatch.
func WithCredentials(creds *oss.Credentials) ServerOption {
	return func(s *Server) {
		s.creds = creds
		s.signer = oss.NewSigner(creds)
	}
}

// WithBaseHost enables virtual-host addressing: requests whose Host is
// <bucket>.<host> are routed as if the bucket were the leading path
// segment.
func WithBaseHost(host string) ServerOption {
	return func(s *Server) {
		s.baseHost = host
	}
}

func NewServer(opts ...ServerOption) *Server {
	s := &Server{buckets: make(map[string]*bucketData)}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.stampRequestID)
	r.Use(s.rewriteVirtualHost)
	r.Use(s.checkSignature)

	r.Get("/", s.handleListBuckets)
	r.Route("/{bucket}", func(r chi.Router) {
		r.Put("/", s.handlePutBucket)
		r.Delete("/", s.handleDeleteBucket)
		r.Get("/", s.handleGetBucket)
		r.Post("/", s.handleBatchDelete)

		r.Put("/*", s.handlePutObject)
		r.Get("/*", s.handleGetObject)
		r.Head("/*", s.handleHeadObject)
		r.Delete("/*", s.handleDeleteObject)
		r.Post("/*", s.handleAppendObject)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) stampRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := atomic.AddUint64(&s.nextRequestID, 1)
		w.Header().Set("x-oss-request-id", fmt.Sprintf("osstest-%08X", id))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rewriteVirtualHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.baseHost != "" {
			host := r.Host
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			if bucket := strings.TrimSuffix(host, "."+s.baseHost); bucket != host && bucket != "" {
				r.URL.Path = "/" + bucket + r.URL.Path
			}
		}
		next.ServeHTTP(w, r)
	})
}

// checkSignature recomputes the request signature the way a client
// produces it and compares. Presigned URLs are verified through their
// query parameters instead.
func (s *Server) checkSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.signer == nil {
			next.ServeHTTP(w, r)
			return
		}

		bucket, key := splitPath(r.URL.Path)

		if sig := r.URL.Query().Get("Signature"); sig != "" {
			if !s.verifyPresigned(r, bucket, key, sig) {
				s.writeError(w, r, http.StatusForbidden, "SignatureDoesNotMatch", "presigned signature mismatch")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !s.verifySigned(r, bucket, key) {
			s.writeError(w, r, http.StatusForbidden, "SignatureDoesNotMatch", "request signature mismatch")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) verifySigned(r *http.Request, bucket, key string) bool {
	if r.Header.Get("Date") == "" || r.Header.Get("Authorization") == "" {
		return false
	}

	shadow := r.Clone(r.Context())
	shadow.Header.Del("Authorization")
	if err := s.signer.Authorize(shadow, bucket, key); err != nil {
		return false
	}
	return shadow.Header.Get("Authorization") == r.Header.Get("Authorization")
}

func (s *Server) verifyPresigned(r *http.Request, bucket, key, sig string) bool {
	q := r.URL.Query()
	if q.Get("OSSAccessKeyId") != s.creds.AccessKeyID() {
		return false
	}
	expires, err := strconv.ParseInt(q.Get("Expires"), 10, 64)
	if err != nil || time.Now().Unix() > expires {
		return false
	}

	q.Del("OSSAccessKeyId")
	q.Del("Expires")
	q.Del("Signature")
	signed, err := s.signer.PresignParams(r.Method, bucket, key, expires, r.Header, q)
	if err != nil {
		return false
	}
	return signed.Get("Signature") == sig
}

func splitPath(p string) (bucket, key string) {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i], p[i+1:]
	}
	return p, ""
}

// writeError renders the OSS XML error envelope. HEAD replies carry it
// base64 encoded in the x-oss-err header since they have no body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	env := struct {
		XMLName   xml.Name `xml:"Error"`
		Code      string   `xml:"Code"`
		Message   string   `xml:"Message"`
		RequestID string   `xml:"RequestId"`
		HostID    string   `xml:"HostId"`
	}{
		Code:      code,
		Message:   message,
		RequestID: w.Header().Get("x-oss-request-id"),
		HostID:    r.Host,
	}
	body, _ := xml.Marshal(env)

	if r.Method == http.MethodHead {
		w.Header().Set("x-oss-err", base64.StdEncoding.EncodeToString(body))
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	w.Write(append([]byte(xml.Header), body...))
}

func writeXML(w http.ResponseWriter, status int, v interface{}) {
	body, err := xml.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	w.Write(append([]byte(xml.Header), body...))
}

func (s *Server) bucket(name string) (*bucketData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[name]
	return b, ok
}
