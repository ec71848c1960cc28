package osstest

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout LoadSeed reads:
//
//	buckets:
//	  - name: pics
//	    objects:
//	      - key: a.txt
//	        content: hello
//	        content-type: text/plain
//	        meta:
//	          x-oss-meta-author: nelson
type seedFile struct {
	Buckets []struct {
		Name    string `yaml:"name"`
		Objects []struct {
			Key         string            `yaml:"key"`
			Content     string            `yaml:"content"`
			ContentType string            `yaml:"content-type"`
			Appendable  bool              `yaml:"appendable"`
			Meta        map[string]string `yaml:"meta"`
		} `yaml:"objects"`
	} `yaml:"buckets"`
}

// LoadSeed fills the store from a YAML fixture file.
func (s *Server) LoadSeed(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed %s: %w", path, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse seed %s: %w", path, err)
	}

	for _, b := range seed.Buckets {
		s.SeedBucket(b.Name)
		for _, o := range b.Objects {
			objectType := "Normal"
			if o.Appendable {
				objectType = "Appendable"
			}
			s.seedObject(b.Name, o.Key, []byte(o.Content), o.ContentType, o.Meta, objectType)
		}
	}
	return nil
}

// SeedBucket creates bucket name unless it already exists.
func (s *Server) SeedBucket(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; !ok {
		s.buckets[name] = &bucketData{
			created: time.Now().UTC(),
			objects: make(map[string]*objectData),
		}
	}
}

// SeedObject stores an object directly, bypassing the HTTP surface.
// The bucket is created when missing.
func (s *Server) SeedObject(bucket, key string, data []byte, contentType string, meta map[string]string) {
	s.seedObject(bucket, key, data, contentType, meta, "Normal")
}

func (s *Server) seedObject(bucket, key string, data []byte, contentType string, meta map[string]string, objectType string) {
	normalized := make(map[string]string, len(meta))
	for k, v := range meta {
		normalized[strings.ToLower(k)] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		b = &bucketData{created: time.Now().UTC(), objects: make(map[string]*objectData)}
		s.buckets[bucket] = b
	}
	b.objects[key] = &objectData{
		data:         append([]byte(nil), data...),
		contentType:  contentType,
		etag:         etagOf(data),
		lastModified: time.Now().UTC(),
		meta:         normalized,
		objectType:   objectType,
	}
}

// Object returns a stored object's bytes.
func (s *Server) Object(bucket, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[bucket]
	if !ok {
		return nil, false
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}
