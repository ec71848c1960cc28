package oss

import (
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PutResult names the stored object's server-side identity.
type PutResult struct {
	ETag      string
	RequestID string
}

// GetObjectResult carries the object body and its response metadata.
// The embedded Response owns the body; callers must Close it.
type GetObjectResult struct {
	*Response

	ContentLength int64
	ContentType   string
	ETag          string
	LastModified  time.Time
}

// HeadObjectResult is the full metadata view of an object.
type HeadObjectResult struct {
	ContentLength int64
	ContentType   string
	ETag          string
	LastModified  time.Time
	ObjectType    string
	StorageClass  string
	Headers       http.Header
	RequestID     string
}

// ObjectMeta is the reduced metadata view served by the objectMeta
// subresource.
type ObjectMeta struct {
	ContentLength int64
	ETag          string
	LastModified  time.Time
	RequestID     string
}

// CopyObjectResult reports the copy destination's identity.
type CopyObjectResult struct {
	XMLName      xml.Name  `xml:"CopyObjectResult"`
	ETag         string    `xml:"ETag"`
	LastModified time.Time `xml:"LastModified"`
	RequestID    string    `xml:"-"`
}

// AppendResult reports where the next append must start.
type AppendResult struct {
	NextPosition int64
	ETag         string
	RequestID    string
}

// DeleteObjectsResult lists the keys the service removed.
type DeleteObjectsResult struct {
	XMLName      xml.Name `xml:"DeleteResult"`
	DeletedKeys  []string `xml:"Deleted>Key"`
	EncodingType string   `xml:"EncodingType"`
	RequestID    string   `xml:"-"`
}

// deleteXML is the request body of a batch delete.
type deleteXML struct {
	XMLName xml.Name    `xml:"Delete"`
	Quiet   bool        `xml:"Quiet"`
	Objects []deleteKey `xml:"Object"`
}

type deleteKey struct {
	Key string `xml:"Key"`
}

// ObjectInfo is one listing entry.
type ObjectInfo struct {
	Key          string    `xml:"Key"`
	LastModified time.Time `xml:"LastModified"`
	ETag         string    `xml:"ETag"`
	Type         string    `xml:"Type"`
	Size         int64     `xml:"Size"`
	StorageClass string    `xml:"StorageClass"`
}

// ListObjectsResult is one page of a bucket listing.
type ListObjectsResult struct {
	XMLName        xml.Name     `xml:"ListBucketResult"`
	Name           string       `xml:"Name"`
	Prefix         string       `xml:"Prefix"`
	Marker         string       `xml:"Marker"`
	MaxKeys        int          `xml:"MaxKeys"`
	Delimiter      string       `xml:"Delimiter"`
	IsTruncated    bool         `xml:"IsTruncated"`
	NextMarker     string       `xml:"NextMarker"`
	EncodingType   string       `xml:"EncodingType"`
	Objects        []ObjectInfo `xml:"Contents"`
	CommonPrefixes []string     `xml:"CommonPrefixes>Prefix"`
	RequestID      string       `xml:"-"`
}

// Owner identifies the account a bucket belongs to.
type Owner struct {
	ID          string `xml:"ID"`
	DisplayName string `xml:"DisplayName"`
}

// BucketProperties is one entry of a service-level bucket listing.
type BucketProperties struct {
	Name         string    `xml:"Name"`
	Location     string    `xml:"Location"`
	CreationDate time.Time `xml:"CreationDate"`
	StorageClass string    `xml:"StorageClass"`
}

// ListBucketsResult is one page of the account's buckets.
type ListBucketsResult struct {
	XMLName     xml.Name           `xml:"ListAllMyBucketsResult"`
	Prefix      string             `xml:"Prefix"`
	Marker      string             `xml:"Marker"`
	MaxKeys     int                `xml:"MaxKeys"`
	IsTruncated bool               `xml:"IsTruncated"`
	NextMarker  string             `xml:"NextMarker"`
	Owner       Owner              `xml:"Owner"`
	Buckets     []BucketProperties `xml:"Buckets>Bucket"`
	RequestID   string             `xml:"-"`
}

// BucketInfo is the bucketInfo subresource view.
type BucketInfo struct {
	XMLName          xml.Name  `xml:"BucketInfo"`
	Name             string    `xml:"Bucket>Name"`
	Location         string    `xml:"Bucket>Location"`
	CreationDate     time.Time `xml:"Bucket>CreationDate"`
	ExtranetEndpoint string    `xml:"Bucket>ExtranetEndpoint"`
	IntranetEndpoint string    `xml:"Bucket>IntranetEndpoint"`
	StorageClass     string    `xml:"Bucket>StorageClass"`
	Owner            Owner     `xml:"Bucket>Owner"`
	RequestID        string    `xml:"-"`
}

// BucketStat is the stat subresource view.
type BucketStat struct {
	XMLName     xml.Name `xml:"BucketStat"`
	Storage     int64    `xml:"Storage"`
	ObjectCount int64    `xml:"ObjectCount"`
	RequestID   string   `xml:"-"`
}

// unquoteETag strips the RFC 7232 quotes the wire carries.
func unquoteETag(etag string) string {
	return strings.Trim(etag, "\"")
}

// parseHTTPTime parses a header timestamp, zero time on failure.
func parseHTTPTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseContentLength parses a Content-Length header, -1 when absent or
// malformed.
func parseContentLength(value string) int64 {
	if value == "" {
		return -1
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// decodeListedKey reverses the url encoding-type applied to listing
// fields. Keys that fail to decode are kept as served.
func decodeListedKey(key, encodingType string) string {
	if encodingType != "url" || key == "" {
		return key
	}
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}
