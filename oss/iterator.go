package oss

import (
	"context"
)

// ObjectIterator walks a bucket's keys in marker order, fetching one
// page at a time. It is not safe for concurrent use.
type ObjectIterator struct {
	bucket    *Bucket
	prefix    string
	delimiter string
	marker    string
	pageSize  int

	page      []ObjectInfo
	truncated bool
	fetched   bool
	lastKey   string
}

// Next returns the next object, fetching a page only when the buffer
// is empty, and reports ErrNoMoreObjects once the listing is done. A
// failed page fetch surfaces here without advancing the iterator, so
// Next may simply be called again.
func (it *ObjectIterator) Next(ctx context.Context) (ObjectInfo, error) {
	for len(it.page) == 0 {
		if it.fetched && !it.truncated {
			return ObjectInfo{}, ErrNoMoreObjects
		}
		if err := it.fetch(ctx); err != nil {
			return ObjectInfo{}, err
		}
	}

	info := it.page[0]
	it.page = it.page[1:]
	it.lastKey = info.Key
	return info, nil
}

// Marker is the position a new iterator needs to resume right after
// the last object Next returned.
func (it *ObjectIterator) Marker() string {
	if it.lastKey != "" {
		return it.lastKey
	}
	return it.marker
}

func (it *ObjectIterator) fetch(ctx context.Context) error {
	result, err := it.bucket.ListObjects(ctx, it.prefix, it.delimiter, it.marker, it.pageSize)
	if err != nil {
		return err
	}

	it.fetched = true
	it.truncated = result.IsTruncated
	it.page = result.Objects
	switch {
	case result.NextMarker != "":
		it.marker = result.NextMarker
	case len(result.Objects) > 0:
		it.marker = result.Objects[len(result.Objects)-1].Key
	}
	return nil
}
