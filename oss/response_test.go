package oss

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackingBody struct {
	io.Reader
	closes int
}

func (b *trackingBody) Close() error {
	b.closes++
	return nil
}

func textResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{headerOSSRequestID: {"req-7"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestResponseReadOnce(t *testing.T) {
	resp := newResponse(textResponse("hello world"))

	data, err := io.ReadAll(resp)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	_, err = io.ReadAll(resp)
	assert.ErrorIs(t, err, ErrStreamExhausted)

	buf := make([]byte, 4)
	n, err := resp.Read(buf)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrStreamExhausted)
}

func TestResponsePartialThenRest(t *testing.T) {
	resp := newResponse(textResponse("0123456789"))

	head := make([]byte, 4)
	n, err := io.ReadFull(resp, head)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	rest, err := io.ReadAll(resp)
	require.NoError(t, err)
	assert.Equal(t, "456789", string(rest))

	_, err = io.ReadAll(resp)
	assert.ErrorIs(t, err, ErrStreamExhausted)
}

func TestResponseReadAfterClose(t *testing.T) {
	resp := newResponse(textResponse("payload"))
	require.NoError(t, resp.Close())

	_, err := io.ReadAll(resp)
	assert.ErrorIs(t, err, ErrStreamExhausted)
}

func TestResponseCloseIdempotent(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("x")}
	resp := newResponse(&http.Response{StatusCode: 200, Header: http.Header{}, Body: body})

	require.NoError(t, resp.Close())
	require.NoError(t, resp.Close())
	require.NoError(t, resp.Close())
	assert.Equal(t, 1, body.closes)
}

func TestResponseCloseDrainsRemainder(t *testing.T) {
	r := strings.NewReader("leftover bytes the pool wants consumed")
	resp := newResponse(&http.Response{StatusCode: 200, Header: http.Header{}, Body: io.NopCloser(r)})

	require.NoError(t, resp.Close())
	assert.Zero(t, r.Len())
}

func TestResponseRequestID(t *testing.T) {
	resp := newResponse(textResponse(""))
	assert.Equal(t, "req-7", resp.RequestID)
}

func TestCheckClose(t *testing.T) {
	closeErr := errors.New("close failed")

	var err error
	CheckClose(closerFunc(func() error { return closeErr }), &err)
	assert.ErrorIs(t, err, closeErr)

	kept := errors.New("original")
	err = kept
	CheckClose(closerFunc(func() error { return closeErr }), &err)
	assert.ErrorIs(t, err, kept)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
