package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCommand(t *testing.T) {
	s, _, flags := startEmulator(t)
	s.SeedObject("files", "a.txt", []byte("aa"), "", nil)
	s.SeedObject("files", "dir/1.txt", []byte("11"), "", nil)
	s.SeedObject("files", "dir/2.txt", []byte("22"), "", nil)

	out := captureStdout(t, func() {
		require.NoError(t, runCommand(t, append([]string{"ls", "oss://files"}, flags...)...))
	})
	assert.Equal(t, "a.txt\ndir/1.txt\ndir/2.txt\n", out)

	// Grouped on / the dir keys roll up into one prefix line.
	out = captureStdout(t, func() {
		require.NoError(t, runCommand(t, append([]string{"ls", "--delimiter", "/", "oss://files"}, flags...)...))
	})
	assert.Equal(t, "dir/\na.txt\n", out)
}

func TestListBucketsCommand(t *testing.T) {
	s, _, flags := startEmulator(t)
	s.SeedBucket("alpha")
	s.SeedBucket("beta")

	out := captureStdout(t, func() {
		require.NoError(t, runCommand(t, append([]string{"ls"}, flags...)...))
	})
	assert.Equal(t, "alpha\nbeta\n", out)
}
