package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRmCommand(t *testing.T) {
	s, _, flags := startEmulator(t)
	s.SeedObject("pics", "gone.txt", []byte("x"), "", nil)

	require.NoError(t, runCommand(t, append([]string{"rm", "oss://pics/gone.txt"}, flags...)...))
	_, ok := s.Object("pics", "gone.txt")
	assert.False(t, ok)

	// Deleting it again still succeeds.
	require.NoError(t, runCommand(t, append([]string{"rm", "oss://pics/gone.txt"}, flags...)...))
}

func TestRmBatchCommand(t *testing.T) {
	s, _, flags := startEmulator(t)
	for _, key := range []string{"logs/1", "logs/2", "logs/3", "keep.txt"} {
		s.SeedObject("pics", key, []byte("x"), "", nil)
	}

	args := append([]string{"rm", "oss://pics/logs/", "--batch", "--force"}, flags...)
	require.NoError(t, runCommand(t, args...))

	for _, key := range []string{"logs/1", "logs/2", "logs/3"} {
		_, ok := s.Object("pics", key)
		assert.False(t, ok, key)
	}
	_, ok := s.Object("pics", "keep.txt")
	assert.True(t, ok)
}
