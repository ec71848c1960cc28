package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatCommand(t *testing.T) {
	s, _, flags := startEmulator(t)
	s.SeedObject("files", "hello.txt", []byte("hello cat\n"), "text/plain", nil)

	out := captureStdout(t, func() {
		require.NoError(t, runCommand(t, append([]string{"cat", "oss://files/hello.txt"}, flags...)...))
	})
	assert.Equal(t, "hello cat\n", out)

	assert.Error(t, runCommand(t, append([]string{"cat", "oss://files"}, flags...)...))
	assert.Error(t, runCommand(t, append([]string{"cat", "oss://files/absent.txt"}, flags...)...))
}
