package cmd

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignCommand(t *testing.T) {
	s, _, flags := startEmulator(t)
	s.SeedObject("files", "p.txt", []byte("payload"), "", nil)

	out := captureStdout(t, func() {
		require.NoError(t, runCommand(t, append([]string{"presign", "--expires", "2m", "oss://files/p.txt"}, flags...)...))
	})
	signed := strings.TrimSpace(out)
	assert.Contains(t, signed, "OSSAccessKeyId=cli-key")
	assert.Contains(t, signed, "Signature=")

	// The printed URL fetches the object on its own.
	resp, err := http.Get(signed)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	assert.Error(t, runCommand(t, append([]string{"presign", "oss://files"}, flags...)...))
}
