package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCmd_PrintsCounts(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Documents: 2")
	assert.Contains(t, out, "Chunks:    7")
	assert.Contains(t, out, "technology")
	assert.Contains(t, out, "Sessions: 1")
	assert.Contains(t, out, "Turns:    3")
}

func TestStatsCmd_ErrorsWithoutStores(t *testing.T) {
	oldChunks := chunkStore
	chunkStore = nil
	defer func() {
		chunkStore = oldChunks
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"stats"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
